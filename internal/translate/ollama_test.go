package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClientTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "Input: hello")

		_ = json.NewEncoder(w).Encode(map[string]string{"response": "  안녕  "})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "llama3.2", time.Second)
	out, err := c.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "안녕", out)
}

func TestOllamaClientNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", time.Second)
	_, err := c.Translate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", time.Second)
	_, err := c.Translate(context.Background(), "hello")
	require.Error(t, err)
}

func TestOllamaClientTimeoutBoundsTheCall(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewOllamaClient(srv.URL, "llama3.2", 100*time.Millisecond)

	start := time.Now()
	_, err := c.Translate(context.Background(), "hello")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
