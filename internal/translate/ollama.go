package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Backend turns one prompt into one translated string. Implementations must
// honor ctx cancellation so an agent can abandon an in-flight call.
type Backend interface {
	Translate(ctx context.Context, text string) (string, error)
}

const DefaultTimeout = 60 * time.Second

const translatorInstruction = "You are a translator. " +
	"If the input is Korean, translate it to natural, colloquial English. " +
	"If the input is English, translate it to natural, colloquial Korean. " +
	"Preserve meaning and tone. Output only the translation with no extra words."

// OllamaClient calls an Ollama-compatible generate endpoint, one prompt per
// request, stateless across calls.
type OllamaClient struct {
	host    string
	model   string
	timeout time.Duration
	httpc   *http.Client
}

func NewOllamaClient(host, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		host:    strings.TrimRight(host, "/"),
		model:   model,
		timeout: timeout,
		httpc:   &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *OllamaClient) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: buildPrompt(text), Stream: false})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().Str("module", "translate.ollama").Int("status", resp.StatusCode).Str("body", string(detail)).Msg("ollama error")
		return "", fmt.Errorf("ollama status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}

func buildPrompt(text string) string {
	return translatorInstruction + "\n\nInput: " + text
}
