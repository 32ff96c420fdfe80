package translate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
)

// ErrAgentStopped is returned by Submit once Stop has been requested. The
// caller must obtain a fresh agent from the registry; a stopped agent never
// restarts.
var ErrAgentStopped = errors.New("translation agent stopped")

type agentState int

const (
	stateNotStarted agentState = iota
	stateRunning
	stateStopping
	stateStopped
)

type request struct {
	text   string
	result chan string // buffered(1), resolved exactly once
}

// Agent serializes translation requests for one connection: a FIFO queue
// drained by a single worker goroutine, so at most one backend call is in
// flight per user and results complete in submission order.
type Agent struct {
	ownerID domain.ConnID
	backend Backend

	mu    sync.Mutex
	cond  *sync.Cond
	queue []request
	state agentState

	cancel context.CancelFunc
	done   chan struct{}
}

func NewAgent(ownerID domain.ConnID, backend Backend) *Agent {
	a := &Agent{
		ownerID: ownerID,
		backend: backend,
		done:    make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Start launches the worker if it has not run yet. Submit also starts the
// worker lazily, so calling Start is optional.
func (a *Agent) Start() {
	a.mu.Lock()
	a.startLocked()
	a.mu.Unlock()
}

func (a *Agent) startLocked() {
	if a.state != stateNotStarted {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.state = stateRunning
	go a.run(ctx)
}

// Submit enqueues text and blocks until its result is resolved: the
// translated string, or "" on backend failure or shutdown drain. Submitting
// to a stopped agent fails with ErrAgentStopped. Cancelling ctx unblocks the
// caller with ""; the queued entry is still resolved by the worker.
func (a *Agent) Submit(ctx context.Context, text string) (string, error) {
	a.mu.Lock()
	switch a.state {
	case stateStopping, stateStopped:
		a.mu.Unlock()
		return "", ErrAgentStopped
	case stateNotStarted:
		a.startLocked()
	}
	req := request{text: text, result: make(chan string, 1)}
	a.queue = append(a.queue, req)
	a.mu.Unlock()
	a.cond.Signal()

	select {
	case out := <-req.result:
		return out, nil
	case <-ctx.Done():
		return "", nil
	}
}

// Stop cancels the in-flight backend call, resolves every queued request
// with "" and waits for the worker to exit. It returns within the backend
// timeout at worst, regardless of queue depth, and is idempotent.
func (a *Agent) Stop() {
	a.mu.Lock()
	switch a.state {
	case stateNotStarted:
		a.state = stateStopped
		a.drainLocked()
		a.mu.Unlock()
		close(a.done)
		return
	case stateRunning:
		a.state = stateStopping
		a.cancel()
	}
	a.mu.Unlock()
	a.cond.Broadcast()
	<-a.done
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	for {
		a.mu.Lock()
		for len(a.queue) == 0 && a.state == stateRunning {
			a.cond.Wait()
		}
		if a.state != stateRunning {
			a.drainLocked()
			a.state = stateStopped
			a.mu.Unlock()
			return
		}
		req := a.queue[0]
		a.queue = a.queue[1:]
		a.mu.Unlock()

		out, err := a.backend.Translate(ctx, req.text)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("module", "translate.agent").Str("owner", string(a.ownerID)).Msg("translation failed")
			}
			out = ""
		}
		req.result <- out
	}
}

// drainLocked resolves every undispatched request with "" without touching
// the backend. Callers hold a.mu.
func (a *Agent) drainLocked() {
	for _, req := range a.queue {
		req.result <- ""
	}
	a.queue = nil
}
