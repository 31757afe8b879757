// Package llm defines the chat-generation boundary the orchestrator depends
// on (C6's "LLM invocation contract"): the orchestrator never knows the
// concrete provider, only this interface, bounded by its own timeout.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrGenerateFailed wraps any provider-level failure so callers can match
// on it without depending on a concrete client's error type.
var ErrGenerateFailed = errors.New("llm: generation failed")

// Client produces a character response for a fully assembled prompt.
type Client interface {
	Generate(ctx context.Context, prompt, userID string) (string, error)
}

// CannedFallback is returned when both the primary and fallback attempts
// fail, per SPEC_FULL.md section 4.6's "final fallback returns a canned
// line" contract.
const CannedFallback = "I'm here, but my thoughts are a little scattered right now — could you say that again?"

// Invoker wraps a Client with the two-attempt fallback contract: primary
// call with the full assembled prompt, fallback call with the bare user
// message, final canned response if both fail.
type Invoker struct {
	Client  Client
	Timeout time.Duration
}

// NewInvoker constructs an Invoker with the given per-attempt timeout.
func NewInvoker(client Client, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &Invoker{Client: client, Timeout: timeout}
}

// Result reports which attempt produced the final text.
type Result struct {
	Text      string
	Fallback  bool
	Canned    bool
}

// Invoke runs the two-attempt contract: full prompt, then bare user
// message, then a canned line. Each attempt gets its own timeout derived
// from the parent context.
func (inv *Invoker) Invoke(ctx context.Context, prompt, userMessage, userID string) Result {
	if text, err := inv.attempt(ctx, prompt, userID); err == nil {
		return Result{Text: text}
	}

	if text, err := inv.attempt(ctx, userMessage, userID); err == nil {
		return Result{Text: text, Fallback: true}
	}

	return Result{Text: CannedFallback, Fallback: true, Canned: true}
}

func (inv *Invoker) attempt(ctx context.Context, prompt, userID string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.Timeout)
	defer cancel()

	text, err := inv.Client.Generate(attemptCtx, prompt, userID)
	if err != nil {
		return "", errors.Join(ErrGenerateFailed, err)
	}
	if text == "" {
		return "", ErrGenerateFailed
	}
	return text, nil
}
