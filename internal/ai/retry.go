package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"cvforge/internal/errors"
)

// CallHelper retries a completion exactly once when the remote answers
// 429, after a fixed backoff. Every failure it returns is a *CompletionError.
type CallHelper struct {
	next    Completer
	backoff time.Duration
	logger  *errors.Logger
	wait    func(ctx context.Context, d time.Duration) error
}

// NewCallHelper wraps next with the single rate-limit retry.
func NewCallHelper(next Completer, backoff time.Duration, logger *errors.Logger) *CallHelper {
	return &CallHelper{
		next:    next,
		backoff: backoff,
		logger:  logger,
		wait:    sleepContext,
	}
}

// Complete implements Completer.
func (h *CallHelper) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	resp, err := h.call(ctx, req)
	if err == nil || err.StatusCode != http.StatusTooManyRequests {
		return resp, asError(err)
	}

	h.logger.Warn("Rate limited by AI provider, retrying once",
		"model", req.Model,
		"backoff", h.backoff.String())

	if werr := h.wait(ctx, h.backoff); werr != nil {
		return nil, &CompletionError{Body: werr.Error(), Err: werr}
	}

	resp, err = h.call(ctx, req)
	return resp, asError(err)
}

// call invokes next and normalises its failure. A panic in a provider is
// reported as a transport failure.
func (h *CallHelper) call(ctx context.Context, req ChatRequest) (resp *Completion, cerr *CompletionError) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			cerr = &CompletionError{Body: fmt.Sprintf("completion panicked: %v", r)}
		}
	}()

	resp, err := h.next.Complete(ctx, req)
	if err != nil {
		return nil, toCompletionError(err)
	}
	if resp == nil {
		return nil, &CompletionError{Body: "empty completion"}
	}
	return resp, nil
}

// asError keeps a nil *CompletionError from becoming a non-nil error.
func asError(err *CompletionError) error {
	if err == nil {
		return nil
	}
	return err
}

func toCompletionError(err error) *CompletionError {
	var ce *CompletionError
	if stderrors.As(err, &ce) {
		return ce
	}
	return &CompletionError{Body: err.Error(), Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
