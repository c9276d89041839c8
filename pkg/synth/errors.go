package synth

import (
	"errors"
	"fmt"
)

// ErrEmptyText rejects synthesis requests with no text.
var ErrEmptyText = errors.New("synth: empty text")

// RateLimitError reports a user over their character budget for the
// lookback window.
type RateLimitError struct {
	Used  int64
	Limit int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("You've used up all your characters for today (%d/%d)", e.Used, e.Limit)
}

// ProviderError wraps a failed speech provider call. Nothing was persisted
// when this is returned; the request can be retried.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech provider failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
