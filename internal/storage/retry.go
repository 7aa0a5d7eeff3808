package storage

import (
	"context"
	"errors"
	"time"
)

// RetryStore decorates a Store with retries for transient failures.
// This is the only retry layer in the system; callers above it treat a
// returned error as retry-exhausted and fatal for the current pass.
type RetryStore struct {
	inner      Store
	maxRetries int
	baseDelay  time.Duration
	sleepFunc  func(time.Duration)
}

// WithRetry wraps a Store with default retry settings.
func WithRetry(inner Store) *RetryStore {
	return &RetryStore{
		inner:      inner,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		sleepFunc:  time.Sleep,
	}
}

// retryable reports whether an operation failing with err is worth
// repeating. Not-found and context cancellation are definitive.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (s *RetryStore) do(ctx context.Context, op func() error) error {
	maxAttempts := s.maxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Sleep before retry (not before first attempt)
		if attempt > 0 && s.sleepFunc != nil && s.baseDelay > 0 {
			delay := s.baseDelay * time.Duration(1<<(attempt-1)) // exponential: 1x, 2x, 4x, ...
			s.sleepFunc(delay)
		}

		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// Exists reports whether an object is present at path.
func (s *RetryStore) Exists(ctx context.Context, path string) (bool, error) {
	var ok bool
	err := s.do(ctx, func() error {
		var err error
		ok, err = s.inner.Exists(ctx, path)
		return err
	})
	return ok, err
}

// Read returns the object bytes at path, or ErrNotFound.
func (s *RetryStore) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func() error {
		var err error
		data, err = s.inner.Read(ctx, path)
		return err
	})
	return data, err
}

// Write replaces the object at path.
func (s *RetryStore) Write(ctx context.Context, path string, data []byte) error {
	return s.do(ctx, func() error {
		return s.inner.Write(ctx, path, data)
	})
}
