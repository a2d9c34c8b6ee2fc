package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is wrapped by every transient backend failure.
var ErrUnavailable = errors.New("cache backend unavailable")

// BackendError is a failed operation against a remote cache backend.
type BackendError struct {
	Op  string // ping, get, set or del
	Key string
	Err error
	// Transient reports whether repeating the operation may succeed.
	Transient bool
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the backend error, and ErrUnavailable for transient ones.
func (e *BackendError) Unwrap() []error {
	if e.Transient {
		return []error{e.Err, ErrUnavailable}
	}
	return []error{e.Err}
}

// IsTransient reports whether err is a backend failure worth retrying.
func IsTransient(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Transient
}

// transientReplies are Redis error reply prefixes for conditions the server
// recovers from on its own.
var transientReplies = []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN", "READONLY"}

// redisError classifies a go-redis error for operation op on key. Context
// errors pass through unchanged. Error replies are permanent unless the server
// reports a recoverable state; anything else failed on the way to the server
// and is transient.
func redisError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	be := &BackendError{Op: op, Key: key, Err: err, Transient: true}
	var reply redis.Error
	switch {
	case errors.As(err, &reply):
		be.Transient = false
		msg := reply.Error()
		for _, p := range transientReplies {
			if strings.HasPrefix(msg, p) {
				be.Transient = true
				break
			}
		}
	case errors.Is(err, redis.ErrClosed):
		be.Transient = false
	}
	return be
}

// RetryPolicy repeats operations that fail with transient backend errors,
// doubling the delay after each attempt.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy is used when connecting to Redis.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 250 * time.Millisecond, MaxDelay: 2 * time.Second}

// Do calls fn until it succeeds, fails permanently, runs out of attempts or
// ctx ends. It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
