package verifier

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/harvestpath/harvestpath/pkg/domain/verify"
)

// Defaults for ResilientVerifier.
const (
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = time.Second
	DefaultTimeout     = 30 * time.Second
)

// ResilientVerifier retries a verifier and bounds the whole call with a timeout.
// Expiry surfaces as an error, which callers treat as a failed verification.
type ResilientVerifier struct {
	inner       verify.Verifier
	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration
}

// ResilientOption configures a ResilientVerifier.
type ResilientOption func(*ResilientVerifier)

// WithMaxAttempts sets the number of attempts, including the first.
func WithMaxAttempts(n int) ResilientOption {
	return func(v *ResilientVerifier) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the initial backoff delay.
func WithRetryDelay(d time.Duration) ResilientOption {
	return func(v *ResilientVerifier) {
		if d > 0 {
			v.retryDelay = d
		}
	}
}

// WithTimeout bounds the total verification time across all attempts.
func WithTimeout(d time.Duration) ResilientOption {
	return func(v *ResilientVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func NewResilientVerifier(inner verify.Verifier, opts ...ResilientOption) *ResilientVerifier {
	v := &ResilientVerifier{
		inner:       inner,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *ResilientVerifier) ID() string {
	return v.inner.ID()
}

// Timeout returns the configured deadline.
func (v *ResilientVerifier) Timeout() time.Duration {
	return v.timeout
}

func (v *ResilientVerifier) Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error) {
	r := retry.New[*verify.Verdict](retry.Config{
		MaxAttempts:   v.maxAttempts,
		InitialDelay:  v.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[*verify.Verdict](timeout.Config{
		DefaultTimeout: v.timeout,
	})

	return t.Execute(ctx, v.timeout, func(ctx context.Context) (*verify.Verdict, error) {
		return r.Do(ctx, func(ctx context.Context) (*verify.Verdict, error) {
			return v.inner.Verify(ctx, req)
		})
	})
}
