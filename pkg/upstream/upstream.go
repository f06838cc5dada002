// Package upstream bounds calls to external HTTP providers with a per-attempt
// timeout and a small constant-backoff retry budget.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultTimeout    = 8 * time.Second
	DefaultMaxRetries = 2
	DefaultBackoff    = 200 * time.Millisecond
)

// ErrUnavailable marks failures where the provider could not be reached or
// answered with something unusable.
var ErrUnavailable = errors.New("upstream unavailable")

// Policy is the transport budget of a single logical call.
type Policy struct {
	// Timeout applies to each attempt.
	Timeout time.Duration
	// MaxRetries counts attempts after the first one.
	MaxRetries int
	Backoff    time.Duration
}

// DefaultPolicy allows three attempts of eight seconds each, 200ms apart.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
	}
}

// PolicyFromConfig maps the upstream config group onto a Policy.
func PolicyFromConfig(cfg config.UpstreamConfig) Policy {
	return Policy{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff,
	}.normalized()
}

func (p Policy) normalized() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = time.Millisecond
	}
	return p
}

// StatusError is a non-2xx HTTP answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// UnavailableError wraps the last transient failure once the budget is spent.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrUnavailable, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// Unavailable wraps err so errors.Is(err, ErrUnavailable) holds.
func Unavailable(err error) error {
	return &UnavailableError{Attempts: 1, Err: err}
}

// Retryable reports whether err is transient: transport failures, attempt
// timeouts and 5xx answers. Definitive answers are never retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// *url.Error also satisfies net.Error.
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Do runs fn under the policy. Each attempt receives its own deadline; only
// Retryable failures are retried. When the budget is exhausted the last error
// is returned wrapped in an *UnavailableError.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.normalized()
	backoff := retry.WithMaxRetries(uint64(p.MaxRetries), retry.NewConstant(p.Backoff))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		err := fn(attemptCtx)
		if err != nil && ctx.Err() == nil && Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if Retryable(err) || errors.Is(err, context.DeadlineExceeded) {
		return &UnavailableError{Attempts: attempts, Err: err}
	}
	return err
}
