package embedding

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/matsen/qarag/internal/logger"
)

const (
	// DefaultMaxAttempts is the total number of tries, the first included.
	DefaultMaxAttempts = 5

	// DefaultBaseDelay is multiplied by 2^attempt to get the wait after a failed attempt.
	DefaultBaseDelay = 300 * time.Millisecond

	// DefaultAttemptTimeout bounds a single provider call.
	DefaultAttemptTimeout = 30 * time.Second
)

// RetryPolicy decides how often and how long to wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      float64 // fraction of the delay added at random, 0..1
}

// DefaultRetryPolicy waits 600ms, 1.2s, 2.4s and 4.8s between five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the wait after failed attempt n (1-based). r is a sample in [0,1).
func (p RetryPolicy) Delay(n int, r float64) time.Duration {
	d := p.BaseDelay << n
	if p.Jitter > 0 {
		d += time.Duration(float64(d) * p.Jitter * r)
	}
	return d
}

// Clock sleeps. Tests substitute a fake that records waits.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a timer and wakes early if ctx is done.
type RealClock struct{}

// Sleep implements Clock.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client embeds text through a Provider, retrying transient failures.
type Client struct {
	provider Provider
	policy   RetryPolicy
	clock    Clock
	timeout  time.Duration
	random   func() float64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithClock sets the clock used for backoff sleeps.
func WithClock(clock Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithAttemptTimeout bounds each provider call. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a retrying client around provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		policy:   DefaultRetryPolicy(),
		clock:    RealClock{},
		timeout:  DefaultAttemptTimeout,
		random:   rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	return c
}

// ModelName returns the provider's model name.
func (c *Client) ModelName() string {
	return c.provider.ModelName()
}

// Dimensions returns the provider's expected dimensions.
func (c *Client) Dimensions() int {
	return c.provider.Dimensions()
}

// Embed returns one vector per text, in order. Transient failures are retried
// per the policy; anything else, or running out of attempts, yields a
// *ServiceError. Cancellation of ctx is returned as is.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		vecs, err := c.once(ctx, texts)
		if err == nil {
			if len(vecs) != len(texts) {
				return nil, &ServiceError{
					Attempts: attempt,
					Err:      fmt.Errorf("got %d vectors for %d inputs", len(vecs), len(texts)),
				}
			}
			return vecs, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !IsTransient(err) {
			return nil, &ServiceError{Attempts: attempt, Err: err}
		}

		lastErr = err
		if attempt == c.policy.MaxAttempts {
			break
		}

		wait := c.policy.Delay(attempt, c.random())
		if IsRateLimited(err) {
			logger.Warn("embedding rate limited (attempt %d/%d), backing off %s", attempt, c.policy.MaxAttempts, wait)
		} else {
			logger.Warn("embedding attempt %d/%d failed, retrying in %s: %v", attempt, c.policy.MaxAttempts, wait, err)
		}
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &ServiceError{Attempts: c.policy.MaxAttempts, Err: lastErr}
}

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) once(ctx context.Context, texts []string) ([][]float32, error) {
	if c.timeout <= 0 {
		return c.provider.Embed(ctx, texts)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Embed(attemptCtx, texts)
}
