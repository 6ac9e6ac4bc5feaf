// Package limiter coordinates access to external generation providers.
// Each provider gets a token-bucket rate limit plus a hard cap on
// concurrent calls, so fan-out stages can launch freely and let the pool
// pace the actual API traffic.
package limiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrUnknownProvider reports a provider name the pool was not built
// with. It is a configuration mistake, not a transient fault, and must
// not be retried.
var ErrUnknownProvider = fmt.Errorf("unknown provider")

// Limit describes one provider's budget.
type Limit struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
}

type slot struct {
	bucket *rate.Limiter
	sem    chan struct{}
}

// Pool holds per-provider limiters. Build one per run and pass it to
// every stage that talks to a provider; there is no package-level
// instance.
type Pool struct {
	slots map[string]*slot
}

func NewPool(limits map[string]Limit) *Pool {
	slots := make(map[string]*slot, len(limits))
	for name, l := range limits {
		burst := l.Burst
		if burst < 1 {
			burst = 1
		}
		concurrent := l.MaxConcurrent
		if concurrent < 1 {
			concurrent = 1
		}
		slots[name] = &slot{
			bucket: rate.NewLimiter(rate.Limit(l.RequestsPerSecond), burst),
			sem:    make(chan struct{}, concurrent),
		}
	}
	return &Pool{slots: slots}
}

// Acquire blocks until the provider has both a rate token and a free
// concurrency slot, then returns a release func. Release exactly once.
func (p *Pool) Acquire(ctx context.Context, provider string) (func(), error) {
	s, ok := p.slots[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err := s.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-s.sem }, nil
}

// Do runs fn under the provider's limits.
func (p *Pool) Do(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	release, err := p.Acquire(ctx, provider)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
