package limiter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolUnknownProvider(t *testing.T) {
	p := NewPool(map[string]Limit{"openai": {RequestsPerSecond: 10, MaxConcurrent: 2}})
	_, err := p.Acquire(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestPoolCapsConcurrency(t *testing.T) {
	p := NewPool(map[string]Limit{"tts": {RequestsPerSecond: 1000, Burst: 1000, MaxConcurrent: 2}})

	var inFlight, peak atomic.Int32
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- p.Do(context.Background(), "tts", func(context.Context) error {
				n := inFlight.Add(1)
				for {
					pk := peak.Load()
					if n <= pk || peak.CompareAndSwap(pk, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if pk := peak.Load(); pk > 2 {
		t.Fatalf("peak concurrency %d exceeds cap 2", pk)
	}
}

func TestPoolRateLimits(t *testing.T) {
	// 1 token immediately, then 20/s: four calls need ~150ms.
	p := NewPool(map[string]Limit{"img": {RequestsPerSecond: 20, Burst: 1, MaxConcurrent: 4}})
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := p.Do(context.Background(), "img", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("four calls took %v, expected rate limiting to slow them", elapsed)
	}
}

func TestPoolAcquireRespectsCancellation(t *testing.T) {
	p := NewPool(map[string]Limit{"slow": {RequestsPerSecond: 0.001, Burst: 1, MaxConcurrent: 1}})
	// Drain the single burst token.
	release, err := p.Acquire(context.Background(), "slow")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx, "slow"); err == nil {
		t.Fatal("second acquire succeeded despite empty bucket and deadline")
	}
}

func shortenRetryBackoff(t *testing.T) {
	t.Helper()
	old := retryBaseInterval
	retryBaseInterval = time.Millisecond
	t.Cleanup(func() { retryBaseInterval = old })
}

func TestRetryEventuallySucceeds(t *testing.T) {
	shortenRetryBackoff(t)
	calls := 0
	err := Retry(context.Background(), zerolog.Nop(), "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUpAfterThreeAttempts(t *testing.T) {
	shortenRetryBackoff(t)
	boom := errors.New("still broken")
	calls := 0
	err := Retry(context.Background(), zerolog.Nop(), "dead", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	bad := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), zerolog.Nop(), "config", func(context.Context) error {
		calls++
		return Permanent(bad)
	})
	if !errors.Is(err, bad) {
		t.Fatalf("err = %v, want %v", err, bad)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
