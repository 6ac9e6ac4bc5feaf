package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	out, err := Map(context.Background(), items, 0, func(_ context.Context, i, v int) (string, error) {
		// Later items finish first.
		time.Sleep(time.Duration(v) * time.Millisecond)
		return fmt.Sprintf("%d:%d", i, v), nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, v := range items {
		if want := fmt.Sprintf("%d:%d", i, v); out[i] != want {
			t.Fatalf("out[%d] = %q, want %q", i, out[i], want)
		}
	}
}

func TestMapKeepsCompletedResultsOnError(t *testing.T) {
	boom := errors.New("item two failed")
	out, err := Map(context.Background(), []string{"a", "b", "c"}, 1, func(_ context.Context, i int, s string) (string, error) {
		if i == 2 {
			return "", boom
		}
		return s + "!", nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if out[0] != "a!" || out[1] != "b!" {
		t.Fatalf("completed results lost: %v", out)
	}
	if out[2] != "" {
		t.Fatalf("failed slot should stay zero, got %q", out[2])
	}
}

func TestForEachRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	err := ForEach(context.Background(), items, 3, func(context.Context, int, int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", p)
	}
}

func TestForEachCancelsSiblingsOnError(t *testing.T) {
	boom := errors.New("fail fast")
	var canceled atomic.Int32
	err := ForEach(context.Background(), []int{0, 1, 2, 3}, 0, func(ctx context.Context, i, _ int) error {
		if i == 0 {
			return boom
		}
		select {
		case <-ctx.Done():
			canceled.Add(1)
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if canceled.Load() == 0 {
		t.Fatal("siblings never observed cancellation")
	}
}
