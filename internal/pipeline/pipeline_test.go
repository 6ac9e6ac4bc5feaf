package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type testState struct {
	Steps []string `json:"steps"`
	Value int      `json:"value"`
}

func appendStep(name string) Step[testState] {
	return Step[testState]{Name: name, Fn: func(_ context.Context, s *testState) error {
		s.Steps = append(s.Steps, name)
		return nil
	}}
}

func TestRunnerRunsStepsInOrder(t *testing.T) {
	r := NewRunner[testState](zerolog.Nop())
	state := &testState{}
	steps := []Step[testState]{appendStep("one"), appendStep("two"), appendStep("three")}

	if err := r.Run(context.Background(), state, steps); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(state.Steps, ","); got != "one,two,three" {
		t.Fatalf("steps ran as %q", got)
	}
}

func TestRunnerStopsOnFailureAndKeepsPartialState(t *testing.T) {
	boom := errors.New("boom")
	steps := []Step[testState]{
		appendStep("first"),
		{Name: "explode", Fn: func(context.Context, *testState) error { return boom }},
		appendStep("never"),
	}
	state := &testState{}
	err := NewRunner[testState](zerolog.Nop()).Run(context.Background(), state, steps)

	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a StepError", err)
	}
	if se.Step != "explode" {
		t.Fatalf("failed step = %q, want explode", se.Step)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if got := strings.Join(state.Steps, ","); got != "first" {
		t.Fatalf("partial state = %q, want only the first step", got)
	}
	carried, ok := se.State.(*testState)
	if !ok {
		t.Fatalf("error state has type %T, want *testState", se.State)
	}
	if got := strings.Join(carried.Steps, ","); got != "first" {
		t.Fatalf("error carried state %q, want only the first step", got)
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step[testState]{
		{Name: "cancel", Fn: func(context.Context, *testState) error {
			cancel()
			return nil
		}},
		appendStep("after"),
	}
	state := &testState{}
	err := NewRunner[testState](zerolog.Nop()).Run(ctx, state, steps)

	var se *StepError
	if !errors.As(err, &se) || se.Step != "after" {
		t.Fatalf("expected StepError on the step after cancel, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause = %v, want context.Canceled", err)
	}
}

func TestRunnerProgressCallback(t *testing.T) {
	var seen []string
	r := NewRunner(zerolog.Nop(), WithProgress[testState](func(name string, index, total int) {
		if total != 2 {
			t.Fatalf("total = %d, want 2", total)
		}
		seen = append(seen, name)
	}))
	state := &testState{}
	if err := r.Run(context.Background(), state, []Step[testState]{appendStep("a"), appendStep("b")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(seen, ","); got != "a,b" {
		t.Fatalf("progress saw %q", got)
	}
}

func TestJSONCheckpointerWritesPerStep(t *testing.T) {
	dir := t.TempDir()
	ckpt := NewJSONCheckpointer(dir, zerolog.Nop())
	ckpt.now = func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) }

	r := NewRunner(zerolog.Nop(), WithCheckpointer[testState](ckpt))
	state := &testState{}
	steps := []Step[testState]{
		appendStep("write_script"),
		{Name: "generate_audio", Fn: func(context.Context, *testState) error { return errors.New("tts down") }},
	}
	_ = r.Run(context.Background(), state, steps)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Fatalf("got checkpoints %v, want 2", names)
	}
	wantOK := "20250301_103000_write_script.json"
	wantFail := "20250301_103000_FAILED_generate_audio.json"
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, wantOK) || !strings.Contains(joined, wantFail) {
		t.Fatalf("checkpoints %v, want %s and %s", names, wantOK, wantFail)
	}

	data, err := os.ReadFile(filepath.Join(dir, wantFail))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "write_script") {
		t.Fatalf("failure checkpoint missing earlier progress: %s", data)
	}
}

func TestCheckpointFailureDoesNotFailRun(t *testing.T) {
	// Point the checkpointer at a path that cannot be a directory.
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ckpt := NewJSONCheckpointer(filepath.Join(file, "nested"), zerolog.Nop())

	r := NewRunner(zerolog.Nop(), WithCheckpointer[testState](ckpt))
	state := &testState{}
	if err := r.Run(context.Background(), state, []Step[testState]{appendStep("only")}); err != nil {
		t.Fatalf("run failed because of checkpointing: %v", err)
	}
}
