package subtitles

import (
	"strings"
	"testing"

	"github.com/reelforge/reelforge/internal/types"
)

func TestTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:        "00:00:00,000",
		1.5:      "00:00:01,500",
		61.25:    "00:01:01,250",
		3661.007: "01:01:01,007",
	}
	for in, want := range cases {
		if got := timestamp(in); got != want {
			t.Fatalf("timestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildGroupsWords(t *testing.T) {
	var words []types.WordAlignment
	for i, w := range strings.Fields("one two three four five six") {
		start := float64(i)
		words = append(words, types.WordAlignment{Word: w, Start: start, End: start + 0.8})
	}

	srt := Build(words)

	blocks := strings.Split(strings.TrimSpace(srt), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("got %d cues, want 2:\n%s", len(blocks), srt)
	}
	if !strings.Contains(blocks[0], "one two three four") {
		t.Fatalf("first cue = %q", blocks[0])
	}
	if !strings.Contains(blocks[0], "00:00:00,000 --> 00:00:03,800") {
		t.Fatalf("first cue timing wrong: %q", blocks[0])
	}
	if !strings.Contains(blocks[1], "five six") {
		t.Fatalf("second cue = %q", blocks[1])
	}
	if !strings.HasPrefix(blocks[1], "2\n") {
		t.Fatalf("second cue not numbered: %q", blocks[1])
	}
}

func TestBuildEmpty(t *testing.T) {
	if got := Build(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
