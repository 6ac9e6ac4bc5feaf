package ffmpeg

import (
	"strings"
	"testing"
)

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\work\subs.srt`)
	if !strings.Contains(got, `\:`) {
		t.Fatalf("colon not escaped: %q", got)
	}
	if !strings.HasPrefix(got, "'") || !strings.HasSuffix(got, "'") {
		t.Fatalf("path not quoted: %q", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(2.5); got != "2.500" {
		t.Fatalf("got %q", got)
	}
	if got := formatSeconds(0.1); got != "0.100" {
		t.Fatalf("got %q", got)
	}
}

func TestResolutionFor(t *testing.T) {
	if w, h := resolutionFor("portrait"); w != 1080 || h != 1920 {
		t.Fatalf("portrait = %dx%d", w, h)
	}
	if w, h := resolutionFor("landscape"); w != 1920 || h != 1080 {
		t.Fatalf("landscape = %dx%d", w, h)
	}
	if w, h := resolutionFor(""); w != 1080 || h != 1920 {
		t.Fatalf("default = %dx%d", w, h)
	}
}

func TestMotionExpr(t *testing.T) {
	cases := map[string]string{
		"":          "zoom+",
		"zoom_in":   "zoom+",
		"zoom_out":  "zoom-",
		"pan_left":  "(1-on/90)",
		"pan_right": "*on/90",
		"ken_burns": "(ih-ih/zoom)",
	}
	for motion, want := range cases {
		got := motionExpr(motion, 90)
		if !strings.Contains(got, want) {
			t.Fatalf("motionExpr(%q) = %q, want substring %q", motion, got, want)
		}
	}
}

func TestTail(t *testing.T) {
	long := strings.Repeat("x", 500) + "END"
	got := tail([]byte(long), 10)
	if !strings.HasSuffix(got, "END") {
		t.Fatalf("tail dropped the end: %q", got)
	}
	if len(got) > 13 {
		t.Fatalf("tail too long: %d", len(got))
	}
	if got := tail([]byte(" short \n"), 100); got != "short" {
		t.Fatalf("got %q", got)
	}
}
