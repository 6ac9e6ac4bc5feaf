package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

func charTiming(text string, step float64) ([]string, []float64, []float64) {
	chars := strings.Split(text, "")
	starts := make([]float64, len(chars))
	ends := make([]float64, len(chars))
	for i := range chars {
		starts[i] = float64(i) * step
		ends[i] = float64(i+1) * step
	}
	return chars, starts, ends
}

func TestWordsFromCharacters(t *testing.T) {
	chars, starts, ends := charTiming("hi big world", 0.1)
	words := WordsFromCharacters(chars, starts, ends)

	if len(words) != 3 {
		t.Fatalf("got %d words: %+v", len(words), words)
	}
	if words[0].Word != "hi" || words[1].Word != "big" || words[2].Word != "world" {
		t.Fatalf("words = %+v", words)
	}
	// "hi" spans chars 0..1, so start 0.0 and end 0.2.
	if words[0].Start != 0.0 || words[0].End != 0.2 {
		t.Fatalf("first word timing = %+v", words[0])
	}
	// "world" starts at char 7 (0.7s) and ends at char 11 (1.2s).
	if words[2].Start != 0.7 || words[2].End != 1.2 {
		t.Fatalf("last word timing = %+v", words[2])
	}
}

func TestWordsFromCharactersCollapsesRuns(t *testing.T) {
	chars, starts, ends := charTiming("a  b", 0.1)
	words := WordsFromCharacters(chars, starts, ends)
	if len(words) != 2 {
		t.Fatalf("double space produced %d words: %+v", len(words), words)
	}
}

func TestWordsFromCharactersEmpty(t *testing.T) {
	if words := WordsFromCharacters(nil, nil, nil); len(words) != 0 {
		t.Fatalf("got %+v", words)
	}
}

func TestSynthesize(t *testing.T) {
	audio := []byte("not really mp3")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "el-key" {
			t.Errorf("api key header = %q", got)
		}
		if !strings.Contains(r.URL.Path, "21m00Tcm4TlvDq8ikWAM") {
			t.Errorf("voice name not mapped to ID: %s", r.URL.Path)
		}
		chars, starts, ends := charTiming("hello there", 0.1)
		resp := map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString(audio),
			"alignment": map[string]any{
				"characters":                    chars,
				"character_start_times_seconds": starts,
				"character_end_times_seconds":   ends,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	pool := limiter.NewPool(map[string]limiter.Limit{
		providerName: {RequestsPerSecond: 1000, Burst: 10, MaxConcurrent: 2},
	})
	c := New("el-key", pool, zerolog.Nop())
	c.base = srv.URL

	out := filepath.Join(t.TempDir(), "narration.mp3")
	res, err := c.Synthesize(context.Background(), ports.SpeechRequest{
		Text: "hello there", Voice: "Rachel", OutPath: out,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("audio not written: %v", err)
	}
	if string(written) != string(audio) {
		t.Fatal("audio content mismatch")
	}
	if len(res.Words) != 2 || res.Words[0].Word != "hello" {
		t.Fatalf("words = %+v", res.Words)
	}
	if res.Duration != res.Words[1].End {
		t.Fatalf("duration = %v, want %v", res.Duration, res.Words[1].End)
	}
}
