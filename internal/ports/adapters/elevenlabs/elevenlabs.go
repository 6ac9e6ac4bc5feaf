// Package elevenlabs synthesizes narration and recovers word timing from
// the API's character-level timestamps.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	providerName = "elevenlabs"
)

// voiceIDs maps friendly voice names onto ElevenLabs voice IDs. Unknown
// names are passed through as raw IDs.
var voiceIDs = map[string]string{
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Adam":   "pNInz6obpgDQGcFmaJgB",
	"Brian":  "nPczCjzI2devNBz1zQrb",
	"Alice":  "Xb7hH8MSUJpSbSDYk0k2",
}

type Client struct {
	apiKey string
	http   *http.Client
	pool   *limiter.Pool
	log    zerolog.Logger

	base string
}

var _ ports.SpeechSynthesizer = (*Client)(nil)

func New(apiKey string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 5 * time.Minute},
		pool:   pool,
		log:    log,
		base:   baseURL,
	}
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type ttsResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   struct {
		Characters []string  `json:"characters"`
		Starts     []float64 `json:"character_start_times_seconds"`
		Ends       []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

// Synthesize renders req.Text to an MP3 at req.OutPath and returns the
// word-level timing derived from character timestamps.
func (c *Client) Synthesize(ctx context.Context, req ports.SpeechRequest) (ports.SpeechResult, error) {
	voice := req.Voice
	if id, ok := voiceIDs[voice]; ok {
		voice = id
	}
	model := req.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}

	var parsed ttsResponse
	err := limiter.Retry(ctx, c.log, "elevenlabs.synthesize", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			out, err := c.doRequest(ctx, voice, ttsRequest{Text: req.Text, ModelID: model})
			if err != nil {
				return err
			}
			parsed = out
			return nil
		})
	})
	if err != nil {
		return ports.SpeechResult{}, err
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.AudioBase64)
	if err != nil {
		return ports.SpeechResult{}, fmt.Errorf("elevenlabs: decode audio: %w", err)
	}
	if err := os.WriteFile(req.OutPath, audio, 0o644); err != nil {
		return ports.SpeechResult{}, fmt.Errorf("elevenlabs: write audio: %w", err)
	}

	words := WordsFromCharacters(parsed.Alignment.Characters, parsed.Alignment.Starts, parsed.Alignment.Ends)
	var duration float64
	if len(words) > 0 {
		duration = words[len(words)-1].End
	}
	return ports.SpeechResult{AudioPath: req.OutPath, Duration: duration, Words: words}, nil
}

func (c *Client) doRequest(ctx context.Context, voiceID string, body ttsRequest) (ttsResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return ttsResponse{}, err
	}
	url := fmt.Sprintf("%s/text-to-speech/%s/with-timestamps", c.base, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ttsResponse{}, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ttsResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ttsResponse{}, err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("elevenlabs: status %d: %.200s", resp.StatusCode, data)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return ttsResponse{}, limiter.Permanent(err)
		}
		return ttsResponse{}, err
	}

	var parsed ttsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ttsResponse{}, fmt.Errorf("elevenlabs: decode response: %w", err)
	}
	return parsed, nil
}

// WordsFromCharacters folds per-character timestamps into words. Any
// whitespace character closes the current word; the word's start is its
// first character's start and its end is its last character's end.
func WordsFromCharacters(chars []string, starts, ends []float64) []types.WordAlignment {
	n := len(chars)
	if len(starts) < n {
		n = len(starts)
	}
	if len(ends) < n {
		n = len(ends)
	}

	var words []types.WordAlignment
	var buf bytes.Buffer
	var wordStart, wordEnd float64
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		words = append(words, types.WordAlignment{Word: buf.String(), Start: wordStart, End: wordEnd})
		buf.Reset()
	}
	for i := 0; i < n; i++ {
		ch := chars[i]
		if ch == " " || ch == "\n" || ch == "\t" {
			flush()
			continue
		}
		if buf.Len() == 0 {
			wordStart = starts[i]
		}
		wordEnd = ends[i]
		buf.WriteString(ch)
	}
	flush()
	return words
}
