package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

func testPool() *limiter.Pool {
	return limiter.NewPool(map[string]limiter.Limit{
		providerName: {RequestsPerSecond: 1000, Burst: 1000, MaxConcurrent: 8},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key", "test-model", testPool(), zerolog.Nop())
	c.base = srv.URL
	return c
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "a hook"}}},
		})
	})

	got, err := c.Generate(context.Background(), ports.GenRequest{System: "sys", Prompt: "write a hook"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "a hook" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateJSONStripsFences(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Content: "```json\n{\"goal\": \"inform\"}\n```"}}},
		})
	})

	data, err := c.GenerateJSON(context.Background(), ports.GenRequest{Prompt: "goal"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	var parsed struct {
		Goal string `json:"goal"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output not clean JSON: %v (%s)", err, data)
	}
	if parsed.Goal != "inform" {
		t.Fatalf("goal = %q", parsed.Goal)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad model"}}`, http.StatusBadRequest)
	})

	_, err := c.Generate(context.Background(), ports.GenRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("4xx was retried %d times", n)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      "{\"a\":1}",
		"```json\n{\"a\":1}\n```":        "{\"a\":1}",
		"```\n[1,2]\n```":                "[1,2]",
		"  {\"pad\": true}  ":            "{\"pad\": true}",
		"```json\n{\"nested\":\"`\"}```": "{\"nested\":\"`\"}",
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Fatalf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
