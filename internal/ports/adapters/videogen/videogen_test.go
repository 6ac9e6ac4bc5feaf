package videogen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

type fakeBackend struct {
	polls     int
	readyAt   int
	videoURL  string
	failAfter int
	lastURI   string
}

func (f *fakeBackend) name() string { return "runway" }

func (f *fakeBackend) submit(_ context.Context, _ *http.Client, _ ports.VideoRequest, uri string) (string, error) {
	f.lastURI = uri
	return "task-1", nil
}

func (f *fakeBackend) poll(context.Context, *http.Client, string) (taskState, error) {
	f.polls++
	if f.failAfter > 0 && f.polls >= f.failAfter {
		return taskState{failure: "content policy"}, nil
	}
	if f.polls >= f.readyAt {
		return taskState{done: true, videoURL: f.videoURL}, nil
	}
	return taskState{}, nil
}

func testClient(b backend) *Client {
	return &Client{
		backend: b,
		http:    &http.Client{Timeout: time.Minute},
		pool: limiter.NewPool(map[string]limiter.Limit{
			"runway": {RequestsPerSecond: 1000, Burst: 10, MaxConcurrent: 2},
		}),
		log:      zerolog.Nop(),
		interval: time.Millisecond,
		timeout:  time.Second,
	}
}

func writeBaseImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "base.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateClipPollsUntilReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4 bytes"))
	}))
	defer srv.Close()

	fake := &fakeBackend{readyAt: 3, videoURL: srv.URL + "/clip.mp4"}
	c := testClient(fake)

	out := filepath.Join(t.TempDir(), "clip.mp4")
	path, err := c.GenerateClip(context.Background(), ports.VideoRequest{
		Prompt:        "slow pan",
		BaseImagePath: writeBaseImage(t),
		OutPath:       out,
	})
	if err != nil {
		t.Fatalf("GenerateClip: %v", err)
	}
	if path != out {
		t.Fatalf("path = %q", path)
	}
	if fake.polls < 3 {
		t.Fatalf("polled %d times, want at least 3", fake.polls)
	}
	if !strings.HasPrefix(fake.lastURI, "data:image/png;base64,") {
		t.Fatalf("base image not inlined: %.40s", fake.lastURI)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "mp4 bytes" {
		t.Fatalf("clip not downloaded: %v %q", err, data)
	}
}

func TestGenerateClipProviderFailure(t *testing.T) {
	fake := &fakeBackend{failAfter: 2, readyAt: 99}
	c := testClient(fake)

	_, err := c.GenerateClip(context.Background(), ports.VideoRequest{
		BaseImagePath: writeBaseImage(t),
		OutPath:       filepath.Join(t.TempDir(), "x.mp4"),
	})
	if err == nil || !strings.Contains(err.Error(), "content policy") {
		t.Fatalf("err = %v, want provider failure", err)
	}
}

func TestGenerateClipPollTimeout(t *testing.T) {
	fake := &fakeBackend{readyAt: 1 << 30}
	c := testClient(fake)
	c.timeout = 20 * time.Millisecond

	_, err := c.GenerateClip(context.Background(), ports.VideoRequest{
		BaseImagePath: writeBaseImage(t),
		OutPath:       filepath.Join(t.TempDir(), "x.mp4"),
	})
	if err == nil || !strings.Contains(err.Error(), "deadline") {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New("pika", "key", nil, zerolog.Nop()); err == nil {
		t.Fatal("unknown provider accepted")
	}
}
