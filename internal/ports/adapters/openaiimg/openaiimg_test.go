package openaiimg

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

type fakeImageAPI struct {
	lastReq openai.ImageRequest
	resp    openai.ImageResponse
	err     error
}

func (f *fakeImageAPI) CreateImage(_ context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func testPool() *limiter.Pool {
	return limiter.NewPool(map[string]limiter.Limit{
		providerName: {RequestsPerSecond: 1000, Burst: 10, MaxConcurrent: 2},
	})
}

func TestGenerateImage(t *testing.T) {
	png := []byte("fake png bytes")
	fake := &fakeImageAPI{resp: openai.ImageResponse{
		Data: []openai.ImageResponseDataInner{{B64JSON: base64.StdEncoding.EncodeToString(png)}},
	}}
	c := &Client{api: fake, pool: testPool(), log: zerolog.Nop()}

	out := filepath.Join(t.TempDir(), "shot.png")
	path, err := c.GenerateImage(context.Background(), ports.ImageRequest{
		Prompt:      "a misty forest",
		Style:       "watercolor",
		Orientation: "portrait",
		OutPath:     out,
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if path != out {
		t.Fatalf("path = %q, want %q", path, out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(data) != string(png) {
		t.Fatal("image content mismatch")
	}
	if fake.lastReq.Size != openai.CreateImageSize1024x1792 {
		t.Fatalf("portrait mapped to size %q", fake.lastReq.Size)
	}
	if !strings.Contains(fake.lastReq.Prompt, "watercolor") {
		t.Fatalf("style not folded into prompt: %q", fake.lastReq.Prompt)
	}
}

func TestSizeFor(t *testing.T) {
	if got := sizeFor("landscape"); got != openai.CreateImageSize1792x1024 {
		t.Fatalf("landscape = %q", got)
	}
	if got := sizeFor(""); got != openai.CreateImageSize1024x1024 {
		t.Fatalf("default = %q", got)
	}
}
