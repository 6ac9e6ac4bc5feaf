// Package openaiimg renders stills with the OpenAI image API.
package openaiimg

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

const providerName = "openai"

type Client struct {
	api  imageAPI
	pool *limiter.Pool
	log  zerolog.Logger
}

// imageAPI is the slice of the OpenAI client this adapter uses.
type imageAPI interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

var _ ports.ImageProvider = (*Client)(nil)

func New(apiKey string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{api: openai.NewClient(apiKey), pool: pool, log: log}
}

// GenerateImage renders the prompt and writes the PNG to req.OutPath.
func (c *Client) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	prompt := req.Prompt
	if req.Style != "" {
		prompt = fmt.Sprintf("%s\n\nVisual style: %s", prompt, req.Style)
	}
	apiReq := openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		Size:           sizeFor(req.Orientation),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	}

	var b64 string
	err := limiter.Retry(ctx, c.log, "openai.image", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			resp, err := c.api.CreateImage(ctx, apiReq)
			if err != nil {
				return err
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("openai: image response has no data")
			}
			b64 = resp.Data[0].B64JSON
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("openai: decode image: %w", err)
	}
	if err := os.WriteFile(req.OutPath, data, 0o644); err != nil {
		return "", fmt.Errorf("openai: write image: %w", err)
	}
	return req.OutPath, nil
}

func sizeFor(orientation string) string {
	switch orientation {
	case "landscape":
		return openai.CreateImageSize1792x1024
	case "portrait":
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
