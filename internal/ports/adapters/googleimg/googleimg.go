// Package googleimg renders stills with the Imagen API.
package googleimg

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
)

const (
	baseURL      = "https://generativelanguage.googleapis.com/v1beta"
	model        = "imagen-3.0-generate-002"
	providerName = "google"
)

type Client struct {
	apiKey string
	http   *http.Client
	pool   *limiter.Pool
	log    zerolog.Logger

	base string
}

var _ ports.ImageProvider = (*Client)(nil)

func New(apiKey string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 2 * time.Minute},
		pool:   pool,
		log:    log,
		base:   baseURL,
	}
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters params     `json:"parameters"`
}

type instance struct {
	Prompt string `json:"prompt"`
}

type params struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
}

// GenerateImage renders the prompt and writes the image to req.OutPath.
func (c *Client) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	prompt := req.Prompt
	if req.Style != "" {
		prompt = fmt.Sprintf("%s\n\nVisual style: %s", prompt, req.Style)
	}
	body := predictRequest{
		Instances:  []instance{{Prompt: prompt}},
		Parameters: params{SampleCount: 1, AspectRatio: aspectFor(req.Orientation)},
	}

	var b64 string
	err := limiter.Retry(ctx, c.log, "google.image", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			out, err := c.doRequest(ctx, body)
			if err != nil {
				return err
			}
			b64 = out
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("googleimg: decode image: %w", err)
	}
	if err := os.WriteFile(req.OutPath, data, 0o644); err != nil {
		return "", fmt.Errorf("googleimg: write image: %w", err)
	}
	return req.OutPath, nil
}

func (c *Client) doRequest(ctx context.Context, body predictRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:predict?key=%s", c.base, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("googleimg: status %d: %.200s", resp.StatusCode, data)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", limiter.Permanent(err)
		}
		return "", err
	}

	var parsed predictResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("googleimg: decode response: %w", err)
	}
	if len(parsed.Predictions) == 0 {
		return "", fmt.Errorf("googleimg: empty predictions")
	}
	return parsed.Predictions[0].BytesBase64Encoded, nil
}

func aspectFor(orientation string) string {
	switch orientation {
	case "landscape":
		return "16:9"
	case "portrait":
		return "9:16"
	default:
		return "1:1"
	}
}
