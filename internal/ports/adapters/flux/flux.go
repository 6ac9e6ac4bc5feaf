// Package flux renders stills with the Black Forest Labs API. Unlike
// the other image providers it is asynchronous: a render is submitted,
// polled until ready, then downloaded.
package flux

import (
	"bytes"
	"context"
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
	baseURL      = "https://api.bfl.ml/v1"
	providerName = "flux"

	pollInterval = 2 * time.Second
	pollTimeout  = 3 * time.Minute
)

type Client struct {
	apiKey string
	http   *http.Client
	pool   *limiter.Pool
	log    zerolog.Logger

	base     string
	interval time.Duration
}

var _ ports.ImageProvider = (*Client)(nil)

func New(apiKey string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 2 * time.Minute},
		pool:     pool,
		log:      log,
		base:     baseURL,
		interval: pollInterval,
	}
}

type submitRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type resultResponse struct {
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// GenerateImage submits the render, polls until ready, downloads the
// sample to req.OutPath. Only the submit call is retried; a poll that
// reports failure is final.
func (c *Client) GenerateImage(ctx context.Context, req ports.ImageRequest) (string, error) {
	prompt := req.Prompt
	if req.Style != "" {
		prompt = fmt.Sprintf("%s\n\nVisual style: %s", prompt, req.Style)
	}
	w, h := dimensionsFor(req.Orientation)

	var id string
	err := limiter.Retry(ctx, c.log, "flux.submit", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			got, err := c.submit(ctx, submitRequest{Prompt: prompt, Width: w, Height: h})
			if err != nil {
				return err
			}
			id = got
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	sampleURL, err := c.waitForResult(ctx, id)
	if err != nil {
		return "", err
	}
	if err := c.download(ctx, sampleURL, req.OutPath); err != nil {
		return "", err
	}
	return req.OutPath, nil
}

func (c *Client) submit(ctx context.Context, body submitRequest) (string, error) {
	data, err := c.post(ctx, c.base+"/flux-pro-1.1", body)
	if err != nil {
		return "", err
	}
	var parsed submitResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("flux: decode submit response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("flux: submit returned no id")
	}
	return parsed.ID, nil
}

func (c *Client) waitForResult(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("flux: render %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
		data, err := c.get(ctx, fmt.Sprintf("%s/get_result?id=%s", c.base, id))
		if err != nil {
			return "", err
		}
		var parsed resultResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", fmt.Errorf("flux: decode result: %w", err)
		}
		switch parsed.Status {
		case "Ready":
			return parsed.Result.Sample, nil
		case "Pending", "Processing", "Queued":
			c.log.Debug().Str("id", id).Str("status", parsed.Status).Msg("flux render pending")
		default:
			return "", fmt.Errorf("flux: render %s ended with status %q", id, parsed.Status)
		}
	}
}

func (c *Client) download(ctx context.Context, url, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flux: download status %d", resp.StatusCode)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-key", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("flux: status %d: %.200s", resp.StatusCode, data)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, limiter.Permanent(err)
		}
		return nil, err
	}
	return data, nil
}

func dimensionsFor(orientation string) (int, int) {
	switch orientation {
	case "landscape":
		return 1344, 768
	case "portrait":
		return 768, 1344
	default:
		return 1024, 1024
	}
}
