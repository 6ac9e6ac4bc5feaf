// Package videogen animates still images into short clips. Runway, Luma
// and Kling all follow the same protocol shape: submit a job with a
// base64 base image, poll until it settles, download the result. The
// providers differ only in endpoints and payloads, so each is a small
// backend behind one shared client.
package videogen

import (
	"context"
	"encoding/base64"
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
	pollInterval = 5 * time.Second
	pollTimeout  = 5 * time.Minute
)

// taskState is the provider-neutral view of a polled job.
type taskState struct {
	done     bool
	videoURL string
	failure  string
}

// backend is one provider's wire protocol.
type backend interface {
	name() string
	submit(ctx context.Context, hc *http.Client, req ports.VideoRequest, imageDataURI string) (taskID string, err error)
	poll(ctx context.Context, hc *http.Client, taskID string) (taskState, error)
}

// Client drives a backend under the shared pool.
type Client struct {
	backend backend
	http    *http.Client
	pool    *limiter.Pool
	log     zerolog.Logger

	interval time.Duration
	timeout  time.Duration
}

var _ ports.VideoProvider = (*Client)(nil)

// New builds a video client for the named provider: runway, luma or
// kling.
func New(provider, apiKey string, pool *limiter.Pool, log zerolog.Logger) (*Client, error) {
	var b backend
	switch provider {
	case "runway":
		b = &runwayBackend{apiKey: apiKey, base: runwayBaseURL}
	case "luma":
		b = &lumaBackend{apiKey: apiKey, base: lumaBaseURL}
	case "kling":
		b = &klingBackend{apiKey: apiKey, base: klingBaseURL}
	default:
		return nil, fmt.Errorf("videogen: unknown provider %q", provider)
	}
	return &Client{
		backend:  b,
		http:     &http.Client{Timeout: 2 * time.Minute},
		pool:     pool,
		log:      log,
		interval: pollInterval,
		timeout:  pollTimeout,
	}, nil
}

// GenerateClip submits the animation job and polls it to completion.
// Submission is retried; polling is not, since a submitted job either
// finishes or fails on the provider side.
func (c *Client) GenerateClip(ctx context.Context, req ports.VideoRequest) (string, error) {
	dataURI, err := imageDataURI(req.BaseImagePath)
	if err != nil {
		return "", err
	}

	name := c.backend.name()
	var taskID string
	err = limiter.Retry(ctx, c.log, name+".submit", func(ctx context.Context) error {
		return c.pool.Do(ctx, name, func(ctx context.Context) error {
			id, err := c.backend.submit(ctx, c.http, req, dataURI)
			if err != nil {
				return err
			}
			taskID = id
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	c.log.Info().Str("provider", name).Str("task", taskID).Msg("video job submitted")

	url, err := c.waitForVideo(ctx, taskID)
	if err != nil {
		return "", err
	}
	if err := c.download(ctx, url, req.OutPath); err != nil {
		return "", err
	}
	return req.OutPath, nil
}

func (c *Client) waitForVideo(ctx context.Context, taskID string) (string, error) {
	name := c.backend.name()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%s: task %s: %w", name, taskID, ctx.Err())
		case <-ticker.C:
		}
		state, err := c.backend.poll(ctx, c.http, taskID)
		if err != nil {
			return "", err
		}
		if state.failure != "" {
			return "", fmt.Errorf("%s: task %s failed: %s", name, taskID, state.failure)
		}
		if state.done {
			return state.videoURL, nil
		}
		c.log.Debug().Str("provider", name).Str("task", taskID).Msg("video job pending")
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
		return fmt.Errorf("%s: download status %d", c.backend.name(), resp.StatusCode)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

// imageDataURI inlines the base image as a data URI, the form all three
// providers accept for image-to-video.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("videogen: read base image: %w", err)
	}
	mime := "image/png"
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
