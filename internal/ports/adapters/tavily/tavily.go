// Package tavily implements web search for the research phase.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

const (
	baseURL      = "https://api.tavily.com"
	providerName = "tavily"
)

type Client struct {
	apiKey string
	http   *http.Client
	pool   *limiter.Pool
	log    zerolog.Logger

	base string
}

var _ ports.Searcher = (*Client)(nil)

func New(apiKey string, pool *limiter.Pool, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: time.Minute},
		pool:   pool,
		log:    log,
		base:   baseURL,
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns up to maxResults hits for the query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]ports.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	body := searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	}

	var out []ports.SearchResult
	err := limiter.Retry(ctx, c.log, "tavily.search", func(ctx context.Context) error {
		return c.pool.Do(ctx, providerName, func(ctx context.Context) error {
			results, err := c.doRequest(ctx, body)
			if err != nil {
				return err
			}
			out = results
			return nil
		})
	})
	return out, err
}

func (c *Client) doRequest(ctx context.Context, body searchRequest) ([]ports.SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

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
		err := fmt.Errorf("tavily: status %d: %.200s", resp.StatusCode, data)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, limiter.Permanent(err)
		}
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}
	results := make([]ports.SearchResult, len(parsed.Results))
	for i, r := range parsed.Results {
		results[i] = ports.SearchResult{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score}
	}
	return results, nil
}
