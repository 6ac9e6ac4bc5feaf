package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/reelforge/reelforge/internal/limiter"
	"github.com/reelforge/reelforge/internal/ports"
)

const (
	runwayBaseURL = "https://api.dev.runwayml.com/v1"
	lumaBaseURL   = "https://api.lumalabs.ai/dream-machine/v1"
	klingBaseURL  = "https://api.klingai.com/v1"
)

func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(hc, req)
}

func getJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(hc, req)
}

func doJSON(hc *http.Client, req *http.Request) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("status %d: %.200s", resp.StatusCode, data)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, limiter.Permanent(err)
		}
		return nil, err
	}
	return data, nil
}

// runwayBackend drives the Runway gen3a image-to-video API.
type runwayBackend struct {
	apiKey string
	base   string
}

func (b *runwayBackend) name() string { return "runway" }

func (b *runwayBackend) headers() map[string]string {
	return map[string]string{
		"Authorization":    "Bearer " + b.apiKey,
		"X-Runway-Version": "2024-11-06",
	}
}

func (b *runwayBackend) submit(ctx context.Context, hc *http.Client, req ports.VideoRequest, imageDataURI string) (string, error) {
	ratio := "768:1280"
	if req.Orientation == "landscape" {
		ratio = "1280:768"
	}
	duration := 5
	if req.DurationSeconds > 5 {
		duration = 10
	}
	body := map[string]any{
		"model":       "gen3a_turbo",
		"promptImage": imageDataURI,
		"promptText":  req.Prompt,
		"duration":    duration,
		"ratio":       ratio,
	}
	data, err := postJSON(ctx, hc, b.base+"/image_to_video", b.headers(), body)
	if err != nil {
		return "", fmt.Errorf("runway: submit: %w", err)
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("runway: submit returned no task id")
	}
	return parsed.ID, nil
}

func (b *runwayBackend) poll(ctx context.Context, hc *http.Client, taskID string) (taskState, error) {
	data, err := getJSON(ctx, hc, b.base+"/tasks/"+taskID, b.headers())
	if err != nil {
		return taskState{}, fmt.Errorf("runway: poll: %w", err)
	}
	var parsed struct {
		Status  string   `json:"status"`
		Output  []string `json:"output"`
		Failure string   `json:"failure"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return taskState{}, fmt.Errorf("runway: decode poll: %w", err)
	}
	switch parsed.Status {
	case "SUCCEEDED":
		if len(parsed.Output) == 0 {
			return taskState{}, fmt.Errorf("runway: task %s succeeded with no output", taskID)
		}
		return taskState{done: true, videoURL: parsed.Output[0]}, nil
	case "FAILED":
		return taskState{failure: parsed.Failure}, nil
	}
	return taskState{}, nil
}

// lumaBackend drives the Luma Dream Machine generations API.
type lumaBackend struct {
	apiKey string
	base   string
}

func (b *lumaBackend) name() string { return "luma" }

func (b *lumaBackend) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + b.apiKey}
}

func (b *lumaBackend) submit(ctx context.Context, hc *http.Client, req ports.VideoRequest, imageDataURI string) (string, error) {
	aspect := "9:16"
	if req.Orientation == "landscape" {
		aspect = "16:9"
	}
	body := map[string]any{
		"prompt":       req.Prompt,
		"aspect_ratio": aspect,
		"keyframes": map[string]any{
			"frame0": map[string]any{"type": "image", "url": imageDataURI},
		},
	}
	data, err := postJSON(ctx, hc, b.base+"/generations", b.headers(), body)
	if err != nil {
		return "", fmt.Errorf("luma: submit: %w", err)
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("luma: submit returned no generation id")
	}
	return parsed.ID, nil
}

func (b *lumaBackend) poll(ctx context.Context, hc *http.Client, taskID string) (taskState, error) {
	data, err := getJSON(ctx, hc, b.base+"/generations/"+taskID, b.headers())
	if err != nil {
		return taskState{}, fmt.Errorf("luma: poll: %w", err)
	}
	var parsed struct {
		State         string `json:"state"`
		FailureReason string `json:"failure_reason"`
		Assets        struct {
			Video string `json:"video"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return taskState{}, fmt.Errorf("luma: decode poll: %w", err)
	}
	switch parsed.State {
	case "completed":
		return taskState{done: true, videoURL: parsed.Assets.Video}, nil
	case "failed":
		return taskState{failure: parsed.FailureReason}, nil
	}
	return taskState{}, nil
}

// klingBackend drives the Kling image-to-video API.
type klingBackend struct {
	apiKey string
	base   string
}

func (b *klingBackend) name() string { return "kling" }

func (b *klingBackend) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + b.apiKey}
}

func (b *klingBackend) submit(ctx context.Context, hc *http.Client, req ports.VideoRequest, imageDataURI string) (string, error) {
	duration := "5"
	if req.DurationSeconds > 5 {
		duration = "10"
	}
	body := map[string]any{
		"model_name": "kling-v1-6",
		"image":      imageDataURI,
		"prompt":     req.Prompt,
		"duration":   duration,
	}
	data, err := postJSON(ctx, hc, b.base+"/videos/image2video", b.headers(), body)
	if err != nil {
		return "", fmt.Errorf("kling: submit: %w", err)
	}
	var parsed struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Data.TaskID == "" {
		return "", fmt.Errorf("kling: submit returned no task id")
	}
	return parsed.Data.TaskID, nil
}

func (b *klingBackend) poll(ctx context.Context, hc *http.Client, taskID string) (taskState, error) {
	data, err := getJSON(ctx, hc, b.base+"/videos/image2video/"+taskID, b.headers())
	if err != nil {
		return taskState{}, fmt.Errorf("kling: poll: %w", err)
	}
	var parsed struct {
		Data struct {
			TaskStatus    string `json:"task_status"`
			TaskStatusMsg string `json:"task_status_msg"`
			TaskResult    struct {
				Videos []struct {
					URL string `json:"url"`
				} `json:"videos"`
			} `json:"task_result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return taskState{}, fmt.Errorf("kling: decode poll: %w", err)
	}
	switch parsed.Data.TaskStatus {
	case "succeed":
		if len(parsed.Data.TaskResult.Videos) == 0 {
			return taskState{}, fmt.Errorf("kling: task %s succeeded with no videos", taskID)
		}
		return taskState{done: true, videoURL: parsed.Data.TaskResult.Videos[0].URL}, nil
	case "failed":
		return taskState{failure: parsed.Data.TaskStatusMsg}, nil
	}
	return taskState{}, nil
}
