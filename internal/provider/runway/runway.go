// Package runway implements the synchronous video model on the RunwayML HTTP API.
package runway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cyberjungle/internal/service/ai"
)

const (
	DefaultBaseURL    = "https://api.runwayml.com"
	DefaultResolution = "720p"
	DefaultDuration   = 5
	generationsPath   = "/v1/video/generations"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Resolution string
	Duration   int
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Resolution == "" {
		cfg.Resolution = DefaultResolution
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type generationRequest struct {
	Prompt     string `json:"prompt"`
	Image      string `json:"image,omitempty"`
	Resolution string `json:"resolution"`
	Duration   int    `json:"duration"`
}

type generationResponse struct {
	Output []struct {
		URL string `json:"url"`
	} `json:"output"`
}

func (c *Client) GenerateVideo(ctx context.Context, req ai.VideoRequest) (*ai.VideoAsset, error) {
	body := generationRequest{
		Prompt:     req.Prompt,
		Resolution: c.cfg.Resolution,
		Duration:   c.cfg.Duration,
	}
	if req.Image != nil {
		body.Image = req.Image.String()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal runway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+generationsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: runway request: %w", ai.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: runway %s", ai.ErrRateLimited, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: runway %s: %s", ai.ErrProvider, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var result generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode runway response: %w", ai.ErrProvider, err)
	}
	if len(result.Output) == 0 || result.Output[0].URL == "" {
		return nil, fmt.Errorf("%w: runway response has no output url", ai.ErrNotFound)
	}
	return &ai.VideoAsset{URI: result.Output[0].URL}, nil
}
