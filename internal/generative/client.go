// Package generative talks to the hosted image models that produce custom app
// icons and attention heatmaps, and gates those calls per session.
package generative

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koios/lockscreenr/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrGenerationFailed wraps every upstream failure
	ErrGenerationFailed = errors.New("generation failed")
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("generator API key is not configured")
)

const (
	iconPrompt = "You are an expert app icon designer. Please generate an app icon based on the following description: %s. " +
		"The app icon should be visually appealing and suitable for use in a mobile app notification. Return the image as a data URI."

	heatmapPrompt = `You are an AI that analyzes a lock screen image and generates a heatmap
overlaying the areas where a user's focus is most likely to be.

Given the lock screen image, generate a heatmap that highlights areas
of interest, such as notification content, the clock, and common unlock areas.

Return only the generated image. Do not add any other text or commentary.`

	maxResponseBytes = 32 << 20
)

// IconRequest asks for an app icon matching Description
type IconRequest struct {
	Description string `json:"description" validate:"required"`
}

// IconResult carries the generated icon
type IconResult struct {
	IconDataURI string `json:"iconDataUri"`
}

// HeatmapRequest carries the lock screen image to analyze
type HeatmapRequest struct {
	PhotoDataURI string `json:"photoDataUri" validate:"required"`
}

// HeatmapResult carries the generated overlay
type HeatmapResult struct {
	HeatmapDataURI string `json:"heatmapDataUri"`
}

// Generator produces images from prompts
type Generator interface {
	GenerateIcon(ctx context.Context, req IconRequest) (IconResult, error)
	GenerateHeatmap(ctx context.Context, req HeatmapRequest) (HeatmapResult, error)
}

// Client calls the Generative Language REST API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	iconModel    string
	heatmapModel string
	logger       *zap.Logger
}

// NewClient creates a client from generator settings
func NewClient(cfg config.GeneratorConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		iconModel:    cfg.IconModel,
		heatmapModel: cfg.HeatmapModel,
		logger:       logger,
	}
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateIcon renders a square icon with the image model
func (c *Client) GenerateIcon(ctx context.Context, req IconRequest) (IconResult, error) {
	payload := predictRequest{
		Instances:  []predictInstance{{Prompt: fmt.Sprintf(iconPrompt, req.Description)}},
		Parameters: predictParameters{SampleCount: 1, AspectRatio: "1:1"},
	}

	var resp predictResponse
	if err := c.call(ctx, c.iconModel, "predict", payload, &resp); err != nil {
		return IconResult{}, fmt.Errorf("failed to generate app icon: %w", err)
	}

	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		mime := p.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return IconResult{IconDataURI: "data:" + mime + ";base64," + p.BytesBase64Encoded}, nil
	}

	return IconResult{}, fmt.Errorf("%w: failed to generate app icon: no image returned", ErrGenerationFailed)
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateHeatmap asks the multimodal model for an attention overlay of the photo
func (c *Client) GenerateHeatmap(ctx context.Context, req HeatmapRequest) (HeatmapResult, error) {
	photo, err := ParseDataURI(req.PhotoDataURI)
	if err != nil {
		return HeatmapResult{}, fmt.Errorf("%w: failed to generate heatmap: %v", ErrGenerationFailed, err)
	}

	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: photo.MIME, Data: base64.StdEncoding.EncodeToString(photo.Data)}},
				{Text: heatmapPrompt},
			},
		}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var resp generateContentResponse
	if err := c.call(ctx, c.heatmapModel, "generateContent", payload, &resp); err != nil {
		return HeatmapResult{}, fmt.Errorf("failed to generate heatmap: %w", err)
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return HeatmapResult{HeatmapDataURI: "data:" + p.InlineData.MimeType + ";base64," + p.InlineData.Data}, nil
			}
		}
	}

	return HeatmapResult{}, fmt.Errorf("%w: failed to generate heatmap: no image returned", ErrGenerationFailed)
}

// call POSTs payload to models/{model}:{method} and decodes the response into out
func (c *Client) call(ctx context.Context, model, method string, payload, out interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, ErrNotConfigured)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrGenerationFailed, err)
	}

	c.logger.Debug("Model call finished",
		zap.String("model", model),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: model returned %d: %s", ErrGenerationFailed, resp.StatusCode, truncate(string(data), 256))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", ErrGenerationFailed, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
