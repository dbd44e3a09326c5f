// Package captioning generates descriptive alt text for images through a
// vision model. An empty caption is a valid outcome and means the model
// declined to describe the image.
package captioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/noah-isme/canvas-alt-text-api/pkg/config"
)

// Captioner produces a caption for a JPEG payload. Implementations return
// ("", nil) when the model yields no usable text; only transport and API
// failures are errors.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
	Close() error
}

// GeminiCaptioner captions images with a Gemini vision model.
type GeminiCaptioner struct {
	client      *genai.Client
	model       string
	prompt      string
	temperature float32
	timeout     time.Duration
}

// NewGemini dials the Gemini API once; the returned captioner is safe for
// concurrent use.
func NewGemini(ctx context.Context, cfg config.CaptionConfig) (*GeminiCaptioner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("caption API key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiCaptioner{
		client:      client,
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
	}, nil
}

// Caption sends the JPEG to the model and returns the first text part of the
// first candidate. Blocked or empty responses come back as ("", nil) so the
// caller can leave the image uncaptioned without treating it as a failure.
func (g *GeminiCaptioner) Caption(ctx context.Context, imageData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", imageData),
		genai.Text(g.prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generate caption: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", nil
	}
	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(string(txt)), nil
}

// Close releases the underlying API connection.
func (g *GeminiCaptioner) Close() error {
	return g.client.Close()
}
