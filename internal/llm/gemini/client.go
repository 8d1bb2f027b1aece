// Package gemini adapts the Gemini API to the generator and vision extractor contracts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
)

type Config struct {
	APIKey      string
	Model       string // e.g. "gemini-2.5-flash"
	BaseURL     string // optional override, used by tests
	Temperature float32
}

// Client implements llm.Generator and extract.Extractor.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewGenAIClient builds the underlying SDK client; it is also used by the Gemini embedder.
func NewGenAIClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return c, nil
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	c, err := NewGenAIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewFromClient(c, cfg.Model, cfg.Temperature, logger), nil
}

func NewFromClient(c *genai.Client, model string, temperature float32, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{client: c, model: model, temperature: temperature, logger: logger}
}

func (c *Client) Name() string { return "gemini:" + c.model }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	temp := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		err = classify(err)
		c.logger.Error("llm.generate.error", "model", c.model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	out := resp.Text()
	c.logger.Info("llm.generate.ok", "model", c.model, "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) Extract(ctx context.Context, img extract.Image) (string, error) {
	if len(img.Bytes) == 0 {
		return "", llm.NewFatalError(errors.New("empty image"))
	}
	start := time.Now()
	parts := []*genai.Part{
		genai.NewPartFromText(extract.Prompt),
		genai.NewPartFromBytes(img.Bytes, img.MIME()),
	}
	temp := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: &temp, ResponseMIMEType: "application/json"},
	)
	if err != nil {
		err = classify(err)
		c.logger.Error("ocr.vision.error", "model", c.model, "file", img.Filename, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	out := resp.Text()
	c.logger.Info("ocr.vision.ok", "model", c.model, "file", img.Filename, "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// classify maps SDK errors onto llm.TransientError / llm.FatalError.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyHTTPStatus(apiErr.Code, []byte(apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.ClassifyHTTPStatus(apiErrPtr.Code, []byte(apiErrPtr.Message))
	}
	return llm.ClassifyTransportError(err)
}
