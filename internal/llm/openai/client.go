package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
)

const systemPrompt = "You are a Malaysian tax assistant. Answer only from the LHDN rules you are given."

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one prompt as a user message and returns the first choice's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Debug("llm.generate.start", "req_id", rid, "model", c.cfg.Model, "prompt_len", len(prompt))

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}
	out, err := c.complete(ctx, body)
	if err != nil {
		c.logger.Error("llm.generate.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.logger.Info("llm.generate.ok", "req_id", rid, "model", c.cfg.Model, "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// Extract sends the receipt image as a data URL and asks for a JSON object.
func (c *Client) Extract(ctx context.Context, img extract.Image) (string, error) {
	if len(img.Bytes) == 0 {
		return "", llm.NewFatalError(errors.New("empty image"))
	}
	rid := uuid.New().String()
	start := time.Now()

	dataURL := "data:" + img.MIME() + ";base64," + base64.StdEncoding.EncodeToString(img.Bytes)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": extract.Prompt},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}},
		},
	}
	out, err := c.complete(ctx, body)
	if err != nil {
		c.logger.Error("ocr.vision.error", "req_id", rid, "file", img.Filename, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.logger.Info("ocr.vision.ok", "req_id", rid, "file", img.Filename, "bytes", len(img.Bytes), "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) complete(ctx context.Context, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", llm.NewFatalError(fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 {
		return "", llm.NewFatalError(errors.New("no choices in openai response"))
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
