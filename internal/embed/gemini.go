package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// Gemini embeds text with a Gemini embedding model.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGemini(client *genai.Client, model string, logger *slog.Logger) *Gemini {
	if model == "" {
		model = "text-embedding-004"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{client: client, model: model, logger: logger}
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			// the API rejects empty parts; a single space embeds as "no content"
			t = " "
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		g.logger.Error("embed.gemini.error", "model", g.model, "texts", len(texts), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("gemini embed: missing embedding %d", i)
		}
		out[i] = Normalize(append([]float32(nil), e.Values...))
	}
	g.logger.Debug("embed.gemini.ok", "model", g.model, "texts", len(texts),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}
