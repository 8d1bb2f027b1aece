package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
	"github.com/joseph-ayodele/relief-tracker/internal/ocr"
)

// ExtractStage calls the vision collaborator and normalizes what it returns.
type ExtractStage struct {
	extractor extract.Extractor
	timeout   time.Duration
	logger    *slog.Logger
}

func NewExtractStage(extractor extract.Extractor, timeout time.Duration, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExtractStage{extractor: extractor, timeout: timeout, logger: logger}
}

// Extract runs the OCR call under its own deadline. A deadline hit is transient.
func (s *ExtractStage) Extract(ctx context.Context, img extract.Image) (string, error) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.extractor.Extract(cctx, img)
	if err != nil {
		if llm.IsTimeout(err) && !llm.IsTransient(err) {
			err = llm.NewTransientError(fmt.Errorf("ocr timeout after %s: %w", s.timeout, err))
		}
		s.logger.Error("pipeline.extract.error",
			"extractor", s.extractor.Name(), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	s.logger.Debug("pipeline.extract.ok",
		"extractor", s.extractor.Name(), "chars", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}

// Normalize turns raw OCR text into a canonical receipt.
func (s *ExtractStage) Normalize(raw string) (*ocr.Receipt, error) {
	rec, err := ocr.NormalizeText(raw)
	if err != nil {
		s.logger.Warn("pipeline.normalize.failed", "error", err)
		return nil, err
	}
	for _, d := range rec.Defaulted {
		s.logger.Warn("pipeline.normalize.defaulted", "field", d.Field, "line", d.Line, "raw", d.Raw)
	}
	s.logger.Debug("pipeline.normalize.ok", "kind", rec.Kind.String(), "items", len(rec.Items))
	return rec, nil
}
