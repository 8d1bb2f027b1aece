package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/relief-tracker/internal/app"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
)

// runocr sends one receipt image to the vision model and prints the normalized receipt.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <receipt-image>")
		os.Exit(2)
	}
	_ = godotenv.Load()

	img, err := extract.ReadImage(os.Args[1])
	if err != nil {
		logger.Error("read image", "path", os.Args[1], "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := common.LoadConfig()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("init", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ex, err := a.Extractor(ctx)
	if err != nil {
		logger.Error("vision collaborator", "error", err)
		os.Exit(1)
	}
	stage := pipeline.NewExtractStage(ex, cfg.Vision.Timeout, logger)

	start := time.Now()
	raw, err := stage.Extract(ctx, img)
	if err != nil {
		logger.Error("text extraction failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	receipt, err := stage.Normalize(raw)
	if err != nil {
		logger.Error("normalization failed", "error", err, "raw_bytes", len(raw))
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"extractor", ex.Name(),
		"items", len(receipt.Items),
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(receipt); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
