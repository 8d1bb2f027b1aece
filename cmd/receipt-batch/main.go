package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/relief-tracker/internal/app"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory to process receipts from (required)")
		userID   = flag.String("user", "", "user the receipts belong to (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		dbURL    = flag.String("db", "", "ledger DSN, overrides DB_URL")
		patterns = flag.String("include", "", "comma separated glob patterns relative to --dir")
	)
	flag.Parse()

	if *dir == "" || *userID == "" {
		printError("Error: --dir and --user are required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "tax-summary.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := common.LoadConfig()
	if *dbURL != "" {
		cfg.Database.DSN = *dbURL
	}

	var filter *ingest.Filter
	if *patterns != "" {
		var globs []string
		for _, g := range strings.Split(*patterns, ",") {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		f, err := ingest.NewFilter(globs)
		if err != nil {
			printError("Error: invalid --include: %v\n", err)
			os.Exit(1)
		}
		filter = f
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	proc, err := a.Pipeline(ctx)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	logger.Info("starting scan", "dir", *dir, "user_id", *userID)
	files, stats, err := ingest.ScanDirectory(ctx, *dir, filter)
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	seen := make(map[string]bool, len(files))
	var processed, failures, duplicates, deductible int
	var claimable float64
	for _, f := range files {
		if f.Err != "" {
			failures++
			continue
		}
		if seen[f.HashHex] {
			duplicates++
			continue
		}
		seen[f.HashHex] = true

		img, err := extract.ReadImage(f.Path)
		if err != nil {
			logger.Error("failed to read file", "path", f.Path, "error", err)
			failures++
			continue
		}
		res := proc.ProcessReceipt(ctx, *userID, img)
		if !res.Success {
			logger.Error("failed to process file", "path", f.Path, "error_kind", res.ErrorKind, "error", res.Error)
			failures++
			continue
		}
		n, amount := res.Deductible()
		deductible += n
		claimable += amount
		processed++
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := a.Export.TaxSummaryXLSX(ctx, *userID)
	if err != nil {
		logger.Error("failed to export ledger", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_processed", processed,
		"failures", failures,
		"duplicates", duplicates,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Receipts processed: %d\n", processed)
	fmt.Printf("- Duplicates skipped: %d\n", duplicates)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Deductible items: %d (RM%.2f claimable)\n", deductible, claimable)
	fmt.Printf("- Output: %s\n", *out)
}
