// Package app assembles the ledger, rule index and receipt pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/relief-tracker/internal/archive"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/embed"
	"github.com/joseph-ayodele/relief-tracker/internal/entity"
	"github.com/joseph-ayodele/relief-tracker/internal/export"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
	"github.com/joseph-ayodele/relief-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/relief-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/relief-tracker/internal/matcher"
	"github.com/joseph-ayodele/relief-tracker/internal/metrics"
	"github.com/joseph-ayodele/relief-tracker/internal/notify"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
	"github.com/joseph-ayodele/relief-tracker/internal/relief"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
	"github.com/joseph-ayodele/relief-tracker/internal/server"
)

// App owns the long lived collaborators. Close releases them in reverse order.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Ledger    repository.ExpenseRepository
	Retriever *rules.Retriever
	Relief    *relief.Service
	Export    *export.Service
	Registry  *prometheus.Registry
	Metrics   *metrics.Pipeline

	embedder embed.Embedder
	genai    *genai.Client
	closers  []func() error
}

// New opens the ledger and loads the rule index. No model collaborator is contacted.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateLedger(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mx, err := metrics.NewPipeline(a.Registry)
	if err != nil {
		return nil, err
	}
	a.Metrics = mx

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error { db.Close(logger); return nil })
	a.Ledger = repository.NewExpenseRepository(db.Driver, logger)

	if a.embedder, err = a.newEmbedder(ctx); err != nil {
		a.Close()
		return nil, err
	}
	ix, err := a.loadIndex(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Retriever = rules.NewRetriever(ix, logger)
	a.Relief = relief.NewService(a.Ledger, a.Retriever, logger)
	a.Export = export.NewService(a.Relief, logger)
	return a, nil
}

func (a *App) genaiClient(ctx context.Context) (*genai.Client, error) {
	if a.genai != nil {
		return a.genai, nil
	}
	c, err := gemini.NewGenAIClient(ctx, gemini.Config{APIKey: a.Config.LLM.GeminiAPIKey})
	if err != nil {
		return nil, err
	}
	a.genai = c
	return c, nil
}

func (a *App) newEmbedder(ctx context.Context) (embed.Embedder, error) {
	if a.Config.Embedding.Provider != "gemini" {
		return embed.NewLexical(), nil
	}
	c, err := a.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	return embed.NewGemini(c, a.Config.Embedding.Model, a.Logger), nil
}

// Rules returns the configured knowledge base: the rule file when set, otherwise the built-in rules.
func (a *App) Rules() ([]entity.Rule, error) {
	if a.Config.Rules.File == "" {
		return rules.DefaultRules(), nil
	}
	return rules.LoadFile(a.Config.Rules.File)
}

// loadIndex prefers a persisted snapshot and falls back to building from the rules.
func (a *App) loadIndex(ctx context.Context) (*rules.Index, error) {
	if path := a.Config.Rules.Snapshot; path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			ix, err := rules.LoadSnapshot(f, a.embedder)
			if err != nil {
				return nil, fmt.Errorf("load snapshot %s: %w", path, err)
			}
			a.Logger.Info("rules.snapshot.loaded", "path", path, "rules", ix.Len(), "embedder", ix.EmbedderName())
			return ix, nil
		case errors.Is(err, os.ErrNotExist):
			a.Logger.Warn("rules.snapshot.missing", "path", path)
		default:
			return nil, common.ConfigErrorf("open snapshot %s: %v", path, err)
		}
	}
	rs, err := a.Rules()
	if err != nil {
		return nil, err
	}
	return rules.Build(ctx, rs, a.embedder)
}

// ReloadRules rereads the rule source and swaps a freshly built index in.
func (a *App) ReloadRules(ctx context.Context) error {
	rs, err := a.Rules()
	if err != nil {
		return err
	}
	return a.Retriever.Rebuild(ctx, rs, a.embedder)
}

// WriteSnapshot persists the current index.
func (a *App) WriteSnapshot(w io.Writer) error {
	return a.Retriever.Current().Snapshot(w)
}

// Extractor builds the configured vision collaborator.
func (a *App) Extractor(ctx context.Context) (extract.Extractor, error) {
	cfg := a.Config
	switch cfg.Vision.Provider {
	case "openai":
		model := cfg.Vision.Model
		if strings.HasPrefix(model, "gemini") {
			model = cfg.LLM.Model
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   model,
			Timeout: cfg.Vision.Timeout,
		}, a.Logger), nil
	case "gemini":
		c, err := a.genaiClient(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewFromClient(c, cfg.Vision.Model, 0, a.Logger), nil
	}
	return nil, common.ConfigErrorf("unknown vision provider %q", cfg.Vision.Provider)
}

func (a *App) newGenerator(ctx context.Context) (llm.Generator, error) {
	cfg := a.Config.LLM
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, a.Logger), nil
	case "gemini":
		c, err := a.genaiClient(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewFromClient(c, "", cfg.Temperature, a.Logger), nil
	}
	return nil, common.ConfigErrorf("unknown llm provider %q", cfg.Provider)
}

func (a *App) newArchive(ctx context.Context) (archive.Store, error) {
	cfg := a.Config.Archive
	switch {
	case cfg.Bucket != "":
		s, err := archive.NewGCSStore(ctx, cfg.Bucket, cfg.Prefix, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case cfg.Dir != "":
		return archive.NewDirStore(cfg.Dir, a.Logger)
	}
	return nil, nil
}

func (a *App) newPublisher() (notify.Publisher, error) {
	cfg := a.Config.Events
	var pubs []notify.Publisher
	if cfg.NATSURL != "" {
		p, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, a.Logger)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	if cfg.AMQPURL != "" {
		p, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRouting, a.Logger)
		if err != nil {
			for _, q := range pubs {
				_ = q.Close()
			}
			return nil, err
		}
		pubs = append(pubs, p)
	}
	if len(pubs) == 0 {
		return nil, nil
	}
	m := notify.NewMulti(a.Logger, pubs...)
	a.closers = append(a.closers, m.Close)
	return m, nil
}

// Pipeline builds the receipt processor. It needs the full configuration to be valid.
func (a *App) Pipeline(ctx context.Context) (*pipeline.Processor, error) {
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	extractor, err := a.Extractor(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := a.newGenerator(ctx)
	if err != nil {
		return nil, err
	}
	retry := llm.DefaultRetryConfig()
	if a.Config.LLM.MaxAttempts > 0 {
		retry.MaxAttempts = a.Config.LLM.MaxAttempts
	}
	m := matcher.New(a.Retriever, gen, matcher.Config{
		TopK:    a.Config.Rules.TopK,
		Timeout: a.Config.Pipeline.MatchTimeout,
		Retry:   retry,
	}, a.Logger)

	opts := []pipeline.Option{pipeline.WithMetrics(a.Metrics)}
	store, err := a.newArchive(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, pipeline.WithArchive(store))
	}
	pub, err := a.newPublisher()
	if err != nil {
		return nil, err
	}
	if pub != nil {
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	a.Logger.Info("pipeline.ready",
		"extractor", extractor.Name(),
		"generator", gen.Name(),
		"embedder", a.Retriever.Current().EmbedderName(),
		"archive", store != nil,
		"publisher", pub != nil,
	)
	return pipeline.NewProcessor(extractor, m, a.Ledger, pipeline.Config{
		OCRTimeout: a.Config.Vision.Timeout,
		Workers:    a.Config.Pipeline.Workers,
	}, a.Logger, opts...), nil
}

// BigQuery opens the analytics sink. It fails when no project is configured.
func (a *App) BigQuery(ctx context.Context) (*export.BigQuerySink, error) {
	cfg := a.Config.Export
	if cfg.BigQueryProject == "" {
		return nil, common.NewConfigError("BIGQUERY_PROJECT is required for BigQuery export")
	}
	sink, err := export.NewBigQuerySink(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable, a.Ledger, a.Logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sink.Close)
	return sink, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("app.close.error", "error", err)
		}
	}
	a.closers = nil
}
