package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/relief-tracker/internal/app"
	"github.com/joseph-ayodele/relief-tracker/internal/async"
	"github.com/joseph-ayodele/relief-tracker/internal/ingest"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
	"github.com/joseph-ayodele/relief-tracker/internal/server"
)

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health endpoint and the inbox watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(serve)
		},
	}
}

func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	log := a.Logger
	proc, err := a.Pipeline(ctx)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		Processor:      proc,
		Relief:         a.Relief,
		Export:         a.Export,
		Retriever:      a.Retriever,
		ReloadRules:    a.ReloadRules,
		DB:             a.DB,
		Gatherer:       a.Registry,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         log,
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
		hs := server.NewHealthServer(a.DB, log)
		g.Go(func() error { return hs.Serve(gctx, lis, 15*time.Second) })
	}

	if len(cfg.Ingest.Roots) > 0 {
		if err := startInbox(gctx, g, a, proc); err != nil {
			return err
		}
	}

	return g.Wait()
}

// startInbox watches the inbox roots and feeds new receipt images through a worker queue.
func startInbox(ctx context.Context, g *errgroup.Group, a *app.App, proc *pipeline.Processor) error {
	cfg := a.Config.Ingest
	log := a.Logger

	filter, err := ingest.NewFilter(cfg.Patterns)
	if err != nil {
		return err
	}
	queue := async.NewProcessorQueue(proc, log,
		async.WithWorkers(cfg.Workers),
		async.WithQueueSize(cfg.QueueSize),
		async.WithProcessTimeout(cfg.FileTimeout),
		async.WithResultHook(func(job async.Job, res pipeline.Result) {
			count, amount := res.Deductible()
			log.Info("ingest.receipt.done",
				"path", job.Path,
				"user_id", job.UserID,
				"trace_id", job.TraceID,
				"success", res.Success,
				"deductible", count,
				"claimable", amount,
			)
		}),
	)
	inbox, err := ingest.NewInbox(cfg.Roots, queue, log)
	if err != nil {
		return err
	}
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Roots,
		Filter:      filter,
		InitialScan: true,
		Debounce:    cfg.Debounce,
	}, log)
	if err != nil {
		return err
	}

	g.Go(func() error {
		inbox.Run(ctx, paths, errs)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FileTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
		return nil
	})
	log.Info("ingest.inbox.watching", "roots", cfg.Roots)
	return nil
}
