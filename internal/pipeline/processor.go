// Package pipeline turns one receipt image into ledger rows:
// extracting → normalizing → (matching → persisting)* → aggregating → done.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/relief-tracker/constants"
	"github.com/joseph-ayodele/relief-tracker/internal/archive"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
	"github.com/joseph-ayodele/relief-tracker/internal/metrics"
	"github.com/joseph-ayodele/relief-tracker/internal/notify"
	"github.com/joseph-ayodele/relief-tracker/internal/ocr"
	"github.com/joseph-ayodele/relief-tracker/internal/repository"
)

// Processor coordinates extraction, normalization, matching and persistence.
type Processor struct {
	logger    *slog.Logger
	extract   *ExtractStage
	match     *MatchStage
	source    string
	archive   archive.Store
	publisher notify.Publisher
	metrics   *metrics.Pipeline
	newID     func() string
}

type Config struct {
	OCRTimeout time.Duration
	Workers    int
}

type Option func(*Processor)

// WithArchive stores every extracted receipt image. Failures are logged only.
func WithArchive(s archive.Store) Option { return func(p *Processor) { p.archive = s } }

// WithPublisher emits a receipt.processed event per successful receipt.
func WithPublisher(pub notify.Publisher) Option { return func(p *Processor) { p.publisher = pub } }

func WithMetrics(m *metrics.Pipeline) Option { return func(p *Processor) { p.metrics = m } }

func NewProcessor(
	extractor extract.Extractor,
	matcher Matcher,
	ledger repository.ExpenseRepository,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:    logger,
		source:    constants.SourcePrefix + extractor.Name(),
		publisher: notify.Nop{},
		newID:     func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(p)
	}
	if p.publisher == nil {
		p.publisher = notify.Nop{}
	}
	p.extract = NewExtractStage(extractor, cfg.OCRTimeout, logger)
	p.match = NewMatchStage(matcher, ledger, cfg.Workers, p.metrics, logger)
	return p
}

// ProcessReceipt runs the whole pipeline for one image. Only input validation,
// extraction and normalization can fail the receipt; item level problems are
// reported on the items and the receipt still succeeds.
func (p *Processor) ProcessReceipt(ctx context.Context, userID string, img extract.Image) Result {
	start := time.Now()
	log := common.LoggerFromContext(ctx, p.logger).With("user_id", userID, "file", img.Filename)

	if err := common.ValidateUserID(userID); err != nil {
		return p.fail(log, Result{}, constants.StageExtracting, ErrorKindValidation, err)
	}
	if len(img.Bytes) == 0 {
		return p.fail(log, Result{}, constants.StageExtracting, ErrorKindValidation,
			fmt.Errorf("%w: empty receipt image", common.ErrValidation))
	}

	res := Result{ReceiptID: p.newID(), Items: []ItemResult{}}
	log = log.With("receipt_id", res.ReceiptID)

	log.Debug("pipeline.stage", "stage", constants.StageExtracting)
	t := time.Now()
	raw, err := p.extract.Extract(ctx, img)
	p.metrics.ObserveStage(string(constants.StageExtracting), t)
	if err != nil {
		kind := ErrorKindFatal
		if llm.IsTransient(err) {
			kind = ErrorKindTransient
		}
		return p.fail(log, res, constants.StageExtracting, kind, err)
	}

	log.Debug("pipeline.stage", "stage", constants.StageNormalizing)
	t = time.Now()
	rec, err := p.extract.Normalize(raw)
	p.metrics.ObserveStage(string(constants.StageNormalizing), t)
	if err != nil {
		kind := ErrorKindFatal
		if errors.Is(err, ocr.ErrExtractionFailed) {
			kind = ErrorKindExtractionFailed
		}
		return p.fail(log, res, constants.StageNormalizing, kind, err)
	}
	for _, d := range rec.Defaulted {
		p.metrics.Defaulted(d.Field)
	}
	res.ReceiptInfo = rec.Info

	log.Debug("pipeline.stage", "stage", constants.StageMatching, "items", len(rec.Items))
	res.Items = p.match.Run(ctx, receiptRef{userID: userID, receiptID: res.ReceiptID, source: p.source}, rec.Items)

	log.Debug("pipeline.stage", "stage", constants.StageAggregating)
	res.ArchiveURI = p.archiveReceipt(ctx, log, userID, img, res)
	p.publish(ctx, log, userID, res)

	res.Success = true
	res.State = constants.StageDone
	p.metrics.Receipt("success")
	deductible, claimable := res.Deductible()
	log.Info("pipeline.receipt.ok",
		"merchant", res.ReceiptInfo.Merchant,
		"items", len(res.Items),
		"deductible", deductible,
		"claimable", claimable,
		"failed_items", res.Failed(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Processor) fail(log *slog.Logger, res Result, stage constants.Stage, kind ErrorKind, err error) Result {
	if res.Items == nil {
		res.Items = []ItemResult{}
	}
	res.Success = false
	res.State = constants.StageFailed
	res.Error = err.Error()
	res.ErrorKind = kind
	p.metrics.Receipt(string(kind))
	log.Error("pipeline.receipt.failed", "stage", stage, "error_kind", kind, "error", err)
	return res
}

func (p *Processor) archiveReceipt(ctx context.Context, log *slog.Logger, userID string, img extract.Image, res Result) string {
	if p.archive == nil {
		return ""
	}
	doc, err := json.Marshal(struct {
		ReceiptID string       `json:"receipt_id"`
		UserID    string       `json:"user_id"`
		Info      any          `json:"receipt_info"`
		Items     []ItemResult `json:"items"`
	}{res.ReceiptID, userID, res.ReceiptInfo, res.Items})
	if err != nil {
		log.Warn("pipeline.archive.encode", "error", err)
	}
	uri, err := p.archive.Put(ctx, archive.Object{UserID: userID, ReceiptID: res.ReceiptID, Image: img, Document: doc})
	if err != nil {
		log.Warn("pipeline.archive.error", "error", err)
		return ""
	}
	return uri
}

func (p *Processor) publish(ctx context.Context, log *slog.Logger, userID string, res Result) {
	deductible, claimable := res.Deductible()
	err := p.publisher.Publish(ctx, notify.ReceiptProcessed{
		Event:       notify.EventReceiptProcessed,
		ReceiptID:   res.ReceiptID,
		UserID:      userID,
		Merchant:    res.ReceiptInfo.Merchant,
		Date:        res.ReceiptInfo.Date,
		TotalAmount: res.ReceiptInfo.TotalAmount,
		Items:       len(res.Items),
		Deductible:  deductible,
		Failed:      res.Failed(),
		Claimable:   claimable,
		ArchiveURI:  res.ArchiveURI,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn("pipeline.notify.error", "error", err)
	}
}
