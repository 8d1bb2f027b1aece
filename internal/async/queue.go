package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one receipt file to be processed on behalf of a user.
type Job struct {
	Path        string
	UserID      string
	SHA256      string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ReceiptProcessor is satisfied by *pipeline.Processor.
type ReceiptProcessor interface {
	ProcessReceipt(ctx context.Context, userID string, img extract.Image) pipeline.Result
}
