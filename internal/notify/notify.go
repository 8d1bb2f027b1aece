// Package notify publishes receipt lifecycle events to message brokers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

const EventReceiptProcessed = "receipt.processed"

// ReceiptProcessed is emitted once per receipt that made it past normalization.
type ReceiptProcessed struct {
	Event       string    `json:"event"`
	ReceiptID   string    `json:"receipt_id"`
	UserID      string    `json:"user_id"`
	Merchant    string    `json:"merchant"`
	Date        string    `json:"date"`
	TotalAmount float64   `json:"total_amount"`
	Items       int       `json:"items"`
	Deductible  int       `json:"deductible"`
	Failed      int       `json:"failed"`
	Claimable   float64   `json:"claimable"` // sum of deductible item prices
	ArchiveURI  string    `json:"archive_uri,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e ReceiptProcessed) marshal() ([]byte, error) {
	if e.Event == "" {
		e.Event = EventReceiptProcessed
	}
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e ReceiptProcessed) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ReceiptProcessed) error { return nil }
func (Nop) Close() error                                    { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi struct {
	publishers []Publisher
	logger     *slog.Logger
}

func NewMulti(logger *slog.Logger, publishers ...Publisher) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{publishers: publishers, logger: logger}
}

func (m *Multi) Len() int { return len(m.publishers) }

func (m *Multi) Publish(ctx context.Context, e ReceiptProcessed) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, e); err != nil {
			m.logger.Warn("notify.publish.error", "receipt_id", e.ReceiptID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.publishers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
