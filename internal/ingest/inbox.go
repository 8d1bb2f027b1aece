package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/relief-tracker/internal/async"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
)

// ErrNoUser means a file sits directly in an inbox root instead of a user folder.
var ErrNoUser = errors.New("file is not inside a user folder")

// Inbox turns files dropped under <root>/<user_id>/ into queue jobs.
// Files with a content hash already seen in this run are skipped.
type Inbox struct {
	roots  []string
	queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 -> first path
}

func NewInbox(roots []string, queue async.Queue, logger *slog.Logger) (*Inbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("inbox root %q: %w", r, err)
		}
		abs = append(abs, a)
	}
	return &Inbox{roots: abs, queue: queue, logger: logger, seen: map[string]string{}}, nil
}

// UserFor returns the user id encoded by the first path segment under a root.
func (in *Inbox) UserFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for _, r := range in.roots {
		rel, err := filepath.Rel(r, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			return "", ErrNoUser
		}
		if err := common.ValidateUserID(parts[0]); err != nil {
			return "", err
		}
		return parts[0], nil
	}
	return "", fmt.Errorf("%s is outside every inbox root", path)
}

// Submit enqueues path unless its contents were already submitted.
func (in *Inbox) Submit(ctx context.Context, path string) (bool, error) {
	userID, err := in.UserFor(path)
	if err != nil {
		return false, err
	}
	sum, err := HashFile(path)
	if err != nil {
		return false, err
	}

	in.mu.Lock()
	if first, dup := in.seen[sum]; dup {
		in.mu.Unlock()
		in.logger.Info("ingest.inbox.duplicate", "path", path, "first", first)
		return false, nil
	}
	in.seen[sum] = path
	in.mu.Unlock()

	job := async.Job{
		Path:        path,
		UserID:      userID,
		SHA256:      sum,
		SubmittedAt: time.Now(),
		TraceID:     uuid.NewString(),
	}
	if err := in.queue.Enqueue(ctx, job); err != nil {
		in.mu.Lock()
		delete(in.seen, sum)
		in.mu.Unlock()
		return false, err
	}
	return true, nil
}

// Run feeds watcher events into the queue until ctx ends or the channels close.
func (in *Inbox) Run(ctx context.Context, paths <-chan string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-paths:
			if !ok {
				return
			}
			queued, err := in.Submit(ctx, p)
			if err != nil {
				in.logger.Warn("ingest.inbox.skip", "path", p, "error", err)
				continue
			}
			if queued {
				in.logger.Info("ingest.inbox.queued", "path", p)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			in.logger.Warn("ingest.inbox.watch_error", "error", err)
		}
	}
}
