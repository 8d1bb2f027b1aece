package async

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
)

type fakeProcessor struct {
	mu    sync.Mutex
	calls map[string]int
	block chan struct{}
}

func (f *fakeProcessor) ProcessReceipt(_ context.Context, userID string, img extract.Image) pipeline.Result {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[userID+"/"+img.Filename]++
	return pipeline.Result{Success: true, ReceiptID: "r-" + img.Filename}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte{0xff, 0xd8}, 0o644))
	return p
}

func TestProcessorQueue_ProcessesAndDrains(t *testing.T) {
	dir := t.TempDir()
	proc := &fakeProcessor{}
	var mu sync.Mutex
	var results []pipeline.Result
	q := NewProcessorQueue(proc, quiet, WithWorkers(2), WithQueueSize(4), WithResultHook(func(_ Job, r pipeline.Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Path: writeImage(t, dir, "a.jpg"), UserID: "alice"}))
	require.NoError(t, q.Enqueue(ctx, Job{Path: writeImage(t, dir, "b.png"), UserID: "bob"}))
	require.NoError(t, q.Enqueue(ctx, Job{Path: filepath.Join(dir, "notes.txt"), UserID: "bob"}))

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(sctx)

	assert.Equal(t, 1, proc.calls["alice/a.jpg"])
	assert.Equal(t, 1, proc.calls["bob/b.png"])
	require.Len(t, results, 3)
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			assert.Equal(t, pipeline.ErrorKindFatal, r.ErrorKind)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, quiet, WithWorkers(1))
	q.Shutdown(context.Background())
	err := q.Enqueue(context.Background(), Job{Path: "x.jpg", UserID: "a"})
	assert.ErrorIs(t, err, ErrQueueClosed)
	q.Shutdown(context.Background())
}

func TestProcessorQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	dir := t.TempDir()
	proc := &fakeProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithQueueSize(1))
	path := writeImage(t, dir, "a.jpg")

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Path: path, UserID: "a"})) // picked up by the worker
	// wait until the worker holds the first job so the buffer is empty again
	assert.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, Job{Path: path, UserID: "b"})) // fills the buffer

	tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(tctx, Job{Path: path, UserID: "c"}), context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
}
