package ingest

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

	"github.com/joseph-ayodele/relief-tracker/internal/async"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{"*/receipts/**/*.jpg", "*/*.png"})
	require.NoError(t, err)

	assert.True(t, f.Match("alice/receipts/2024/a.jpg"))
	assert.True(t, f.Match("alice/b.png"))
	assert.False(t, f.Match("alice/b.jpg"))
	assert.False(t, f.Match("alice/.hidden.png"))
	assert.False(t, f.Match("alice/receipts/notes.txt"))

	var none *Filter
	assert.True(t, none.Match("bob/x.heic"))
	assert.False(t, none.Match("bob/x.pdf"))

	_, err = NewFilter([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "alice", "a.jpg"), "one")
	write(t, filepath.Join(root, "alice", "b.jpg"), "one")
	write(t, filepath.Join(root, "alice", "notes.txt"), "x")
	write(t, filepath.Join(root, ".cache", "c.jpg"), "two")

	res, stats, err := ScanDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, res[0].HashHex, res[1].HashHex)

	_, _, err = ScanDirectory(context.Background(), " ", nil)
	assert.Error(t, err)
}

func TestInbox_SubmitDedupesByContent(t *testing.T) {
	root := t.TempDir()
	q := &recordingQueue{}
	in, err := NewInbox([]string{root}, q, quiet)
	require.NoError(t, err)
	ctx := context.Background()

	a := write(t, filepath.Join(root, "alice", "a.jpg"), "same bytes")
	b := write(t, filepath.Join(root, "alice", "copy.jpg"), "same bytes")
	c := write(t, filepath.Join(root, "bob", "c.jpg"), "other bytes")

	queued, err := in.Submit(ctx, a)
	require.NoError(t, err)
	assert.True(t, queued)
	queued, err = in.Submit(ctx, b)
	require.NoError(t, err)
	assert.False(t, queued)
	queued, err = in.Submit(ctx, c)
	require.NoError(t, err)
	assert.True(t, queued)

	require.Equal(t, 2, q.len())
	assert.Equal(t, "alice", q.jobs[0].UserID)
	assert.Equal(t, "bob", q.jobs[1].UserID)
	assert.NotEmpty(t, q.jobs[0].SHA256)
	assert.NotEmpty(t, q.jobs[0].TraceID)
}

func TestInbox_UserFor(t *testing.T) {
	root := t.TempDir()
	in, err := NewInbox([]string{root}, &recordingQueue{}, quiet)
	require.NoError(t, err)

	user, err := in.UserFor(filepath.Join(root, "carol@example.com", "x", "r.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user)

	_, err = in.UserFor(filepath.Join(root, "r.jpg"))
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = in.UserFor(filepath.Join(t.TempDir(), "u", "r.jpg"))
	assert.Error(t, err)
}

func TestWatcher_EmitsNewReceipts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alice"), 0o755))
	existing := write(t, filepath.Join(root, "alice", "old.jpg"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    10 * time.Millisecond,
	}, quiet)
	require.NoError(t, err)

	q := &recordingQueue{}
	in, err := NewInbox([]string{root}, q, quiet)
	require.NoError(t, err)
	go in.Run(ctx, events, errs)

	write(t, filepath.Join(root, "alice", "new.png"), "new")
	write(t, filepath.Join(root, "alice", "ignore.txt"), "x")

	assert.Eventually(t, func() bool { return q.len() == 2 }, 3*time.Second, 10*time.Millisecond)
	q.mu.Lock()
	paths := []string{q.jobs[0].Path, q.jobs[1].Path}
	q.mu.Unlock()
	resolved, _ := filepath.EvalSymlinks(existing)
	assert.True(t, paths[0] == existing || paths[0] == resolved)
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, quiet)
	assert.Error(t, err)
}
