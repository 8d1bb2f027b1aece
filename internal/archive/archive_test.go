package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
)

func TestObjectKeys(t *testing.T) {
	obj := Object{
		UserID:    "alice",
		ReceiptID: "r-1",
		Image:     extract.Image{Filename: "/tmp/inbox/my receipt.jpg"},
	}
	img, doc := objectKeys("/receipts/", obj)
	assert.Equal(t, "receipts/alice/r-1/my_receipt.jpg", img)
	assert.Equal(t, "receipts/alice/r-1/receipt.json", doc)

	img, _ = objectKeys("", Object{UserID: "bob", ReceiptID: "r-2"})
	assert.Equal(t, "bob/r-2/image", img)
}

func TestDirStorePut(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root, nil)
	require.NoError(t, err)

	loc, err := store.Put(context.Background(), Object{
		UserID:    "alice",
		ReceiptID: "r-1",
		Image:     extract.Image{Bytes: []byte("jpeg"), Filename: "a.jpg"},
		Document:  []byte(`{"merchant":"TechStore"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "alice", "r-1", "a.jpg"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(got))

	doc, err := os.ReadFile(filepath.Join(root, "alice", "r-1", DocumentName))
	require.NoError(t, err)
	assert.JSONEq(t, `{"merchant":"TechStore"}`, string(doc))
}

func TestDirStoreCanceled(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Put(ctx, Object{UserID: "a", ReceiptID: "r"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGCSStoreRequiresBucket(t *testing.T) {
	_, err := NewGCSStore(context.Background(), "", "receipts", nil)
	assert.Error(t, err)
}
