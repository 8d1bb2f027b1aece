package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DirStore archives receipts under a local directory.
type DirStore struct {
	root   string
	logger *slog.Logger
}

func NewDirStore(root string, logger *slog.Logger) (*DirStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DirStore{root: root, logger: logger}, nil
}

func (s *DirStore) Put(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	imageKey, docKey := objectKeys("", obj)
	imagePath := filepath.Join(s.root, filepath.FromSlash(imageKey))
	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	if err := os.WriteFile(imagePath, obj.Image.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if len(obj.Document) > 0 {
		if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(docKey)), obj.Document, 0o644); err != nil {
			return "", fmt.Errorf("write receipt document: %w", err)
		}
	}
	s.logger.Debug("archive.dir.put", "path", imagePath, "bytes", len(obj.Image.Bytes))
	return imagePath, nil
}
