package archive

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
)

// DocumentName is the object name of the normalized receipt JSON next to each image.
const DocumentName = "receipt.json"

// Object is everything archived for one processed receipt.
type Object struct {
	UserID    string
	ReceiptID string
	Image     extract.Image
	Document  []byte // normalized receipt as JSON
}

// Store keeps original receipt images. Put returns the location of the image.
type Store interface {
	Put(ctx context.Context, obj Object) (string, error)
}

// objectKeys returns the slash separated keys of the image and document.
func objectKeys(prefix string, obj Object) (image, doc string) {
	name := filepath.Base(obj.Image.Filename)
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	name = strings.ReplaceAll(name, " ", "_")
	dir := path.Join(strings.Trim(prefix, "/"), obj.UserID, obj.ReceiptID)
	return path.Join(dir, name), path.Join(dir, DocumentName)
}
