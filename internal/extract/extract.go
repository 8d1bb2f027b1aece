// Package extract defines the vision OCR collaborator boundary.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/relief-tracker/constants"
)

// Image is one receipt image as an opaque blob.
type Image struct {
	Bytes    []byte
	MIMEType string
	Filename string
}

// Extractor sends an image to a vision model and returns whatever text it produced.
// The output shape is not guaranteed; internal/ocr is its only consumer.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, img Image) (string, error)
}

// Prompt asks the vision model for the receipt fields the normalizer understands.
const Prompt = "You are a smart assistant that extracts structured data from receipts. " +
	"From the image, extract the following:\n" +
	"- Merchant name\n" +
	"- Item name (as a list if multiple items)\n" +
	"- Date of purchase\n" +
	"- Item price (as a list if multiple items)\n" +
	"- Item category (as a list if multiple items, e.g. electronics, food, medical, clothing, etc)\n" +
	"- Total amount spent\n" +
	"Return the result as a JSON object with consistent key names. " +
	"Format your response as a JSON code block."

// ReadImage loads a receipt image from disk, checking the extension.
func ReadImage(path string) (Image, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return Image{}, fmt.Errorf("unsupported receipt image type %q", ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return Image{Bytes: b, MIMEType: constants.MIMEForExt(ext), Filename: filepath.Base(path)}, nil
}

// MIME returns the declared MIME type, falling back to the filename extension.
func (img Image) MIME() string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	if mt := constants.MIMEForExt(filepath.Ext(img.Filename)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
