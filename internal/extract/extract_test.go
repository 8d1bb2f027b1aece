package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "receipt.JPG")
	require.NoError(t, os.WriteFile(p, []byte{0xff, 0xd8, 0xff}, 0o644))

	img, err := ReadImage(p)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, "receipt.JPG", img.Filename)
	assert.Len(t, img.Bytes, 3)

	_, err = ReadImage(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestImage_MIMEFallback(t *testing.T) {
	assert.Equal(t, "image/png", Image{Filename: "a.png"}.MIME())
	assert.Equal(t, "image/webp", Image{MIMEType: "image/webp", Filename: "a.png"}.MIME())
	assert.Equal(t, "application/octet-stream", Image{Filename: "a.bin"}.MIME())
}
