package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	return c
}

const candidate = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Deductible: yes"}]}}]}`

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "is this deductible?")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(candidate))
	})

	out, err := c.Generate(context.Background(), "is this deductible?")
	require.NoError(t, err)
	assert.Equal(t, "Deductible: yes", out)
	assert.Equal(t, "gemini:gemini-test", c.Name())
}

func TestExtract_SendsInlineImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "inlineData")
		assert.Contains(t, string(body), "image/jpeg")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(candidate))
	})

	_, err := c.Extract(context.Background(), extract.Image{Bytes: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"})
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), extract.Image{})
	assert.True(t, llm.IsFatal(err))
}

func TestGenerate_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	})

	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}

func TestGenerate_BadRequestIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}
