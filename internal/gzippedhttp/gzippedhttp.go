// Package gzippedhttp accepts gzip-compressed request bodies.
// Response compression is left to chi's Compress middleware.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/wikisubs/internal/logger"
)

const invalidBodyResponse = `{"success":false,"error":"Invalid gzip body"}`

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader returns a new CompressedReader that reads gzip-compressed data
// from the provided io.ReadCloser.
func NewCompressedReader(body io.ReadCloser) (*CompressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{r: body, zr: zr}, nil
}

func (c *CompressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying body.
func (c *CompressedReader) Close() error {
	if err := c.zr.Close(); err != nil {
		c.r.Close()
		return err
	}
	return c.r.Close()
}

// DecompressRequest replaces the body of a request sent with "Content-Encoding: gzip"
// by its decompressed stream. A body that is not valid gzip is answered with 400.
func DecompressRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(strings.ToLower(r.Header.Get("Content-Encoding")), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		body, err := NewCompressedReader(r.Body)
		if err != nil {
			logger.Log.Debugw("Rejected request body", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, invalidBodyResponse)
			return
		}
		defer body.Close()

		r.Body = body
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1

		next.ServeHTTP(w, r)
	})
}
