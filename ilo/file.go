package ilo

import (
	"context"
	"fmt"
	"os"

	"github.com/sseiler-cboe/hpilo-exporter/health"
)

// FileClient reads the health document from a JSON snapshot on disk,
// produced out of band by an agent or a captured dump.
type FileClient struct {
	Path string
}

// NewFileClient returns a client reading snapshots from path.
func NewFileClient(path string) *FileClient {
	return &FileClient{Path: path}
}

// EmbeddedHealth implements Client.
func (c *FileClient) EmbeddedHealth(_ context.Context) (health.Document, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("reading health snapshot: %w", err)
	}
	return decodeDocument(data)
}
