// Package export writes chat sessions to files in several formats.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"techchat/internal/history"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(sess history.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}

// ForPath picks an exporter from the extension of path, defaulting to markdown
func ForPath(path string) (Exporter, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return &MarkdownExporter{}, nil
	}
	return NewExporter(ext)
}
