package export

import (
	"encoding/json"
	"io"

	"techchat/internal/history"
)

// JSONExporter exports sessions in the stored JSON shape, pretty-printed
type JSONExporter struct{}

// Export exports a session to JSON format
func (e *JSONExporter) Export(sess history.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(sess)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
