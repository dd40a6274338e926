package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var errNoPath = errors.New("metrics: textfile path is empty")

// WriteTextfile dumps every metric in the node_exporter textfile format.
// The write is atomic: the content lands in a temp file that is renamed over path.
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return errNoPath
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
