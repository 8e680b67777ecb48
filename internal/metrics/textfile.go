package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile dumps all registered collectors in the node_exporter textfile
// format. Benchmarks are batch jobs, so instead of serving /metrics they drop
// a file a textfile collector can pick up.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
