package common

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	// FramesSent counts frames written by any transport
	FramesSent = metrics.NewCounter("dstate_frames_sent_total")
	// FramesReceived counts frames read by any transport
	FramesReceived = metrics.NewCounter("dstate_frames_received_total")
	// Handshakes counts acknowledged Connect messages on the controller side
	Handshakes = metrics.NewCounter("dstate_handshakes_total")
)

// WriteMetrics writes all registered metrics in Prometheus text format
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
