package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the interview session service
type Metrics struct {
	// Session lifecycle metrics
	SessionsStarted prometheus.Counter
	SessionsFailed  prometheus.Counter
	SessionActive   prometheus.Gauge

	// Audio pipeline metrics
	AudioFramesSent  prometheus.Counter
	ImageFramesSent  prometheus.Counter
	ChunksScheduled  prometheus.Counter
	ChunkDropErrors  prometheus.Counter
	Interruptions    prometheus.Counter

	// Transcript metrics
	TurnsCommitted prometheus.Counter
	ItemsCommitted prometheus.Counter

	// Feedback metrics
	FeedbackRequests prometheus.Counter
	FeedbackFailures prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return With(prometheus.DefaultRegisterer)
}

// With registers the metrics against a specific registerer. Tests pass a
// fresh registry so repeated construction does not collide.
func With(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of interview sessions started",
		}),
		SessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_failed_total",
			Help: "Total number of sessions that ended in an error state",
		}),
		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_session_active",
			Help: "1 while a live session is connected, 0 otherwise",
		}),
		AudioFramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_audio_frames_sent_total",
			Help: "Total number of microphone frames forwarded upstream",
		}),
		ImageFramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_image_frames_sent_total",
			Help: "Total number of camera stills forwarded upstream",
		}),
		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_playback_chunks_scheduled_total",
			Help: "Total number of model audio chunks scheduled for playback",
		}),
		ChunkDropErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_playback_chunks_dropped_total",
			Help: "Total number of inbound audio chunks dropped on decode error",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_interruptions_total",
			Help: "Total number of barge-in interruptions handled",
		}),
		TurnsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_turns_committed_total",
			Help: "Total number of completed conversation turns",
		}),
		ItemsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_transcript_items_total",
			Help: "Total number of transcript items committed",
		}),
		FeedbackRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_feedback_requests_total",
			Help: "Total number of feedback generation requests",
		}),
		FeedbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_feedback_failures_total",
			Help: "Total number of feedback requests that returned a degraded report",
		}),
	}
}

// RecordSessionStarted increments the sessions started counter and marks the
// session active.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionActive.Set(1)
}

// RecordSessionEnded clears the active gauge and counts a failure when the
// session ended in error.
func (m *Metrics) RecordSessionEnded(failed bool) {
	m.SessionActive.Set(0)
	if failed {
		m.SessionsFailed.Inc()
	}
}

// RecordTurnCommitted counts one completed turn and its committed items.
func (m *Metrics) RecordTurnCommitted(items int) {
	m.TurnsCommitted.Inc()
	m.ItemsCommitted.Add(float64(items))
}
