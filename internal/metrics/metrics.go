package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks recording outcomes and captured audio volume.
type Metrics struct {
	Recordings      *prometheus.CounterVec
	SamplesCaptured prometheus.Counter
	SamplesKept     prometheus.Counter
	UtteranceLength prometheus.Histogram
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "word_recorder_recordings_total",
			Help: "Recording attempts by final state",
		}, []string{"state"}),
		SamplesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "word_recorder_samples_captured_total",
			Help: "Raw samples read from the microphone",
		}),
		SamplesKept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "word_recorder_samples_kept_total",
			Help: "Samples remaining after endpoint trimming",
		}),
		UtteranceLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "word_recorder_utterance_seconds",
			Help:    "Duration of persisted utterances",
			Buckets: []float64{0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Recordings, m.SamplesCaptured, m.SamplesKept, m.UtteranceLength)
	}
	return m
}

func (m *Metrics) ObserveRecording(state string, rawSamples, keptSamples int, seconds float64) {
	m.Recordings.WithLabelValues(state).Inc()
	m.SamplesCaptured.Add(float64(rawSamples))
	m.SamplesKept.Add(float64(keptSamples))
	if keptSamples > 0 {
		m.UtteranceLength.Observe(seconds)
	}
}
