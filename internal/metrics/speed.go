package metrics

import "github.com/san-kum/craftsim/internal/sim"

// MeanSpeed averages the tracked craft's world-space speed.
type MeanSpeed struct {
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed { return &MeanSpeed{} }

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(s sim.Sample) {
	m.sum += s.Velocity.Len()
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}

// TrackingError is the mean distance between the commanded and the actual
// local velocity. The tuner minimises it.
type TrackingError struct {
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (m *TrackingError) Name() string { return "tracking_error" }

func (m *TrackingError) Observe(s sim.Sample) {
	m.sum += s.Input.Sub(s.LocalVelocity).Len()
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *TrackingError) Reset() {
	m.sum = 0
	m.samples = 0
}

// Standard returns the metric set every run reports.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewStability(1e-9),
		NewMeanSpeed(),
		NewTrackingError(),
	}
}
