package analysis

import (
	"github.com/san-kum/craftsim/internal/sim"
)

// Peak is the strongest non-DC component of a signal.
type Peak struct {
	Frequency float64 // Hz
	Magnitude float64
}

// DominantFrequency finds the strongest oscillation in a series sampled every
// dt seconds. The mean is removed first so a constant offset is ignored.
func DominantFrequency(series []float64, dt float64) Peak {
	if len(series) < 4 || dt <= 0 {
		return Peak{}
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	n := 2 * len(ps)
	best := Peak{}
	for k := 1; k < len(ps); k++ {
		if ps[k] > best.Magnitude {
			best = Peak{Frequency: float64(k) / (float64(n) * dt), Magnitude: ps[k]}
		}
	}
	return best
}

// TrackingOscillation reports the dominant oscillation of the velocity
// tracking error on each local axis. A strong peak after the craft settles
// points at an over-tuned controller.
func TrackingOscillation(samples []sim.Sample, dt float64) [3]Peak {
	var peaks [3]Peak
	series := make([]float64, len(samples))
	for axis := 0; axis < 3; axis++ {
		for i, s := range samples {
			series[i] = s.Input[axis] - s.LocalVelocity[axis]
		}
		peaks[axis] = DominantFrequency(series, dt)
	}
	return peaks
}
