// Package analysis inspects recorded telemetry in the frequency domain.
//
//   - [FFT] and [PowerSpectrum]: radix-2 transform with zero padding
//   - [DominantFrequency]: strongest oscillation of a series
//   - [TrackingOscillation]: per-axis ringing of the velocity controller
package analysis
