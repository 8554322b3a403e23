package vmath

import "math"

const tau = 2 * math.Pi

// DeltaAngleRadians is the unsigned shortest distance between two angles, in [0, π].
func DeltaAngleRadians(a, b float64) float64 {
	d := math.Abs(SmallestPositiveEquivalentAngleRadians(a) - SmallestPositiveEquivalentAngleRadians(b))
	if d > math.Pi {
		return tau - d
	}
	return d
}

// SmallestEquivalentAngleRadians wraps an angle into [-π, π].
func SmallestEquivalentAngleRadians(angle float64) float64 {
	angle = math.Mod(angle, tau)
	if angle > math.Pi {
		angle -= tau
	} else if angle < -math.Pi {
		angle += tau
	}
	return angle
}

// SmallestPositiveEquivalentAngleRadians wraps an angle into [0, 2π).
func SmallestPositiveEquivalentAngleRadians(angle float64) float64 {
	angle = math.Mod(angle, tau)
	if angle < 0 {
		return angle + tau
	}
	return angle
}
