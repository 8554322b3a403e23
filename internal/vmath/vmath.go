// Package vmath holds the vector helpers shared by the engine, physics and
// steering code. Vectors are mgl64 values; all operations here are
// element-wise unless stated otherwise.
package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Forward is the craft-local forward axis. Right-handed, so forward is -Z.
var Forward = mgl64.Vec3{0, 0, -1}

// Up is the craft-local up axis.
var Up = mgl64.Vec3{0, 1, 0}

func Splat(s float64) mgl64.Vec3 { return mgl64.Vec3{s, s, s} }

// Clamp limits each component of v to [lo, hi]. When lo > hi on an axis the
// result is lo, matching math.Max(lo, math.Min(v, hi)).
func Clamp(v, lo, hi mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Max(lo[0], math.Min(v[0], hi[0])),
		math.Max(lo[1], math.Min(v[1], hi[1])),
		math.Max(lo[2], math.Min(v[2], hi[2])),
	}
}

// ClampSym limits v to [-|limit|, |limit|] per axis.
func ClampSym(v, limit mgl64.Vec3) mgl64.Vec3 {
	l := Abs(limit)
	return Clamp(v, l.Mul(-1), l)
}

func Abs(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

func MulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// DivElem divides a by b per axis. Callers guard against zero divisors.
func DivElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] / b[0], a[1] / b[1], a[2] / b[2]}
}

func MinElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func MaxComponent(v mgl64.Vec3) float64 { return math.Max(v[0], math.Max(v[1], v[2])) }

func MinComponent(v mgl64.Vec3) float64 { return math.Min(v[0], math.Min(v[1], v[2])) }

func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// IsZero reports whether every component is within eps of zero.
func IsZero(v mgl64.Vec3, eps float64) bool {
	return math.Abs(v[0]) <= eps && math.Abs(v[1]) <= eps && math.Abs(v[2]) <= eps
}

// NormalizeOrZero is Normalize without the division by zero.
func NormalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ToLocal rotates a world-space vector into the frame described by rot.
func ToLocal(rot mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return rot.Inverse().Rotate(v)
}

// ToWorld rotates a local-space vector into world space.
func ToWorld(rot mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return rot.Rotate(v)
}

// LookTo returns the angular velocity direction that turns Forward toward
// the local direction dir. The result is deliberately not scaled by the angle:
// scaling makes the final corrections too small to settle.
func LookTo(dir mgl64.Vec3) mgl64.Vec3 {
	return Forward.Cross(dir)
}
