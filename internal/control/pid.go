package control

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/vmath"
)

var ErrUnknownParam = errors.New("control: unknown parameter")

// PIDVec3 runs three independent PID loops, one per axis.
type PIDVec3 struct {
	Kp mgl64.Vec3
	Ki mgl64.Vec3
	Kd mgl64.Vec3

	// IntegralMax and IntegralMin bound the accumulated integral term (after Ki).
	// Drivers may rewrite them every tick.
	IntegralMax mgl64.Vec3
	IntegralMin mgl64.Vec3

	integral    mgl64.Vec3
	prevCurrent mgl64.Vec3
	primed      bool
}

func NewPIDVec3(kp, ki, kd, integralMax, integralMin mgl64.Vec3) *PIDVec3 {
	return &PIDVec3{
		Kp:          kp,
		Ki:          ki,
		Kd:          kd,
		IntegralMax: integralMax,
		IntegralMin: integralMin,
	}
}

// Update advances the controller by dt and returns the unclamped output.
// The derivative acts on the measured value, not on err, so a step in the
// setpoint does not kick the output. It is zero on the first call and
// whenever dt is not positive.
func (p *PIDVec3) Update(current, err mgl64.Vec3, dt float64) mgl64.Vec3 {
	proportional := vmath.MulElem(p.Kp, err)

	if dt > 0 {
		p.integral = vmath.Clamp(
			p.integral.Add(vmath.MulElem(p.Ki, err).Mul(dt)),
			p.IntegralMin,
			p.IntegralMax,
		)
	} else {
		p.integral = vmath.Clamp(p.integral, p.IntegralMin, p.IntegralMax)
	}

	var derivative mgl64.Vec3
	if p.primed && dt > 0 {
		rate := current.Sub(p.prevCurrent).Mul(1 / dt)
		derivative = vmath.MulElem(p.Kd, rate).Mul(-1)
	}
	p.prevCurrent = current
	p.primed = true

	return proportional.Add(p.integral).Add(derivative)
}

// Integral returns the current clamped integral term.
func (p *PIDVec3) Integral() mgl64.Vec3 { return p.integral }

// Reset clears the integral and derivative history.
func (p *PIDVec3) Reset() {
	p.integral = mgl64.Vec3{}
	p.prevCurrent = mgl64.Vec3{}
	p.primed = false
}

// GetParams returns tunable gains. Gains are reported from the X axis; SetParam
// writes all three axes.
func (p *PIDVec3) GetParams() map[string]float64 {
	return map[string]float64{
		"kp": p.Kp[0],
		"ki": p.Ki[0],
		"kd": p.Kd[0],
	}
}

// SetParam adjusts a gain uniformly across the axes.
func (p *PIDVec3) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = vmath.Splat(value)
	case "ki":
		p.Ki = vmath.Splat(value)
	case "kd":
		p.Kd = vmath.Splat(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}
