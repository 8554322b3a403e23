package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/vmath"
)

var ErrInvalidConfig = errors.New("engine: invalid config")

// Dimensions is the craft's bounding box size in meters.
type Dimensions mgl64.Vec3

func (d Dimensions) MaxElement() float64 { return vmath.MaxComponent(mgl64.Vec3(d)) }

// Config describes a craft's engine. Read every tick, mutated rarely.
type Config struct {
	// SetSpeed is the velocity held when there is no input.
	// In m/s.
	SetSpeed mgl64.Vec3 `yaml:"set_speed"`

	// Mass of the craft.
	// In kg.
	Mass float64 `yaml:"mass"`

	// AccelerationLimit is the artificial acceleration cap, scaled by
	// AccelerationLimitMultiplier.
	// In m/s/s.
	AccelerationLimit           mgl64.Vec3 `yaml:"acceleration_limit"`
	AccelerationLimitMultiplier float64    `yaml:"acceleration_limit_multiplier"`

	// LinvelLimit caps linear velocity no matter the input. Sign is ignored.
	// In m/s.
	LinvelLimit mgl64.Vec3 `yaml:"linvel_limit"`

	// AngvelLimit caps angular velocity no matter the input.
	// In rad/s.
	AngvelLimit mgl64.Vec3 `yaml:"angvel_limit"`

	// LinearThrusterForce is the max force of the linear thrusters before
	// ThrusterForceMultiplier.
	// In N.
	LinearThrusterForce mgl64.Vec3 `yaml:"linear_thruster_force"`

	// AngularThrusterForce is the max force of the angular thrusters before
	// ThrusterForceMultiplier.
	// In N.
	AngularThrusterForce    mgl64.Vec3 `yaml:"angular_thruster_force"`
	ThrusterForceMultiplier float64    `yaml:"thruster_force_multiplier"`

	// LimitForwardV respects LinvelLimit on the Z axis.
	LimitForwardV bool `yaml:"limit_forward_v"`
	// LimitStrafeV respects LinvelLimit on the X and Y axes.
	LimitStrafeV bool `yaml:"limit_strafe_v"`
	// LimitAngularV respects AngvelLimit.
	LimitAngularV bool `yaml:"limit_angular_v"`
	// LimitAcceleration respects the artificial acceleration limits.
	LimitAcceleration bool `yaml:"limit_acceleration"`
}

func DefaultConfig() Config {
	return Config{
		Mass:                        15_000,
		AccelerationLimit:           mgl64.Vec3{6, 6, 6},
		AccelerationLimitMultiplier: 9.81,
		LinvelLimit:                 mgl64.Vec3{100, 100, 200},
		AngvelLimit:                 mgl64.Vec3{3, 3, 3},
		LinearThrusterForce:         mgl64.Vec3{1, 1, 1.5},
		AngularThrusterForce:        mgl64.Vec3{1, 1, 1},
		ThrusterForceMultiplier:     1_000_000,
		LimitForwardV:               true,
		LimitStrafeV:                true,
		LimitAngularV:               true,
		LimitAcceleration:           true,
	}
}

// Validate checks the invariants every driver relies on.
func (c *Config) Validate() error {
	if !(c.Mass > 0) || math.IsInf(c.Mass, 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidConfig, c.Mass)
	}
	for i := 0; i < 3; i++ {
		if c.LinearThrusterForce[i] < 0 || c.AngularThrusterForce[i] < 0 {
			return fmt.Errorf("%w: thruster force components must be >= 0", ErrInvalidConfig)
		}
	}
	if c.ThrusterForceMultiplier < 0 {
		return fmt.Errorf("%w: thruster force multiplier must be >= 0, got %v", ErrInvalidConfig, c.ThrusterForceMultiplier)
	}
	return nil
}

// ActualAccelerationLimit is the artificial limit after the multiplier.
func (c *Config) ActualAccelerationLimit() mgl64.Vec3 {
	return c.AccelerationLimit.Mul(c.AccelerationLimitMultiplier)
}

// AvailLinAccel is what the linear thrusters can deliver. It ignores the
// artificial acceleration limit; clamp it yourself. Zero when mass is not
// positive.
func (c *Config) AvailLinAccel() mgl64.Vec3 {
	if !(c.Mass > 0) {
		return mgl64.Vec3{}
	}
	return c.LinearThrusterForce.Mul(c.ThrusterForceMultiplier / c.Mass)
}

// Derive computes the transient values that depend on the config and the
// craft's shape. Call it every time either changes.
func (c *Config) Derive(dim Dimensions) DerivedConfig {
	axesDiameter := mgl64.Vec3{
		math.Hypot(dim[1], dim[2]),
		math.Hypot(dim[0], dim[2]),
		math.Hypot(dim[0], dim[1]),
	}
	return DerivedConfig{
		ThrusterTorque:           vmath.MulElem(axesDiameter, c.AngularThrusterForce),
		AngularAccelerationLimit: vmath.Splat(math.Inf(1)),
	}
}

// DerivedConfig holds values recomputed from Config and Dimensions.
type DerivedConfig struct {
	// ThrusterTorque of the angular thrusters scaled by the craft's geometry.
	// In N·m, before ThrusterForceMultiplier.
	ThrusterTorque mgl64.Vec3

	// AngularAccelerationLimit is the artificial angular acceleration cap.
	// Infinite by default: crafts use everything the thrusters offer.
	// In rad/s/s.
	AngularAccelerationLimit mgl64.Vec3
}

// LinearState is the linear half of a craft's engine.
type LinearState struct {
	// Velocity in local space, overwritten from physics every tick.
	// In m/s.
	Velocity mgl64.Vec3
	// Input is the desired local velocity.
	Input mgl64.Vec3
	// Flame is the commanded acceleration.
	Flame mgl64.Vec3
}

// AngularState is the angular half of a craft's engine.
type AngularState struct {
	// Velocity in local space.
	// In rad/s.
	Velocity mgl64.Vec3
	Input    mgl64.Vec3
	Flame    mgl64.Vec3
}

// SetParam adjusts one scalar of the engine by its yaml name, for sweeps.
func (c *Config) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		c.Mass = value
	case "acceleration_limit_multiplier":
		c.AccelerationLimitMultiplier = value
	case "thruster_force_multiplier":
		c.ThrusterForceMultiplier = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidConfig, name)
	}
	return nil
}
