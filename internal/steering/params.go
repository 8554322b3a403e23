package steering

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
)

// Params is the closed set of routine parameter records.
type Params interface {
	Kind() Kind
	params()
}

// Target is either a fixed point or a live object. Object wins when set.
type Target struct {
	Position mgl64.Vec3
	Object   ecs.Entity
}

func PositionTarget(pos mgl64.Vec3) Target { return Target{Position: pos} }
func ObjectTarget(e ecs.Entity) Target     { return Target{Object: e} }

type Seek struct {
	Target Target
	// Speed in m/s.
	Speed float64
}

// ArriveTarget is the point to reach and the speed to have when reaching it.
type ArriveTarget struct {
	Position  mgl64.Vec3
	WithSpeed float64
}

type Arrive struct {
	Target           ArriveTarget
	ArrivalTolerance float64
	// DecelerationRadius switches to a linear speed ramp inside this distance.
	// Zero uses the kinematic braking curve.
	DecelerationRadius float64
}

type AvoidCollision struct {
	CastShapeRadius float64
	// RaycastToiModifier is how many seconds ahead along the current
	// velocity to look.
	RaycastToiModifier float64
}

type Intercept struct {
	Target ecs.Entity
	Speed  float64
}

// FlyWithFlock follows the classic boids rules over crafts in VisualRange.
type FlyWithFlock struct {
	VisualRange     float64
	ProtectedRange  float64
	AvoidFactor     float64
	MatchingFactor  float64
	CenteringFactor float64
}

func DefaultFlyWithFlock() FlyWithFlock {
	return FlyWithFlock{
		VisualRange:     400,
		ProtectedRange:  60,
		AvoidFactor:     0.05,
		MatchingFactor:  0.05,
		CenteringFactor: 0.0005,
	}
}

// Compose merges child routines under a policy.
type Compose struct {
	Policy Policy
}

func (Seek) Kind() Kind           { return KindSeek }
func (Arrive) Kind() Kind         { return KindArrive }
func (AvoidCollision) Kind() Kind { return KindAvoidCollision }
func (Intercept) Kind() Kind      { return KindIntercept }
func (FlyWithFlock) Kind() Kind   { return KindFlyWithFlock }
func (Compose) Kind() Kind        { return KindCompose }

func (Seek) params()           {}
func (Arrive) params()         {}
func (AvoidCollision) params() {}
func (Intercept) params()      {}
func (FlyWithFlock) params()   {}
func (Compose) params()        {}
