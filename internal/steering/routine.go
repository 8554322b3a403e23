package steering

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/vmath"
)

// Kind tags a routine with its behaviour.
type Kind int

const (
	KindSeek Kind = iota + 1
	KindArrive
	KindAvoidCollision
	KindIntercept
	KindFlyWithFlock
	KindCompose
)

var kindNames = map[Kind]string{
	KindSeek:           "seek",
	KindArrive:         "arrive",
	KindAvoidCollision: "avoid_collision",
	KindIntercept:      "intercept",
	KindFlyWithFlock:   "fly_with_flock",
	KindCompose:        "compose",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Produces reports which outputs routines of this kind compute.
func (k Kind) Produces() (linear, angular bool) {
	switch k {
	case KindSeek, KindArrive, KindAvoidCollision, KindIntercept:
		return true, false
	case KindFlyWithFlock, KindCompose:
		return true, true
	}
	return false, false
}

// TrivialEpsilon is the magnitude under which an output counts as zero.
const TrivialEpsilon = 1e-6

// Output is what a routine computed on its last update.
type Output struct {
	Linear     mgl64.Vec3
	HasLinear  bool
	Angular    mgl64.Vec3
	HasAngular bool
}

// Trivial reports whether the output asks for nothing.
func (o Output) Trivial() bool {
	return vmath.IsZero(o.Linear, TrivialEpsilon) && vmath.IsZero(o.Angular, TrivialEpsilon)
}

// Routine is one steering behaviour instance owned by a craft.
// Inactive routines keep their params and last output but are not updated.
type Routine struct {
	Craft  ecs.Entity
	Active bool
	Params Params
	Output Output
}

func NewRoutine(craft ecs.Entity, params Params) Routine {
	lin, ang := params.Kind().Produces()
	return Routine{
		Craft:  craft,
		Active: true,
		Params: params,
		Output: Output{HasLinear: lin, HasAngular: ang},
	}
}

func (r *Routine) Kind() Kind { return r.Params.Kind() }
