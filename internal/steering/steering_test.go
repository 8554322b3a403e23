package steering

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/vmath"
)

func testAgent() Agent {
	return Agent{
		Rotation:    mgl64.QuatIdent(),
		LinvelLimit: mgl64.Vec3{100, 100, 200},
		AngvelLimit: mgl64.Vec3{3, 3, 3},
		AvailAccel:  mgl64.Vec3{66, 66, 100},
	}
}

func TestKindProduces(t *testing.T) {
	tests := []struct {
		kind     Kind
		lin, ang bool
	}{
		{KindSeek, true, false},
		{KindArrive, true, false},
		{KindAvoidCollision, true, false},
		{KindIntercept, true, false},
		{KindFlyWithFlock, true, true},
		{KindCompose, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			lin, ang := tt.kind.Produces()
			if lin != tt.lin || ang != tt.ang {
				t.Errorf("expected (%v, %v), got (%v, %v)", tt.lin, tt.ang, lin, ang)
			}
		})
	}
}

func TestSeekPosition(t *testing.T) {
	got := SeekPosition(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, -9})
	if !got.ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Errorf("expected forward, got %v", got)
	}
	if got := SeekPosition(mgl64.Vec3{2, 2, 2}, mgl64.Vec3{2, 2, 2}); got != (mgl64.Vec3{}) {
		t.Errorf("expected zero at the target, got %v", got)
	}
}

func TestArriveWithinTolerance(t *testing.T) {
	agent := testAgent()
	agent.Position = mgl64.Vec3{3, 0, 0}
	agent.Velocity = mgl64.Vec3{0, 0, -40}

	got := ArriveVelocity(agent, Arrive{
		Target:           ArriveTarget{Position: mgl64.Vec3{}, WithSpeed: 80},
		ArrivalTolerance: 5,
	})
	if got != (mgl64.Vec3{}) {
		t.Errorf("expected zero inside tolerance, got %v", got)
	}
}

func TestArriveBoundedFromRest(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	agent := testAgent()
	accel := vmath.MinComponent(agent.AvailAccel)

	for i := 0; i < 200; i++ {
		agent.Position = mgl64.Vec3{
			rng.Float64()*2000 - 1000,
			rng.Float64()*2000 - 1000,
			rng.Float64()*2000 - 1000,
		}
		p := Arrive{
			Target:           ArriveTarget{Position: mgl64.Vec3{}, WithSpeed: rng.Float64() * 150},
			ArrivalTolerance: 5,
		}
		if i%2 == 0 {
			p.DecelerationRadius = 300
		}

		got := ArriveVelocity(agent, p)
		if got.Len() > accel+1e-9 {
			t.Fatalf("case %d: |output| %v exceeds avail accel %v", i, got.Len(), accel)
		}
	}
}

func TestArriveChangeBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	agent := testAgent()
	accel := vmath.MinComponent(agent.AvailAccel)
	p := Arrive{Target: ArriveTarget{Position: mgl64.Vec3{}, WithSpeed: 80}, ArrivalTolerance: 5}

	for i := 0; i < 200; i++ {
		agent.Position = mgl64.Vec3{
			rng.Float64()*2000 - 1000,
			rng.Float64()*2000 - 1000,
			rng.Float64()*2000 - 1000,
		}
		agent.Velocity = mgl64.Vec3{
			rng.Float64()*160 - 80,
			rng.Float64()*160 - 80,
			rng.Float64()*160 - 80,
		}
		got := ArriveVelocity(agent, p)
		if d := got.Sub(agent.Velocity).Len(); d > accel+1e-9 {
			t.Fatalf("case %d: velocity change %v exceeds avail accel %v", i, d, accel)
		}
	}
}

func TestArriveConverges(t *testing.T) {
	agent := testAgent()
	agent.Position = mgl64.Vec3{0, 0, 1000}
	p := Arrive{Target: ArriveTarget{Position: mgl64.Vec3{}, WithSpeed: 0}, ArrivalTolerance: 5}

	dt := 0.05
	for i := 0; i < 4000; i++ {
		agent.Velocity = ArriveVelocity(agent, p)
		if agent.Velocity.Len() > agent.SpeedLimit()+1e-9 {
			t.Fatalf("tick %d: speed %v over the limit", i, agent.Velocity.Len())
		}
		agent.Position = agent.Position.Add(agent.Velocity.Mul(dt))
		if agent.Position.Len() <= p.ArrivalTolerance {
			return
		}
	}
	t.Errorf("never arrived, stopped at %v", agent.Position)
}

func TestArriveDecelerationRamp(t *testing.T) {
	agent := testAgent()
	agent.AvailAccel = vmath.Splat(1e9)
	p := Arrive{
		Target:             ArriveTarget{Position: mgl64.Vec3{}, WithSpeed: 20},
		ArrivalTolerance:   0,
		DecelerationRadius: 100,
	}

	agent.Position = mgl64.Vec3{500, 0, 0}
	if got := ArriveVelocity(agent, p).Len(); math.Abs(got-100) > 1e-9 {
		t.Errorf("outside the radius expected the speed limit, got %v", got)
	}

	agent.Position = mgl64.Vec3{50, 0, 0}
	if got := ArriveVelocity(agent, p).Len(); math.Abs(got-60) > 1e-9 {
		t.Errorf("half way through the ramp expected 60, got %v", got)
	}
}

func TestAvoidVelocity(t *testing.T) {
	agent := testAgent()
	agent.Velocity = mgl64.Vec3{0, 0, -50}

	if got := AvoidVelocity(agent, nil); got != (mgl64.Vec3{}) {
		t.Errorf("expected zero without a hit, got %v", got)
	}

	hit := &physics.Hit{Normal: mgl64.Vec3{1, 0, 1}.Normalize()}
	got := AvoidVelocity(agent, hit)
	if !got.ApproxEqualThreshold(mgl64.Vec3{100, 0, 0}, 1e-9) {
		t.Errorf("expected sideways strafe, got %v", got)
	}

	headOn := &physics.Hit{Normal: mgl64.Vec3{0, 0, 1}}
	got = AvoidVelocity(agent, headOn)
	if !got.ApproxEqualThreshold(mgl64.Vec3{0, 100, 0}, 1e-9) {
		t.Errorf("expected climb when head-on, got %v", got)
	}
}

func TestInterceptLeadsTarget(t *testing.T) {
	agent := testAgent()
	got := InterceptVelocity(agent, mgl64.Vec3{0, 0, -100}, mgl64.Vec3{10, 0, 0}, 100)

	want := SeekVelocity(agent, mgl64.Vec3{10, 0, -100}, 100)
	if !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if math.Abs(got.Len()-100) > 1e-9 {
		t.Errorf("expected intercept speed 100, got %v", got.Len())
	}
}

func TestFlockVelocity(t *testing.T) {
	agent := testAgent()
	agent.Velocity = mgl64.Vec3{0, 0, -10}
	p := DefaultFlyWithFlock()

	if got := FlockVelocity(agent, nil, p); got != agent.Velocity {
		t.Errorf("expected unchanged velocity alone, got %v", got)
	}

	crowd := []Agent{
		{Position: mgl64.Vec3{10, 0, 0}, Velocity: mgl64.Vec3{0, 0, -30}},
	}
	got := FlockVelocity(agent, crowd, p)
	if got[0] >= 0 {
		t.Errorf("expected separation away from a close neighbour, got %v", got)
	}
	if got[2] >= agent.Velocity[2] {
		t.Errorf("expected alignment toward the faster neighbour, got %v", got)
	}

	agent.Velocity = mgl64.Vec3{0, 0, -1000}
	if got := FlockVelocity(agent, nil, p); math.Abs(got.Len()-agent.SpeedLimit()) > 1e-9 {
		t.Errorf("expected speed capped at the limit, got %v", got.Len())
	}
}

func TestFaceVelocity(t *testing.T) {
	agent := testAgent()
	if got := FaceVelocity(agent, mgl64.Vec3{0, 0, -10}); !vmath.IsZero(got, 1e-12) {
		t.Errorf("expected no turn when already facing, got %v", got)
	}
	got := FaceVelocity(agent, mgl64.Vec3{-10, 0, 0})
	if got[1] <= 0 {
		t.Errorf("expected a positive yaw to turn left, got %v", got)
	}
}

func TestMergePriorityOverride(t *testing.T) {
	es := ecs.NewEntities()
	a, b := es.Create(), es.Create()
	trivial := Output{HasLinear: true}
	active := Output{Linear: mgl64.Vec3{1, 2, 3}, HasLinear: true}
	other := Output{Linear: mgl64.Vec3{-5, 0, 0}, HasLinear: true}

	tests := []struct {
		name    string
		outputs map[ecs.Entity]Output
		want    Output
	}{
		{"first trivial", map[ecs.Entity]Output{a: trivial, b: active}, active},
		{"both active", map[ecs.Entity]Output{a: other, b: active}, other},
		{"none active", map[ecs.Entity]Output{a: trivial, b: trivial}, Output{HasLinear: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(PriorityOverride{Routines: []ecs.Entity{a, b}}, func(e ecs.Entity) (Output, bool) {
				out, ok := tt.outputs[e]
				return out, ok
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMergeMissingChild(t *testing.T) {
	es := ecs.NewEntities()
	a := es.Create()

	_, err := Merge(PriorityOverride{Routines: []ecs.Entity{a}}, func(ecs.Entity) (Output, bool) {
		return Output{}, false
	})
	if !errors.Is(err, ErrMissingChild) {
		t.Errorf("expected ErrMissingChild, got %v", err)
	}
}

func TestMergeWeightedBlend(t *testing.T) {
	es := ecs.NewEntities()
	a, b := es.Create(), es.Create()
	outputs := map[ecs.Entity]Output{
		a: {Linear: mgl64.Vec3{10, 0, 0}, HasLinear: true},
		b: {Angular: mgl64.Vec3{0, 4, 0}, HasAngular: true},
	}

	got, err := Merge(WeightedBlend{Entries: []Weighted{{a, 3}, {b, 1}}}, func(e ecs.Entity) (Output, bool) {
		out, ok := outputs[e]
		return out, ok
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Linear.ApproxEqual(mgl64.Vec3{7.5, 0, 0}) || !got.Angular.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("unexpected blend %+v", got)
	}
	if !got.HasLinear || !got.HasAngular {
		t.Errorf("blend should carry both capabilities, got %+v", got)
	}

	children := WeightedBlend{Entries: []Weighted{{a, 3}, {b, 1}}}.Children()
	if len(children) != 2 || children[0] != a || children[1] != b {
		t.Errorf("unexpected children %v", children)
	}
}
