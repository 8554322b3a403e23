package steering

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/vmath"
)

// Agent is the world state a behaviour law sees for one craft.
type Agent struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	// Velocity is world-space.
	Velocity    mgl64.Vec3
	LinvelLimit mgl64.Vec3
	AngvelLimit mgl64.Vec3
	// AvailAccel is the linear acceleration the thrusters can deliver.
	AvailAccel mgl64.Vec3
}

// SpeedLimit is the largest speed allowed along any direction.
func (a Agent) SpeedLimit() float64 {
	return vmath.MinComponent(vmath.Abs(a.LinvelLimit))
}

// SeekPosition returns the unit direction from pos to target, or zero when
// they coincide.
func SeekPosition(pos, target mgl64.Vec3) mgl64.Vec3 {
	return vmath.NormalizeOrZero(target.Sub(pos))
}

func SeekVelocity(agent Agent, target mgl64.Vec3, speed float64) mgl64.Vec3 {
	return SeekPosition(agent.Position, target).Mul(speed)
}

// ArriveVelocity brakes toward the target so that the craft reaches it at
// WithSpeed. The result never differs from the current velocity by more than
// one second of the weakest available acceleration.
func ArriveVelocity(agent Agent, p Arrive) mgl64.Vec3 {
	offset := p.Target.Position.Sub(agent.Position)
	dist := offset.Len()
	if dist <= p.ArrivalTolerance {
		return mgl64.Vec3{}
	}

	accel := vmath.MinComponent(vmath.Abs(agent.AvailAccel))
	remaining := dist - p.ArrivalTolerance
	limit := agent.SpeedLimit()
	with := math.Min(math.Abs(p.Target.WithSpeed), limit)

	var speed float64
	if p.DecelerationRadius > 0 {
		speed = limit
		if remaining < p.DecelerationRadius {
			speed = with + (limit-with)*remaining/p.DecelerationRadius
		}
	} else {
		speed = math.Min(math.Sqrt(with*with+2*accel*remaining), limit)
	}

	desired := offset.Mul(speed / dist)
	change := desired.Sub(agent.Velocity)
	if l := change.Len(); l > accel {
		desired = agent.Velocity.Add(change.Mul(accel / l))
	}
	return desired
}

// AvoidVelocity steers sideways from the surface a sphere cast hit. Without a
// hit there is nothing to avoid.
func AvoidVelocity(agent Agent, hit *physics.Hit) mgl64.Vec3 {
	if hit == nil {
		return mgl64.Vec3{}
	}
	heading := vmath.NormalizeOrZero(agent.Velocity)
	lateral := hit.Normal.Sub(heading.Mul(hit.Normal.Dot(heading)))
	if vmath.IsZero(lateral, TrivialEpsilon) {
		lateral = vmath.ToWorld(agent.Rotation, vmath.Up)
	}
	strafe := math.Min(math.Abs(agent.LinvelLimit[0]), math.Abs(agent.LinvelLimit[1]))
	return vmath.NormalizeOrZero(lateral).Mul(strafe)
}

// InterceptVelocity seeks the point the target will be at when a craft
// flying at speed gets there.
func InterceptVelocity(agent Agent, targetPos, targetVel mgl64.Vec3, speed float64) mgl64.Vec3 {
	lead := 0.0
	if speed > 0 {
		lead = targetPos.Sub(agent.Position).Len() / speed
	}
	predicted := targetPos.Add(targetVel.Mul(lead))
	return SeekVelocity(agent, predicted, speed)
}

// FlockVelocity applies separation, alignment and cohesion against the
// neighbours within range, capped by the agent's speed limit.
func FlockVelocity(agent Agent, neighbours []Agent, p FlyWithFlock) mgl64.Vec3 {
	vel := agent.Velocity

	var push, velSum, posSum mgl64.Vec3
	count := 0.0
	for _, other := range neighbours {
		d := agent.Position.Sub(other.Position)
		distSq := d.Dot(d)

		if distSq < p.ProtectedRange*p.ProtectedRange {
			push = push.Add(d)
		}
		if distSq < p.VisualRange*p.VisualRange {
			velSum = velSum.Add(other.Velocity)
			posSum = posSum.Add(other.Position)
			count++
		}
	}

	vel = vel.Add(push.Mul(p.AvoidFactor))
	if count > 0 {
		vel = vel.Add(velSum.Mul(1 / count).Sub(vel).Mul(p.MatchingFactor))
		vel = vel.Add(posSum.Mul(1 / count).Sub(agent.Position).Mul(p.CenteringFactor))
	}

	if limit := agent.SpeedLimit(); vel.Len() > limit {
		vel = vmath.NormalizeOrZero(vel).Mul(limit)
	}
	return vel
}

// FaceVelocity is the local angular velocity that turns the nose toward a
// world-space linear velocity.
func FaceVelocity(agent Agent, linear mgl64.Vec3) mgl64.Vec3 {
	local := vmath.NormalizeOrZero(vmath.ToLocal(agent.Rotation, linear))
	return vmath.MulElem(vmath.LookTo(local), agent.AngvelLimit)
}
