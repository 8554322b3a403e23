package physics

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/integrators"
	"github.com/san-kum/craftsim/internal/vmath"
)

// BodyDesc describes a body for AddBody.
type BodyDesc struct {
	Owner    ecs.Entity
	Position mgl64.Vec3
	// Rotation defaults to identity when left zero.
	Rotation mgl64.Quat
	Linvel   mgl64.Vec3
	Angvel   mgl64.Vec3
	Mass     float64
	// Dimensions of the box used for the inertia tensor.
	Dimensions mgl64.Vec3
	// Radius of the sphere collider. Defaults to half the largest dimension.
	Radius float64
	// Static bodies never move and ignore forces.
	Static bool
}

// BodyState is a read-only snapshot of a body.
type BodyState struct {
	Handle   BodyHandle
	Owner    ecs.Entity
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Linvel   mgl64.Vec3
	Angvel   mgl64.Vec3
	Radius   float64
	Static   bool
}

// SensorState is a read-only snapshot of a free-standing sensor.
type SensorState struct {
	Handle   ColliderHandle
	Position mgl64.Vec3
	Radius   float64
}

type body struct {
	owner    ecs.Entity
	pos      mgl64.Vec3
	rot      mgl64.Quat
	linvel   mgl64.Vec3
	angvel   mgl64.Vec3
	mass     float64
	dims     mgl64.Vec3
	static   bool
	resolved bool
	invI     mgl64.Vec3
	force    mgl64.Vec3
	torque   mgl64.Vec3
	collider ColliderHandle
}

type collider struct {
	parent BodyHandle
	pos    mgl64.Vec3
	radius float64
	sensor bool
}

// Space is an in-memory Backend. The zero value is not usable; call NewSpace.
type Space struct {
	mu    sync.RWMutex
	integ integrators.Integrator
	pool  *statePool
	time  float64

	bodies    map[BodyHandle]*body
	bodyOrder []BodyHandle
	colliders map[ColliderHandle]*collider
	colOrder  []ColliderHandle
	nextBody  BodyHandle
	nextCol   ColliderHandle
	contacts  map[ColliderHandle][]ColliderHandle
}

var _ Host = (*Space)(nil)

func NewSpace(integ integrators.Integrator) *Space {
	if integ == nil {
		integ = integrators.NewRK4()
	}
	return &Space{
		integ:     integ,
		pool:      newStatePool(),
		bodies:    make(map[BodyHandle]*body),
		colliders: make(map[ColliderHandle]*collider),
		contacts:  make(map[ColliderHandle][]ColliderHandle),
	}
}

// AddBody inserts a body with a solid sphere collider.
func (s *Space) AddBody(desc BodyDesc) (BodyHandle, ColliderHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rot := desc.Rotation
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}
	radius := desc.Radius
	if radius <= 0 {
		radius = vmath.MaxComponent(desc.Dimensions) / 2
	}

	s.nextBody++
	bh := s.nextBody
	ch := s.addColliderLocked(&collider{parent: bh, radius: radius})

	s.bodies[bh] = &body{
		owner:    desc.Owner,
		pos:      desc.Position,
		rot:      rot.Normalize(),
		linvel:   desc.Linvel,
		angvel:   desc.Angvel,
		mass:     desc.Mass,
		dims:     desc.Dimensions,
		static:   desc.Static,
		collider: ch,
	}
	s.bodyOrder = append(s.bodyOrder, bh)
	return bh, ch
}

// AddSensor inserts a free-standing sensor sphere, such as a waypoint trigger.
func (s *Space) AddSensor(pos mgl64.Vec3, radius float64) ColliderHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addColliderLocked(&collider{pos: pos, radius: radius, sensor: true})
}

func (s *Space) addColliderLocked(c *collider) ColliderHandle {
	s.nextCol++
	s.colliders[s.nextCol] = c
	s.colOrder = append(s.colOrder, s.nextCol)
	return s.nextCol
}

// RemoveBody deletes a body and its collider.
func (s *Space) RemoveBody(b BodyHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bd, ok := s.bodies[b]
	if !ok {
		return false
	}
	delete(s.bodies, b)
	delete(s.colliders, bd.collider)
	s.bodyOrder = removeHandle(s.bodyOrder, b)
	s.colOrder = removeHandle(s.colOrder, bd.collider)
	s.refreshContactsLocked()
	return true
}

func removeHandle[H comparable](hs []H, h H) []H {
	for i, v := range hs {
		if v == h {
			return append(hs[:i], hs[i+1:]...)
		}
	}
	return hs
}

// SetMassProperties also resizes the body's collider to its new box.
func (s *Space) SetMassProperties(b BodyHandle, mass float64, dims mgl64.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bd, ok := s.bodies[b]
	if !ok {
		return false
	}
	bd.mass = mass
	bd.dims = dims
	if bd.resolved {
		bd.invI = boxInvInertia(mass, dims)
	}
	if c, ok := s.colliders[bd.collider]; ok {
		c.radius = vmath.MaxComponent(dims) / 2
	}
	s.refreshContactsLocked()
	return true
}

// Teleport moves a body and sets its linear velocity, then refreshes contacts.
func (s *Space) Teleport(b BodyHandle, pos, linvel mgl64.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bd, ok := s.bodies[b]
	if !ok {
		return false
	}
	bd.pos = pos
	bd.linvel = linvel
	s.refreshContactsLocked()
	return true
}

func (s *Space) Time() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.time
}

func (s *Space) Transform(b BodyHandle) (mgl64.Vec3, mgl64.Quat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bd, ok := s.bodies[b]
	if !ok {
		return mgl64.Vec3{}, mgl64.QuatIdent(), false
	}
	return bd.pos, bd.rot, true
}

func (s *Space) Velocity(b BodyHandle) (mgl64.Vec3, mgl64.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bd, ok := s.bodies[b]
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return bd.linvel, bd.angvel, true
}

func (s *Space) InvPrincipalInertia(b BodyHandle) (mgl64.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bd, ok := s.bodies[b]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return bd.invI, true
}

func (s *Space) AddForce(b BodyHandle, force mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bd, ok := s.bodies[b]; ok {
		bd.force = bd.force.Add(force)
	}
}

func (s *Space) AddTorque(b BodyHandle, torque mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bd, ok := s.bodies[b]; ok {
		bd.torque = bd.torque.Add(torque)
	}
}

// PendingForce returns the force and torque accumulated since the last step.
func (s *Space) PendingForce(b BodyHandle) (force, torque mgl64.Vec3) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bd, ok := s.bodies[b]; ok {
		return bd.force, bd.torque
	}
	return mgl64.Vec3{}, mgl64.Vec3{}
}

func (s *Space) IntersectionsWith(c ColliderHandle) []ColliderHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := s.contacts[c]
	out := make([]ColliderHandle, len(hits))
	copy(out, hits)
	return out
}

func (s *Space) ColliderParent(c ColliderHandle) (BodyHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.colliders[c]
	if !ok || col.parent == 0 {
		return 0, false
	}
	return col.parent, true
}

func (s *Space) ColliderPosition(c ColliderHandle) (mgl64.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.colliders[c]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return s.colliderPosLocked(col), true
}

func (s *Space) colliderPosLocked(c *collider) mgl64.Vec3 {
	if c.parent != 0 {
		if bd, ok := s.bodies[c.parent]; ok {
			return bd.pos
		}
	}
	return c.pos
}

func (s *Space) BodyOwner(b BodyHandle) (ecs.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bd, ok := s.bodies[b]
	if !ok || bd.owner.IsZero() {
		return ecs.Nil, false
	}
	return bd.owner, true
}

func (s *Space) CastSphere(origin, vel mgl64.Vec3, radius, maxToi float64, exclude BodyHandle) (Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := Hit{Toi: math.Inf(1)}
	found := false
	a := vel.Dot(vel)

	for _, ch := range s.colOrder {
		col := s.colliders[ch]
		if col.sensor || (exclude != 0 && col.parent == exclude) {
			continue
		}
		center := s.colliderPosLocked(col)
		reach := radius + col.radius
		m := origin.Sub(center)
		c := m.Dot(m) - reach*reach

		var toi float64
		switch {
		case c <= 0:
			toi = 0
		case a == 0:
			continue
		default:
			b := 2 * m.Dot(vel)
			disc := b*b - 4*a*c
			if disc < 0 {
				continue
			}
			toi = (-b - math.Sqrt(disc)) / (2 * a)
			if toi < 0 || toi > maxToi {
				continue
			}
		}
		if toi >= best.Toi {
			continue
		}

		normal := vmath.NormalizeOrZero(origin.Add(vel.Mul(toi)).Sub(center))
		best = Hit{
			Collider: ch,
			Toi:      toi,
			Point:    center.Add(normal.Mul(col.radius)),
			Normal:   normal,
		}
		found = true
	}
	return best, found
}

// Step integrates every dynamic body by dt, clears the force accumulators and
// recomputes sensor overlaps. Mass properties of new bodies are resolved here.
func (s *Space) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bh := range s.bodyOrder {
		bd := s.bodies[bh]
		if bd.static {
			bd.force, bd.torque = mgl64.Vec3{}, mgl64.Vec3{}
			continue
		}
		if !bd.resolved {
			bd.invI = boxInvInertia(bd.mass, bd.dims)
			bd.resolved = true
		}
		s.integrateLocked(bd, dt)
		bd.force, bd.torque = mgl64.Vec3{}, mgl64.Vec3{}
	}

	s.time += dt
	s.refreshContactsLocked()
}

func (s *Space) integrateLocked(bd *body, dt float64) {
	var accel mgl64.Vec3
	if bd.mass > 0 {
		accel = bd.force.Mul(1 / bd.mass)
	}

	x := s.pool.get()
	copy(x[0:3], bd.pos[:])
	copy(x[3:6], bd.linvel[:])
	next := s.integ.Step(integrators.SystemFunc(func(x integrators.State, t float64) integrators.State {
		return integrators.State{x[3], x[4], x[5], accel[0], accel[1], accel[2]}
	}), x, s.time, dt)
	s.pool.put(x)
	bd.pos = mgl64.Vec3{next[0], next[1], next[2]}
	bd.linvel = mgl64.Vec3{next[3], next[4], next[5]}

	alpha := vmath.MulElem(vmath.ToLocal(bd.rot, bd.torque), bd.invI)
	bd.angvel = bd.angvel.Add(vmath.ToWorld(bd.rot, alpha).Mul(dt))

	if w := bd.angvel.Len(); w > 0 {
		spin := mgl64.QuatRotate(w*dt, bd.angvel.Mul(1/w))
		bd.rot = spin.Mul(bd.rot).Normalize()
	}
}

// boxInvInertia returns 1/I for a solid box. Degenerate axes report zero.
func boxInvInertia(mass float64, dims mgl64.Vec3) mgl64.Vec3 {
	if !(mass > 0) {
		return mgl64.Vec3{}
	}
	sq := vmath.MulElem(dims, dims)
	inertia := mgl64.Vec3{
		mass / 12 * (sq[1] + sq[2]),
		mass / 12 * (sq[0] + sq[2]),
		mass / 12 * (sq[0] + sq[1]),
	}
	var inv mgl64.Vec3
	for i := 0; i < 3; i++ {
		if inertia[i] > 0 {
			inv[i] = 1 / inertia[i]
		}
	}
	return inv
}

// RefreshContacts recomputes sensor overlaps without advancing time.
func (s *Space) RefreshContacts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshContactsLocked()
}

func (s *Space) refreshContactsLocked() {
	clear(s.contacts)
	for _, sh := range s.colOrder {
		sensor := s.colliders[sh]
		if !sensor.sensor {
			continue
		}
		for _, ch := range s.colOrder {
			col := s.colliders[ch]
			if col.sensor {
				continue
			}
			reach := sensor.radius + col.radius
			d := s.colliderPosLocked(col).Sub(sensor.pos)
			if d.Dot(d) < reach*reach {
				s.contacts[sh] = append(s.contacts[sh], ch)
				s.contacts[ch] = append(s.contacts[ch], sh)
			}
		}
	}
}

// Bodies returns snapshots of all bodies in insertion order.
func (s *Space) Bodies() []BodyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BodyState, 0, len(s.bodyOrder))
	for _, bh := range s.bodyOrder {
		bd := s.bodies[bh]
		out = append(out, BodyState{
			Handle:   bh,
			Owner:    bd.owner,
			Position: bd.pos,
			Rotation: bd.rot,
			Linvel:   bd.linvel,
			Angvel:   bd.angvel,
			Radius:   s.colliders[bd.collider].radius,
			Static:   bd.static,
		})
	}
	return out
}

// Sensors returns snapshots of all free-standing sensors.
func (s *Space) Sensors() []SensorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SensorState
	for _, ch := range s.colOrder {
		col := s.colliders[ch]
		if col.sensor {
			out = append(out, SensorState{Handle: ch, Position: col.pos, Radius: col.radius})
		}
	}
	return out
}
