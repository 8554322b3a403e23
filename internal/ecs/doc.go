// Package ecs adapts the ark entity component system to the control core.
//
// Every simulated object (craft, steering routine, strategy, waypoint) is an
// ark [Entity]: an id plus a generation. Removing an entity bumps the
// generation of its id, so handles held elsewhere become stale and fail
// every lookup instead of aliasing whatever reuses the id.
//
//   - [Entities]: the ark world, with liveness checks that accept Nil
//   - [Store]: one component type, kept in an ark map
//
// # Thread Safety
//
// Neither type is synchronized. Concurrent readers are fine as long as no
// goroutine creates, destroys, inserts or removes at the same time.
package ecs
