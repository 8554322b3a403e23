package ecs

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// Entity is ark's generation-checked handle. The zero value is Nil.
type Entity = ecs.Entity

// Nil never resolves to a live entity.
var Nil Entity

// Format renders e for logs and status lines.
func Format(e Entity) string {
	if e.IsZero() {
		return "entity(nil)"
	}
	return fmt.Sprintf("entity(%d)", e.ID())
}

// Entities is the arena every component store lives in. Unlike the bare ark
// world it answers liveness for Nil and stale handles instead of panicking.
type Entities struct {
	world ecs.World
	live  int
}

func NewEntities() *Entities {
	return &Entities{world: ecs.NewWorld()}
}

// World exposes the underlying ark world for mappers and filters.
func (es *Entities) World() *ecs.World { return &es.world }

// Create reserves a new live entity without components.
func (es *Entities) Create() Entity {
	es.live++
	return es.world.NewEntity()
}

// Destroy invalidates e and drops all its components. Returns false if e was
// already stale.
func (es *Entities) Destroy(e Entity) bool {
	if !es.Alive(e) {
		return false
	}
	es.world.RemoveEntity(e)
	es.live--
	return true
}

func (es *Entities) Alive(e Entity) bool {
	return !e.IsZero() && es.world.Alive(e)
}

// Len returns the number of live entities.
func (es *Entities) Len() int { return es.live }
