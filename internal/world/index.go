package world

import (
	"slices"

	"github.com/san-kum/craftsim/internal/ecs"
)

// KindIndex maps a kind to the live entities of that kind. It is kept in sync
// by the World on every create and destroy.
type KindIndex[K comparable] struct {
	byKind map[K][]ecs.Entity
}

// Of returns the entities of kind k, or false when there are none.
func (idx *KindIndex[K]) Of(k K) ([]ecs.Entity, bool) {
	ents := idx.byKind[k]
	return ents, len(ents) > 0
}

func (idx *KindIndex[K]) add(k K, e ecs.Entity) {
	if idx.byKind == nil {
		idx.byKind = make(map[K][]ecs.Entity)
	}
	idx.byKind[k] = append(idx.byKind[k], e)
}

func (idx *KindIndex[K]) remove(k K, e ecs.Entity) {
	ents := idx.byKind[k]
	if i := slices.Index(ents, e); i >= 0 {
		ents = slices.Delete(ents, i, i+1)
	}
	if len(ents) == 0 {
		delete(idx.byKind, k)
		return
	}
	idx.byKind[k] = ents
}

// All returns every indexed entity, grouped by kind in no particular order.
func (idx *KindIndex[K]) All() []ecs.Entity {
	var out []ecs.Entity
	for _, ents := range idx.byKind {
		out = append(out, ents...)
	}
	return out
}

// Len counts the indexed entities.
func (idx *KindIndex[K]) Len() int {
	n := 0
	for _, ents := range idx.byKind {
		n += len(ents)
	}
	return n
}
