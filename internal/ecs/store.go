package ecs

import "github.com/mlange-42/ark/ecs"

// Store holds one component of type T per entity on top of an ark map.
// Iteration follows ark's table order, which is stable for a given history
// of spawns and removals.
type Store[T any] struct {
	es     *Entities
	m      *ecs.Map[T]
	filter *ecs.Filter1[T]
}

func NewStore[T any](es *Entities) *Store[T] {
	return &Store[T]{
		es:     es,
		m:      ecs.NewMap[T](es.World()),
		filter: ecs.NewFilter1[T](es.World()),
	}
}

// Insert sets the component for e, replacing any previous value.
// Dead and nil entities are ignored.
func (s *Store[T]) Insert(e Entity, val T) {
	if !s.es.Alive(e) {
		return
	}
	if s.m.Has(e) {
		*s.m.Get(e) = val
		return
	}
	s.m.Add(e, &val)
}

// Get returns a pointer into the store. The pointer is valid until the next
// insert into or removal from s.
func (s *Store[T]) Get(e Entity) (*T, bool) {
	if !s.Has(e) {
		return nil, false
	}
	return s.m.Get(e), true
}

func (s *Store[T]) Has(e Entity) bool {
	return s.es.Alive(e) && s.m.Has(e)
}

// Remove deletes the component of e and reports whether there was one.
func (s *Store[T]) Remove(e Entity) bool {
	if !s.Has(e) {
		return false
	}
	s.m.Remove(e)
	return true
}

func (s *Store[T]) Len() int {
	q := s.filter.Query()
	n := q.Count()
	q.Close()
	return n
}

// Entities returns a snapshot of the entities that own a component.
func (s *Store[T]) Entities() []Entity {
	q := s.filter.Query()
	out := make([]Entity, 0, q.Count())
	for q.Next() {
		out = append(out, q.Entity())
	}
	return out
}

// Each calls fn for every component in table order. Returning false stops
// the iteration. fn may spawn and destroy; entities removed before their
// turn are skipped.
func (s *Store[T]) Each(fn func(e Entity, val *T) bool) {
	for _, e := range s.Entities() {
		val, ok := s.Get(e)
		if !ok {
			continue
		}
		if !fn(e, val) {
			return
		}
	}
}
