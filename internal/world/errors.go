package world

import (
	"errors"
	"fmt"

	"github.com/san-kum/craftsim/internal/ecs"
)

var (
	// ErrInvariant marks a reference that must resolve but did not. It means
	// a lifecycle bug, never a transient condition.
	ErrInvariant = errors.New("world: invariant violated")

	// ErrUnknownEntity is returned by lifecycle calls given a dead or unknown entity.
	ErrUnknownEntity = errors.New("world: unknown entity")

	// ErrNotCraft is returned when an entity expected to be a craft is not one.
	ErrNotCraft = errors.New("world: entity is not a craft")
)

// InvariantError carries the system stage and entity that broke an invariant.
type InvariantError struct {
	Stage  string
	Entity ecs.Entity
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v in %s at %s: %s", ErrInvariant, e.Stage, ecs.Format(e.Entity), e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariant(stage string, e ecs.Entity, format string, args ...any) error {
	return &InvariantError{Stage: stage, Entity: e, Detail: fmt.Sprintf(format, args...)}
}
