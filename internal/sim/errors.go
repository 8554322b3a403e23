package sim

import (
	"errors"
	"fmt"
)

// ErrDiverged is returned when tracked telemetry stops being finite.
var ErrDiverged = errors.New("sim: state diverged (NaN or Inf)")

// TickError reports the tick and stage a system failed in.
type TickError struct {
	Tick  int
	Stage string
	Err   error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d, stage %s: %v", e.Tick, e.Stage, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}
