package physics

import (
	"sync"

	"github.com/san-kum/craftsim/internal/integrators"
)

// statePool recycles the position/velocity vectors fed to the integrator.
type statePool struct {
	pool sync.Pool
}

const bodyStateLen = 6

func newStatePool() *statePool {
	return &statePool{
		pool: sync.Pool{
			New: func() interface{} {
				return make(integrators.State, bodyStateLen)
			},
		},
	}
}

func (p *statePool) get() integrators.State {
	return p.pool.Get().(integrators.State)
}

func (p *statePool) put(s integrators.State) {
	if len(s) == bodyStateLen {
		clear(s)
		p.pool.Put(s)
	}
}
