package selection

import (
	"payment-router/internal/entities"
	"sync/atomic"
)

// Local is a selection shared only by goroutines of the current process.
type Local struct {
	current atomic.Uint32
}

func NewLocal(g entities.Gateway) *Local {
	l := &Local{}
	l.Set(g)
	return l
}

func (l *Local) Get() entities.Gateway {
	return entities.Gateway(l.current.Load())
}

func (l *Local) Set(g entities.Gateway) {
	l.current.Store(uint32(g))
}

func (l *Local) Close() error {
	return nil
}
