package storage

import (
	"sync"
	"sync/atomic"
)

// gate guards all structural state of a Storage. Readers share it,
// writers hold it alone. A waiting writer blocks new readers.
type gate struct {
	locker  sync.RWMutex
	readers atomic.Int64
	writes  atomic.Uint64
}

func (g *gate) read(fn func() error) error {
	g.locker.RLock()
	g.readers.Add(1)
	defer func() {
		g.readers.Add(-1)
		g.locker.RUnlock()
	}()
	return fn()
}

// write runs fn alone. Only sections that succeed are counted.
func (g *gate) write(fn func() error) error {
	err := g.exclusive(fn)
	if err == nil {
		g.writes.Add(1)
	}
	return err
}

func (g *gate) exclusive(fn func() error) error {
	g.locker.Lock()
	defer g.locker.Unlock()
	return fn()
}

func (g *gate) activeReaders() int64 {
	return g.readers.Load()
}

func (g *gate) writeCount() uint64 {
	return g.writes.Load()
}
