package storage

import (
	"io"
	"sync"
)

// MemBackend represents an in-memory backend for storage
// mostly for testing purposes
type MemBackend struct {
	lock sync.Mutex
	data []byte
}

func NewMemBackend() *MemBackend {
	mb := new(MemBackend)
	mb.data = make([]byte, 0, 4096)
	return mb
}

func (mb *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	mb.lock.Lock()
	defer mb.lock.Unlock()

	end := int(off) + len(p)
	if end > len(mb.data) {
		mb.data = append(mb.data, make([]byte, end-len(mb.data))...)
	}
	copy(mb.data[off:end], p)
	return len(p), nil
}

func (mb *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	mb.lock.Lock()
	defer mb.lock.Unlock()

	if int(off) >= len(mb.data) {
		return 0, io.EOF
	}
	n := copy(p, mb.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Len returns the current length of the backend contents
func (mb *MemBackend) Len() int {
	mb.lock.Lock()
	defer mb.lock.Unlock()
	return len(mb.data)
}

// Bytes returns a copy of the backend contents
func (mb *MemBackend) Bytes() []byte {
	mb.lock.Lock()
	defer mb.lock.Unlock()
	out := make([]byte, len(mb.data))
	copy(out, mb.data)
	return out
}
