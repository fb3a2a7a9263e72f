package storage

import "sync"

// registry remembers which stores have a live engine in this process
var registry = struct {
	sync.Mutex
	claimed map[interface{}]bool
}{claimed: make(map[interface{}]bool)}

func claimStore(key interface{}) error {
	registry.Lock()
	defer registry.Unlock()
	if registry.claimed[key] {
		return ErrAlreadyInitialized
	}
	registry.claimed[key] = true
	return nil
}

func releaseStore(key interface{}) {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.claimed, key)
}
