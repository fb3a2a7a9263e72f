package storage

import (
	"bytes"
	"fmt"
)

type inode struct {
	name       string
	size       int
	firstBlock int
}

// inodeTable is the fixed set of directory slots. A nil slot is unused.
type inodeTable struct {
	slots []*inode
}

func newInodeTable(maxFiles int) *inodeTable {
	return &inodeTable{slots: make([]*inode, maxFiles)}
}

// findByName returns the slot holding name. If several slots match,
// the last one wins.
func (t *inodeTable) findByName(name string) (int, bool) {
	found := -1
	for i, ino := range t.slots {
		if ino != nil && ino.name == name {
			found = i
		}
	}
	return found, found >= 0
}

func (t *inodeTable) findFreeSlot() (int, bool) {
	for i, ino := range t.slots {
		if ino == nil {
			return i, true
		}
	}
	return -1, false
}

func (t *inodeTable) names() []string {
	names := make([]string, 0, len(t.slots))
	for _, ino := range t.slots {
		if ino != nil {
			names = append(names, ino.name)
		}
	}
	return names
}

func (t *inodeTable) freeSlots() int {
	n := 0
	for _, ino := range t.slots {
		if ino == nil {
			n++
		}
	}
	return n
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return fmt.Errorf("%w: name contains a NUL byte", ErrInvalidName)
	}
	return nil
}
