package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	logging "github.com/op/go-logging"
)

var (
	log = logging.MustGetLogger("flatfs")
)

// Storage is the block storage engine. One Storage owns one backing store;
// all of its methods are safe for concurrent use.
type Storage struct {
	gate     gate
	geometry Geometry
	dev      *blockDevice
	table    *inodeTable
	blocks   *blockMap

	key    interface{}
	file   *os.File
	closed bool
}

type blockWrite struct {
	idx  int
	data []byte
}

// Open opens or creates the store file at path with totalBlocks blocks
// of DefaultBlockSize bytes and DefaultMaxFiles inode slots
func Open(path string, totalBlocks int) (*Storage, error) {
	return OpenFile(path, DefaultGeometry(totalBlocks))
}

// OpenFile opens or creates the store file at path. A store that already
// holds a metadata block is loaded, anything shorter is formatted.
func OpenFile(path string, g Geometry) (*Storage, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %w", ErrStorageIO, path, err)
	}
	if err := claimStore(abs); err != nil {
		return nil, fmt.Errorf("%w: %s", err, abs)
	}

	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		releaseStore(abs)
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStorageIO, abs, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		releaseStore(abs)
		return nil, err
	}

	s, err := open(f, g, abs)
	if err != nil {
		unlockFile(f)
		f.Close()
		releaseStore(abs)
		return nil, err
	}
	s.file = f
	return s, nil
}

// OpenBackend initializes a Storage instance from a given backend
// (typically a rw-opened file). The caller keeps ownership of the backend.
func OpenBackend(backend Backend, g Geometry) (*Storage, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var key interface{}
	if reflect.TypeOf(backend).Comparable() {
		key = backend
		if err := claimStore(key); err != nil {
			return nil, err
		}
	}

	s, err := open(backend, g, key)
	if err != nil {
		if key != nil {
			releaseStore(key)
		}
		return nil, err
	}
	return s, nil
}

func open(backend Backend, g Geometry, key interface{}) (*Storage, error) {
	s := &Storage{
		geometry: g,
		dev:      &blockDevice{backend: backend, blockSize: g.BlockSize, numBlocks: g.TotalBlocks},
		table:    newInodeTable(g.MaxFiles),
		blocks:   newBlockMap(g.TotalBlocks),
		key:      key,
	}

	exists, err := s.dev.hasMetadata()
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Infof("formatting new store: %d blocks of %d bytes, %d inode slots",
			g.TotalBlocks, g.BlockSize, g.MaxFiles)
		if err := Format(backend, g); err != nil {
			log.Errorf("error formatting store: %s", err)
			return nil, err
		}
		return s, nil
	}

	if err := s.load(); err != nil {
		log.Errorf("error loading store metadata: %s", err)
		return nil, err
	}
	return s, nil
}

func (s *Storage) load() error {
	if err := s.dev.ensureSize(); err != nil {
		return err
	}
	meta, err := s.dev.readBlock(metadataBlock)
	if err != nil {
		return err
	}
	if err := decodeMetadata(s.geometry, meta, s.table, s.blocks); err != nil {
		return err
	}
	if err := rebuildUsage(s.table, s.blocks, s.geometry.BlockSize); err != nil {
		return err
	}
	log.Infof("loaded store: %d files, %d of %d blocks free",
		len(s.table.names()), s.blocks.freeCount(), s.geometry.TotalBlocks)
	return nil
}

func (s *Storage) flushMetadata() error {
	meta, err := encodeMetadata(s.geometry, s.table, s.blocks)
	if err != nil {
		return err
	}
	if err := s.dev.writeBlock(metadataBlock, meta); err != nil {
		return err
	}
	return s.dev.sync()
}

// commit performs the disk side of a mutation whose in-memory part is
// already applied. Any failure leaves memory and disk diverged.
func (s *Storage) commit(op string, name string, writes []blockWrite) error {
	for _, w := range writes {
		if err := s.dev.writeBlock(w.idx, w.data); err != nil {
			return s.diverged(op, name, err)
		}
	}
	if err := s.flushMetadata(); err != nil {
		return s.diverged(op, name, err)
	}
	return nil
}

func (s *Storage) diverged(op string, name string, err error) error {
	log.Errorf("METADATA DIVERGED: %s %q applied in memory but not persisted: %s", op, name, err)
	return fmt.Errorf("%s %q: %w", op, name, err)
}

func (s *Storage) lookup(name string) (*inode, int, error) {
	slot, found := s.table.findByName(name)
	if !found {
		return nil, -1, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.table.slots[slot], slot, nil
}

// Create adds an empty file and reserves its first block
func (s *Storage) Create(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.gate.write(func() error {
		if s.closed {
			return ErrClosed
		}
		if _, found := s.table.findByName(name); found {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		slot, ok := s.table.findFreeSlot()
		if !ok {
			return ErrTableFull
		}
		blk, err := s.blocks.allocateOne()
		if err != nil {
			return err
		}
		s.table.slots[slot] = &inode{name: name, size: 0, firstBlock: blk}
		log.Debugf("created %q in slot %d, first block %d", name, slot, blk)

		return s.commit("create", name, []blockWrite{{idx: blk}})
	})
}

// Write replaces the whole content of a file. The old chain is released
// and a new one is allocated from the lowest free blocks.
func (s *Storage) Write(name string, data []byte) error {
	return s.gate.write(func() error {
		if s.closed {
			return ErrClosed
		}
		ino, _, err := s.lookup(name)
		if err != nil {
			return err
		}
		if len(data) > s.geometry.MaxFileSize() {
			return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(data), s.geometry.MaxFileSize())
		}
		old, err := s.blocks.walk(ino.firstBlock)
		if err != nil {
			return fmt.Errorf("file %q: %w", name, err)
		}
		need := blocksFor(len(data), s.geometry.BlockSize)
		if avail := s.blocks.freeCount() + len(old); need > avail {
			return fmt.Errorf("%w: %q needs %d blocks, %d available", ErrAllocationExhausted, name, need, avail)
		}

		s.blocks.release(old)
		chain, err := s.blocks.allocateChain(need)
		if err != nil {
			return err
		}
		ino.firstBlock = chain[0]
		ino.size = len(data)
		log.Debugf("writing %d bytes to %q: blocks %v, released %v", len(data), name, chain, old)

		reused := make(map[int]bool, len(chain))
		writes := make([]blockWrite, 0, len(chain)+len(old))
		bs := s.geometry.BlockSize
		for i, idx := range chain {
			reused[idx] = true
			start := i * bs
			end := start + bs
			if start > len(data) {
				start = len(data)
			}
			if end > len(data) {
				end = len(data)
			}
			writes = append(writes, blockWrite{idx: idx, data: data[start:end]})
		}
		for _, idx := range old {
			if !reused[idx] {
				writes = append(writes, blockWrite{idx: idx})
			}
		}
		return s.commit("write", name, writes)
	})
}

// Read returns the content of a file. If the chain turns out to be
// broken, the bytes gathered so far are returned with ErrCorruptChain.
func (s *Storage) Read(name string) ([]byte, error) {
	var out []byte
	err := s.gate.read(func() error {
		if s.closed {
			return ErrClosed
		}
		ino, _, err := s.lookup(name)
		if err != nil {
			return err
		}
		out = make([]byte, 0, ino.size)
		if ino.size == 0 {
			return nil
		}

		blocks, walkErr := s.blocks.walk(ino.firstBlock)
		for _, idx := range blocks {
			remaining := ino.size - len(out)
			if remaining <= 0 {
				break
			}
			buf, err := s.dev.readBlock(idx)
			if err != nil {
				return err
			}
			if remaining < len(buf) {
				buf = buf[:remaining]
			}
			out = append(out, buf...)
		}
		if walkErr != nil {
			return fmt.Errorf("file %q: %w", name, walkErr)
		}
		if len(out) < ino.size {
			return fmt.Errorf("%w: file %q has %d of %d bytes", ErrCorruptChain, name, len(out), ino.size)
		}
		return nil
	})
	return out, err
}

// Delete removes a file, zeroes its blocks and returns them to the free map
func (s *Storage) Delete(name string) error {
	return s.gate.write(func() error {
		if s.closed {
			return ErrClosed
		}
		ino, slot, err := s.lookup(name)
		if err != nil {
			return err
		}
		blocks, err := s.blocks.freeChain(ino.firstBlock)
		if err != nil {
			return fmt.Errorf("file %q: %w", name, err)
		}
		s.table.slots[slot] = nil
		log.Debugf("deleted %q from slot %d, released %v", name, slot, blocks)

		writes := make([]blockWrite, 0, len(blocks))
		for _, idx := range blocks {
			writes = append(writes, blockWrite{idx: idx})
		}
		return s.commit("delete", name, writes)
	})
}

// List returns names of all files in inode slot order
func (s *Storage) List() ([]string, error) {
	var names []string
	err := s.gate.read(func() error {
		if s.closed {
			return ErrClosed
		}
		names = s.table.names()
		return nil
	})
	return names, err
}

// Stat returns size and block count of a single file
func (s *Storage) Stat(name string) (FileInfo, error) {
	var fi FileInfo
	err := s.gate.read(func() error {
		if s.closed {
			return ErrClosed
		}
		ino, _, err := s.lookup(name)
		if err != nil {
			return err
		}
		blocks, err := s.blocks.walk(ino.firstBlock)
		fi = FileInfo{Name: ino.name, Size: ino.size, Blocks: len(blocks)}
		if err != nil {
			return fmt.Errorf("file %q: %w", name, err)
		}
		return nil
	})
	return fi, err
}

// Stats returns geometry, usage counters and per-file information
func (s *Storage) Stats() (Stats, error) {
	var st Stats
	err := s.gate.read(func() error {
		if s.closed {
			return ErrClosed
		}
		st = Stats{
			Geometry:      s.geometry,
			FreeBlocks:    s.blocks.freeCount(),
			FreeSlots:     s.table.freeSlots(),
			ActiveReaders: s.gate.activeReaders(),
			Writes:        s.gate.writeCount(),
			Files:         make([]FileInfo, 0, len(s.table.slots)),
		}
		for _, ino := range s.table.slots {
			if ino == nil {
				continue
			}
			blocks, _ := s.blocks.walk(ino.firstBlock)
			st.Files = append(st.Files, FileInfo{Name: ino.name, Size: ino.size, Blocks: len(blocks)})
		}
		return nil
	})
	return st, err
}

// Verify checks that exactly block 0 and the blocks reachable from
// occupied inodes are marked used, and that no block has two owners
func (s *Storage) Verify() error {
	return s.gate.read(func() error {
		if s.closed {
			return ErrClosed
		}
		owner := make([]string, s.geometry.TotalBlocks)
		expected := make([]bool, s.geometry.TotalBlocks)
		expected[metadataBlock] = true

		for _, ino := range s.table.slots {
			if ino == nil {
				continue
			}
			blocks, err := s.blocks.walk(ino.firstBlock)
			if err != nil {
				return fmt.Errorf("file %q: %w", ino.name, err)
			}
			if ino.size > len(blocks)*s.geometry.BlockSize {
				return fmt.Errorf("%w: file %q records %d bytes in %d blocks",
					ErrCorruptChain, ino.name, ino.size, len(blocks))
			}
			for _, idx := range blocks {
				if expected[idx] {
					return fmt.Errorf("%w: block %d owned by %q and %q", ErrCorruptChain, idx, owner[idx], ino.name)
				}
				expected[idx] = true
				owner[idx] = ino.name
			}
		}

		for i := range expected {
			if expected[i] != s.blocks.used[i] {
				return fmt.Errorf("%w: block %d reachable=%v used=%v", ErrInconsistent, i, expected[i], s.blocks.used[i])
			}
		}
		return nil
	})
}

// Geometry returns the fixed shape of the store
func (s *Storage) Geometry() Geometry {
	return s.geometry
}

// Close releases the store. Further operations fail with ErrClosed.
func (s *Storage) Close() error {
	return s.gate.exclusive(func() error {
		if s.closed {
			return nil
		}
		s.closed = true
		var err error
		if s.file != nil {
			unlockFile(s.file)
			err = s.file.Close()
		}
		if s.key != nil {
			releaseStore(s.key)
		}
		log.Info("store closed")
		return err
	})
}
