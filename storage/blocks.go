package storage

import (
	"errors"
	"fmt"
	"io"
)

// blockDevice addresses a Backend in whole blocks
type blockDevice struct {
	backend   Backend
	blockSize int
	numBlocks int
}

func (d *blockDevice) position(idx int) (int64, error) {
	if idx < 0 || idx >= d.numBlocks {
		return -1, fmt.Errorf("%w: block %d out of range", ErrStorageIO, idx)
	}
	return int64(idx) * int64(d.blockSize), nil
}

// readBlock returns the full content of block idx. Bytes past the end
// of the backend read as zeros.
func (d *blockDevice) readBlock(idx int) ([]byte, error) {
	pos, err := d.position(idx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, d.blockSize)
	_, err = d.backend.ReadAt(buf, pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading block %d: %w", ErrStorageIO, idx, err)
	}
	return buf, nil
}

// writeBlock writes data into block idx, zero-padded to the block size
func (d *blockDevice) writeBlock(idx int, data []byte) error {
	if len(data) > d.blockSize {
		return fmt.Errorf("%w: %d bytes do not fit into block %d", ErrStorageIO, len(data), idx)
	}
	pos, err := d.position(idx)
	if err != nil {
		return err
	}
	buf := data
	if len(buf) < d.blockSize {
		buf = make([]byte, d.blockSize)
		copy(buf, data)
	}
	n, err := d.backend.WriteAt(buf, pos)
	if err != nil {
		return fmt.Errorf("%w: writing block %d: %w", ErrStorageIO, idx, err)
	}
	if n != d.blockSize {
		return fmt.Errorf("%w: short write to block %d (%d of %d bytes)", ErrStorageIO, idx, n, d.blockSize)
	}
	log.Debugf("wrote %d bytes of data into block %d at %d", len(data), idx, pos)
	return nil
}

func (d *blockDevice) zeroBlock(idx int) error {
	return d.writeBlock(idx, nil)
}

// sync flushes the backend to stable storage if it supports it
func (d *blockDevice) sync() error {
	if s, ok := d.backend.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("%w: sync: %w", ErrStorageIO, err)
		}
	}
	return nil
}

// hasMetadata reports whether the backend already holds at least one full block
func (d *blockDevice) hasMetadata() (bool, error) {
	buf := make([]byte, d.blockSize)
	n, err := d.backend.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("%w: probing metadata: %w", ErrStorageIO, err)
	}
	return n == d.blockSize, nil
}

// ensureSize extends the backend so that every block is addressable
func (d *blockDevice) ensureSize() error {
	last := int64(d.numBlocks)*int64(d.blockSize) - 1
	probe := make([]byte, 1)
	_, err := d.backend.ReadAt(probe, last)
	if err == nil {
		return nil
	}
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: probing store size: %w", ErrStorageIO, err)
	}
	if _, err := d.backend.WriteAt([]byte{0}, last); err != nil {
		return fmt.Errorf("%w: extending store: %w", ErrStorageIO, err)
	}
	return nil
}
