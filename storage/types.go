package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// DefaultBlockSize is the block size used by Open
	DefaultBlockSize = 128
	// DefaultMaxFiles is the number of inode slots used by Open
	DefaultMaxFiles = 5
	// DefaultTotalBlocks is the block count of a store created without one
	DefaultTotalBlocks = 10

	// MaxNameLen is the longest file name (in bytes) an inode slot can hold
	MaxNameLen = 11
	// MaxFileSize is the largest size an inode can record
	MaxFileSize = 0xFFFF
	// MaxTotalBlocks keeps block indices representable on disk
	MaxTotalBlocks = 0x7FFF

	metadataBlock = 0
	noBlock       = -1
)

// inodeRecord is the on-disk layout of one inode table slot
type inodeRecord struct {
	Name       [MaxNameLen]byte
	Size       uint16
	FirstBlock int16
}

// chainRecord is the on-disk layout of one block-chain node
type chainRecord struct {
	BlockIndex int16
	Next       int16
}

// Backend represents an interface of storage backend (typically a file)
type Backend interface {
	io.ReaderAt
	io.WriterAt
}

type syncer interface {
	Sync() error
}

var (
	inodeRecordSize = binary.Size(inodeRecord{})
	chainRecordSize = binary.Size(chainRecord{})
	binaryLayout    = binary.BigEndian
)

// Geometry describes the fixed shape of a store
type Geometry struct {
	BlockSize   int `json:"block_size"`
	TotalBlocks int `json:"total_blocks"`
	MaxFiles    int `json:"max_files"`
}

// DefaultGeometry returns the standard block size and slot count
// for a store of totalBlocks blocks
func DefaultGeometry(totalBlocks int) Geometry {
	return Geometry{
		BlockSize:   DefaultBlockSize,
		TotalBlocks: totalBlocks,
		MaxFiles:    DefaultMaxFiles,
	}
}

// MetadataSize returns the number of bytes the metadata records occupy in block 0
func (g Geometry) MetadataSize() int {
	return g.MaxFiles*inodeRecordSize + g.TotalBlocks*chainRecordSize
}

// MaxFileSize returns the largest file this geometry can store
func (g Geometry) MaxFileSize() int {
	n := (g.TotalBlocks - 1) * g.BlockSize
	if n > MaxFileSize {
		n = MaxFileSize
	}
	return n
}

// StoreSize returns the length of the backing extent in bytes
func (g Geometry) StoreSize() int64 {
	return int64(g.TotalBlocks) * int64(g.BlockSize)
}

// Validate checks that the geometry can be laid out on disk
func (g Geometry) Validate() error {
	if g.BlockSize < 1 {
		return fmt.Errorf("%w: block size must be positive", ErrInvalidGeometry)
	}
	if g.TotalBlocks < 2 || g.TotalBlocks > MaxTotalBlocks {
		return fmt.Errorf("%w: total blocks must be between 2 and %d, got %d",
			ErrInvalidGeometry, MaxTotalBlocks, g.TotalBlocks)
	}
	if g.MaxFiles < 1 {
		return fmt.Errorf("%w: at least one inode slot is required", ErrInvalidGeometry)
	}
	if g.MetadataSize() > g.BlockSize {
		return fmt.Errorf("%w: metadata needs %d bytes, block size is %d",
			ErrInvalidGeometry, g.MetadataSize(), g.BlockSize)
	}
	return nil
}

// FileInfo describes one occupied inode slot
type FileInfo struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Blocks int    `json:"blocks"`
}

// Stats is a snapshot of engine state
type Stats struct {
	Geometry
	FreeBlocks    int        `json:"free_blocks"`
	FreeSlots     int        `json:"free_slots"`
	ActiveReaders int64      `json:"active_readers"`
	Writes        uint64     `json:"writes"` // successful mutations
	Files         []FileInfo `json:"files"`
}
