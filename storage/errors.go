package storage

import "errors"

var (
	ErrDuplicateName       = errors.New("file already exists")
	ErrNotFound            = errors.New("file does not exist")
	ErrTableFull           = errors.New("no free file entries available")
	ErrAllocationExhausted = errors.New("not enough free blocks")
	ErrAlreadyInitialized  = errors.New("storage is already initialized")
	ErrCorruptChain        = errors.New("corrupt block chain")
	ErrStorageIO           = errors.New("storage i/o error")
	ErrInvalidName         = errors.New("invalid file name")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidGeometry     = errors.New("invalid storage geometry")
	ErrClosed              = errors.New("storage is closed")
	ErrInconsistent        = errors.New("free block map is inconsistent")
)
