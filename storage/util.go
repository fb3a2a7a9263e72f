package storage

import (
	"fmt"
)

// Format initializes the binary structure of an empty store on
// the given backend: empty metadata in block 0 and zeroed data blocks
func Format(backend Backend, g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}

	dev := &blockDevice{backend: backend, blockSize: g.BlockSize, numBlocks: g.TotalBlocks}
	meta, err := encodeMetadata(g, newInodeTable(g.MaxFiles), newBlockMap(g.TotalBlocks))
	if err != nil {
		return err
	}
	if err := dev.writeBlock(metadataBlock, meta); err != nil {
		return fmt.Errorf("error writing metadata: %w", err)
	}
	for i := metadataBlock + 1; i < g.TotalBlocks; i++ {
		if err := dev.zeroBlock(i); err != nil {
			return fmt.Errorf("error writing block %d: %w", i, err)
		}
	}
	return dev.sync()
}

// blocksFor returns the number of blocks a file of size bytes occupies.
// Every file owns at least one block.
func blocksFor(size, blockSize int) int {
	if size <= 0 {
		return 1
	}
	return (size + blockSize - 1) / blockSize
}
