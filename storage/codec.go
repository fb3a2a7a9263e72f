package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeMetadata serializes the inode table followed by the chain index
// into a zero-padded metadata block
func encodeMetadata(g Geometry, table *inodeTable, bm *blockMap) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(g.BlockSize)

	for _, ino := range table.slots {
		rec := inodeRecord{Size: 0, FirstBlock: noBlock}
		if ino != nil {
			copy(rec.Name[:], ino.name)
			rec.Size = uint16(ino.size)
			rec.FirstBlock = int16(ino.firstBlock)
		}
		if err := binary.Write(&buf, binaryLayout, &rec); err != nil {
			return nil, fmt.Errorf("error encoding inode record: %w", err)
		}
	}

	for i := range bm.used {
		rec := chainRecord{BlockIndex: noBlock, Next: noBlock}
		if i != metadataBlock && bm.used[i] {
			rec.BlockIndex = int16(i)
			rec.Next = int16(bm.next[i])
		}
		if err := binary.Write(&buf, binaryLayout, &rec); err != nil {
			return nil, fmt.Errorf("error encoding chain record: %w", err)
		}
	}

	if buf.Len() > g.BlockSize {
		return nil, fmt.Errorf("%w: metadata is %d bytes", ErrInvalidGeometry, buf.Len())
	}
	out := make([]byte, g.BlockSize)
	copy(out, buf.Bytes())
	return out, nil
}

// decodeMetadata is the inverse of encodeMetadata. It fills table and the
// chain links of bm; allocation bits are left for rebuildUsage.
func decodeMetadata(g Geometry, block []byte, table *inodeTable, bm *blockMap) error {
	if len(block) < g.MetadataSize() {
		return fmt.Errorf("%w: metadata block is %d bytes, need %d", ErrStorageIO, len(block), g.MetadataSize())
	}
	r := bytes.NewReader(block)

	for i := range table.slots {
		var rec inodeRecord
		if err := binary.Read(r, binaryLayout, &rec); err != nil {
			return fmt.Errorf("error decoding inode record %d: %w", i, err)
		}
		name := string(bytes.TrimRight(rec.Name[:], "\x00"))
		if name == "" && rec.Size == 0 && rec.FirstBlock < 0 {
			table.slots[i] = nil
			continue
		}
		first := int(rec.FirstBlock)
		if first < 0 {
			first = noBlock
		}
		table.slots[i] = &inode{name: name, size: int(rec.Size), firstBlock: first}
	}

	for i := range bm.next {
		var rec chainRecord
		if err := binary.Read(r, binaryLayout, &rec); err != nil {
			return fmt.Errorf("error decoding chain record %d: %w", i, err)
		}
		bm.next[i] = noBlock
		if rec.BlockIndex < 0 {
			continue
		}
		if int(rec.BlockIndex) != i {
			return fmt.Errorf("%w: chain record %d claims block %d", ErrCorruptChain, i, rec.BlockIndex)
		}
		next := int(rec.Next)
		if next < 0 {
			next = noBlock
		}
		bm.next[i] = next
	}
	return nil
}

// rebuildUsage recomputes the free block map from the chains reachable
// from occupied inodes. Links of unreachable blocks are dropped.
func rebuildUsage(table *inodeTable, bm *blockMap, blockSize int) error {
	for i := range bm.used {
		bm.used[i] = false
	}
	bm.used[metadataBlock] = true

	for _, ino := range table.slots {
		if ino == nil {
			continue
		}
		blocks, err := bm.walk(ino.firstBlock)
		if err != nil {
			return fmt.Errorf("file %q: %w", ino.name, err)
		}
		if ino.size > len(blocks)*blockSize {
			return fmt.Errorf("%w: file %q records %d bytes in %d blocks",
				ErrCorruptChain, ino.name, ino.size, len(blocks))
		}
		if err := bm.claim(blocks); err != nil {
			return fmt.Errorf("file %q: %w", ino.name, err)
		}
	}

	for i := range bm.next {
		if !bm.used[i] && bm.next[i] != noBlock {
			log.Warningf("dropping orphaned chain record for block %d", i)
			bm.next[i] = noBlock
		}
	}
	return nil
}
