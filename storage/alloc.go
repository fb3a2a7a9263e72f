package storage

import "fmt"

// blockMap tracks allocation state and chain links of every block.
// used is the free block map, next is the chain index: next[i] is the
// block following i in its file, or noBlock.
type blockMap struct {
	used []bool
	next []int
}

func newBlockMap(numBlocks int) *blockMap {
	bm := &blockMap{
		used: make([]bool, numBlocks),
		next: make([]int, numBlocks),
	}
	bm.reset()
	return bm
}

func (bm *blockMap) reset() {
	for i := range bm.used {
		bm.used[i] = false
		bm.next[i] = noBlock
	}
	bm.used[metadataBlock] = true
}

func (bm *blockMap) freeCount() int {
	n := 0
	for _, u := range bm.used {
		if !u {
			n++
		}
	}
	return n
}

// allocateOne marks the lowest free data block as used and returns it
func (bm *blockMap) allocateOne() (int, error) {
	for i := metadataBlock + 1; i < len(bm.used); i++ {
		if !bm.used[i] {
			bm.used[i] = true
			bm.next[i] = noBlock
			return i, nil
		}
	}
	return noBlock, ErrAllocationExhausted
}

// allocateChain takes the count lowest free blocks and links them
// in ascending order. Nothing is allocated if there are not enough.
func (bm *blockMap) allocateChain(count int) ([]int, error) {
	if count > bm.freeCount() {
		return nil, fmt.Errorf("%w: need %d, %d free", ErrAllocationExhausted, count, bm.freeCount())
	}
	blocks := make([]int, 0, count)
	for len(blocks) < count {
		idx, err := bm.allocateOne()
		if err != nil {
			return nil, err
		}
		if len(blocks) > 0 {
			bm.next[blocks[len(blocks)-1]] = idx
		}
		blocks = append(blocks, idx)
	}
	return blocks, nil
}

// walk returns the blocks of the chain starting at head, in order.
// On a broken chain it returns the blocks visited so far and ErrCorruptChain.
func (bm *blockMap) walk(head int) ([]int, error) {
	var blocks []int
	if head == noBlock {
		return blocks, nil
	}
	seen := make(map[int]bool)
	maxHops := len(bm.used) - 1
	cur := head
	for cur != noBlock {
		if cur <= metadataBlock || cur >= len(bm.used) {
			return blocks, fmt.Errorf("%w: link to block %d out of range", ErrCorruptChain, cur)
		}
		if seen[cur] {
			return blocks, fmt.Errorf("%w: block %d revisited", ErrCorruptChain, cur)
		}
		if len(blocks) >= maxHops {
			return blocks, fmt.Errorf("%w: chain longer than %d blocks", ErrCorruptChain, maxHops)
		}
		seen[cur] = true
		blocks = append(blocks, cur)
		nxt := bm.next[cur]
		if nxt == cur {
			return blocks, fmt.Errorf("%w: block %d links to itself", ErrCorruptChain, cur)
		}
		cur = nxt
	}
	return blocks, nil
}

// release clears the links and allocation bits of blocks
func (bm *blockMap) release(blocks []int) {
	for _, idx := range blocks {
		bm.used[idx] = false
		bm.next[idx] = noBlock
	}
}

// freeChain walks the chain at head and releases every block on it.
// A corrupt chain is left untouched.
func (bm *blockMap) freeChain(head int) ([]int, error) {
	blocks, err := bm.walk(head)
	if err != nil {
		return nil, err
	}
	bm.release(blocks)
	return blocks, nil
}

// claim marks a walked chain as used while rebuilding the map from inodes.
// A block already claimed by another chain is corruption.
func (bm *blockMap) claim(blocks []int) error {
	for _, idx := range blocks {
		if bm.used[idx] {
			return fmt.Errorf("%w: block %d is shared between files", ErrCorruptChain, idx)
		}
	}
	for _, idx := range blocks {
		bm.used[idx] = true
	}
	return nil
}
