package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateChain(t *testing.T) {
	bm := newBlockMap(10)
	bm.used[2] = true
	bm.used[5] = true

	chain, err := bm.allocateChain(4)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 4, 6}, chain)
	require.Equal(t, 3, bm.next[1])
	require.Equal(t, 4, bm.next[3])
	require.Equal(t, 6, bm.next[4])
	require.Equal(t, noBlock, bm.next[6])
	require.Equal(t, 3, bm.freeCount())

	_, err = bm.allocateChain(4)
	require.ErrorIs(t, err, ErrAllocationExhausted)
	require.Equal(t, 3, bm.freeCount(), "failed allocation must not take blocks")
}

func TestWalk(t *testing.T) {
	bm := newBlockMap(10)
	chain, err := bm.allocateChain(3)
	require.NoError(t, err)

	blocks, err := bm.walk(chain[0])
	require.NoError(t, err)
	require.Equal(t, chain, blocks)

	blocks, err = bm.walk(noBlock)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestWalkCorrupt(t *testing.T) {
	tests := []struct {
		name string
		next map[int]int
		head int
		seen []int
	}{
		{"self link", map[int]int{1: 1}, 1, []int{1}},
		{"cycle", map[int]int{1: 2, 2: 3, 3: 1}, 1, []int{1, 2, 3}},
		{"out of range", map[int]int{1: 42}, 1, []int{1}},
		{"metadata block", map[int]int{1: 0}, 1, []int{1}},
		{"bad head", map[int]int{}, 12, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm := newBlockMap(10)
			for from, to := range tt.next {
				bm.next[from] = to
			}
			blocks, err := bm.walk(tt.head)
			require.ErrorIs(t, err, ErrCorruptChain)
			require.Equal(t, tt.seen, blocks)
		})
	}
}

func TestFreeChain(t *testing.T) {
	bm := newBlockMap(10)
	chain, err := bm.allocateChain(5)
	require.NoError(t, err)

	released, err := bm.freeChain(chain[0])
	require.NoError(t, err)
	require.Equal(t, chain, released)
	require.Equal(t, 9, bm.freeCount())
	for _, idx := range chain {
		require.Equal(t, noBlock, bm.next[idx])
	}

	bm.used[4] = true
	bm.next[4] = 4
	_, err = bm.freeChain(4)
	require.ErrorIs(t, err, ErrCorruptChain)
	require.True(t, bm.used[4], "corrupt chain must stay allocated")
}

func TestClaimShared(t *testing.T) {
	bm := newBlockMap(10)
	require.NoError(t, bm.claim([]int{1, 2}))
	require.ErrorIs(t, bm.claim([]int{3, 2}), ErrCorruptChain)
	require.False(t, bm.used[3])
}

func TestBlocksFor(t *testing.T) {
	require.Equal(t, 1, blocksFor(0, 128))
	require.Equal(t, 1, blocksFor(1, 128))
	require.Equal(t, 1, blocksFor(128, 128))
	require.Equal(t, 2, blocksFor(129, 128))
	require.Equal(t, 9, blocksFor(9*128, 128))
}
