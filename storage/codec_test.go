package storage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordSizes(t *testing.T) {
	require.Equal(t, 15, inodeRecordSize)
	require.Equal(t, 4, chainRecordSize)
	require.Equal(t, 115, DefaultGeometry(DefaultTotalBlocks).MetadataSize())
}

func TestMetadataLayout(t *testing.T) {
	st, mb := newTestStorage(t)
	require.NoError(t, st.Create("a.txt"))
	require.NoError(t, st.Write("a.txt", make([]byte, 130)))

	meta := mb.Bytes()[:DefaultBlockSize]

	// slot 0
	require.Equal(t, []byte("a.txt\x00\x00\x00\x00\x00\x00"), meta[0:11])
	require.Equal(t, uint16(130), binary.BigEndian.Uint16(meta[11:13]))
	require.Equal(t, int16(1), int16(binary.BigEndian.Uint16(meta[13:15])))

	// slot 1 is empty
	require.Equal(t, make([]byte, 11), meta[15:26])
	require.Equal(t, int16(noBlock), int16(binary.BigEndian.Uint16(meta[28:30])))

	chains := meta[DefaultMaxFiles*inodeRecordSize:]
	rec := func(i int) (int16, int16) {
		off := i * chainRecordSize
		return int16(binary.BigEndian.Uint16(chains[off:])), int16(binary.BigEndian.Uint16(chains[off+2:]))
	}
	idx, next := rec(0)
	require.Equal(t, int16(-1), idx)
	require.Equal(t, int16(-1), next)
	idx, next = rec(1)
	require.Equal(t, int16(1), idx)
	require.Equal(t, int16(2), next)
	idx, next = rec(2)
	require.Equal(t, int16(2), idx)
	require.Equal(t, int16(-1), next)
	idx, _ = rec(3)
	require.Equal(t, int16(-1), idx)

	require.Equal(t, make([]byte, DefaultBlockSize-115), meta[115:])
}

func TestMetadataRoundTrip(t *testing.T) {
	g := DefaultGeometry(DefaultTotalBlocks)
	table := newInodeTable(g.MaxFiles)
	bm := newBlockMap(g.TotalBlocks)

	chain, err := bm.allocateChain(3)
	require.NoError(t, err)
	table.slots[0] = &inode{name: "first", size: 300, firstBlock: chain[0]}
	one, err := bm.allocateOne()
	require.NoError(t, err)
	table.slots[3] = &inode{name: "eleven.byte", size: 0, firstBlock: one}

	block, err := encodeMetadata(g, table, bm)
	require.NoError(t, err)
	require.Len(t, block, g.BlockSize)

	table2 := newInodeTable(g.MaxFiles)
	bm2 := newBlockMap(g.TotalBlocks)
	require.NoError(t, decodeMetadata(g, block, table2, bm2))
	require.NoError(t, rebuildUsage(table2, bm2, g.BlockSize))

	require.Equal(t, table.slots, table2.slots)
	require.Equal(t, bm.used, bm2.used)
	require.Equal(t, bm.next, bm2.next)
}

func TestDecodeMismatchedChainRecord(t *testing.T) {
	g := DefaultGeometry(DefaultTotalBlocks)
	block, err := encodeMetadata(g, newInodeTable(g.MaxFiles), newBlockMap(g.TotalBlocks))
	require.NoError(t, err)

	off := g.MaxFiles*inodeRecordSize + 3*chainRecordSize
	binary.BigEndian.PutUint16(block[off:], 7)

	err = decodeMetadata(g, block, newInodeTable(g.MaxFiles), newBlockMap(g.TotalBlocks))
	require.ErrorIs(t, err, ErrCorruptChain)
}

func TestRebuildUsage(t *testing.T) {
	table := newInodeTable(3)
	bm := newBlockMap(6)

	table.slots[0] = &inode{name: "a", size: 10, firstBlock: 2}
	bm.next[2] = 4
	bm.next[3] = 5 // orphan

	require.NoError(t, rebuildUsage(table, bm, 8))
	require.Equal(t, []bool{true, false, true, false, true, false}, bm.used)
	require.Equal(t, noBlock, bm.next[3], "orphaned link is dropped")

	table.slots[1] = &inode{name: "b", size: 1, firstBlock: 4}
	require.ErrorIs(t, rebuildUsage(table, bm, 8), ErrCorruptChain)

	table.slots[1] = nil
	table.slots[0].size = 17
	require.ErrorIs(t, rebuildUsage(table, bm, 8), ErrCorruptChain)
}

func TestOpenCorruptStore(t *testing.T) {
	g := DefaultGeometry(DefaultTotalBlocks)
	mb := NewMemBackend()
	require.NoError(t, Format(mb, g))

	// slot 0 names a file whose first block links to itself
	meta := mb.Bytes()[:g.BlockSize]
	copy(meta, "loop")
	binary.BigEndian.PutUint16(meta[13:], 1)
	chains := g.MaxFiles * inodeRecordSize
	binary.BigEndian.PutUint16(meta[chains+chainRecordSize:], 1)
	binary.BigEndian.PutUint16(meta[chains+chainRecordSize+2:], 1)
	_, err := mb.WriteAt(meta, 0)
	require.NoError(t, err)

	_, err = OpenBackend(mb, g)
	require.ErrorIs(t, err, ErrCorruptChain)

	// the failed open must not keep the backend claimed
	require.NoError(t, Format(mb, g))
	st, err := OpenBackend(mb, g)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.True(t, bytes.Equal(make([]byte, g.BlockSize), mb.Bytes()[g.BlockSize:2*g.BlockSize]))
}
