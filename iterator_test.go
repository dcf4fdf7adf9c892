package embeddb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashkv/embeddb/keycodec"
)

func TestIteratorWalksAllRecordsInOrder(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	const n = 15
	for i := uint64(0); i < n; i++ {
		e.Put(kbytes(i, 4), kbytes(i, 4))
	}
	require.NoError(t, e.Flush())

	it, err := e.NewIterator(IterBounds{})
	require.NoError(t, err)
	outKey := make([]byte, 4)
	outData := make([]byte, 4)
	var seen []uint64
	for {
		ok, err := it.Next(outKey, outData)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, keycodec.Widen(outKey, 4))
	}
	require.Len(t, seen, n)
	for i, v := range seen {
		assert.Equal(t, uint64(i), v)
	}
}

func TestIteratorRespectsKeyBounds(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	for i := uint64(0); i < 15; i++ {
		e.Put(kbytes(i, 4), kbytes(i, 4))
	}
	e.Flush()

	it, err := e.NewIterator(IterBounds{MinKey: kbytes(5, 4), MaxKey: kbytes(9, 4)})
	require.NoError(t, err)
	outKey := make([]byte, 4)
	outData := make([]byte, 4)
	var seen []uint64
	for {
		ok, err := it.Next(outKey, outData)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, keycodec.Widen(outKey, 4))
	}
	require.Len(t, seen, 5)
	for i, v := range seen {
		assert.Equal(t, uint64(5+i), v)
	}
}

func TestIteratorOnEmptyEngineReturnsNoRecords(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	it, err := e.NewIterator(IterBounds{})
	require.NoError(t, err)
	outKey := make([]byte, 4)
	outData := make([]byte, 4)
	ok, err := it.Next(outKey, outData)
	require.NoError(t, err)
	assert.False(t, ok, "Next on an empty engine should immediately report done")
}
