package embeddb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashkv/embeddb/keycodec"
)

func kbytes(v uint64, size int) []byte {
	b := make([]byte, size)
	keycodec.Put(b, size, v)
	return b
}

func noVarConfig() *Config {
	cfg := NewConfig(4, 4, 30, 2)
	cfg.DataNumPages = 8
	cfg.ResetData = true
	return cfg
}

func varConfig() *Config {
	cfg := NewConfig(4, 4, 64, 4)
	cfg.UseVarData = true
	cfg.DataNumPages = 8
	cfg.VarNumPages = 8
	cfg.ResetData = true
	return cfg
}

func TestPutGetRoundTripAcrossPages(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	const n = 20
	for i := uint64(0); i < n; i++ {
		require.NoError(t, e.Put(kbytes(i, 4), kbytes(i*10, 4)))
	}

	out := make([]byte, 4)
	for _, i := range []uint64{0, 1, 7, 12, 19} {
		require.NoError(t, e.Get(kbytes(i, 4), out))
		assert.Equal(t, i*10, keycodec.Widen(out, 4))
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	for i := uint64(0); i < 5; i++ {
		e.Put(kbytes(i*2, 4), kbytes(i, 4))
	}

	out := make([]byte, 4)
	assert.Equal(t, ErrNotFound, e.Get(kbytes(3, 4), out))
	assert.Equal(t, ErrNotFound, e.Get(kbytes(1000, 4), out))
}

func TestPutRejectsDescendingKey(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put(kbytes(5, 4), kbytes(0, 4)))
	assert.Equal(t, ErrOrderViolation, e.Put(kbytes(3, 4), kbytes(0, 4)))
}

func TestFlushTwiceIsNoOp(t *testing.T) {
	e, err := OpenMemory(noVarConfig())
	require.NoError(t, err)
	defer e.Close()

	for i := uint64(0); i < 5; i++ {
		e.Put(kbytes(i, 4), kbytes(0, 4))
	}
	require.NoError(t, e.Flush())
	written := e.stats.DataPagesWritten
	require.NoError(t, e.Flush())
	assert.Equal(t, written, e.stats.DataPagesWritten, "second flush with no intervening Put must not write more pages")
}

func TestPutVarGetVarRoundTrip(t *testing.T) {
	e, err := OpenMemory(varConfig())
	require.NoError(t, err)
	defer e.Close()

	blob := []byte("hello variable world")
	require.NoError(t, e.PutVar(kbytes(1, 4), kbytes(100, 4), blob))

	out := make([]byte, 4)
	got, err := e.GetVar(kbytes(1, 4), out)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	assert.Equal(t, uint64(100), keycodec.Widen(out, 4))
}

func TestGetVarReadsAcrossFlushedAndUnflushedVarPages(t *testing.T) {
	e, err := OpenMemory(varConfig())
	require.NoError(t, err)
	defer e.Close()

	// The var page body is 64-4=60 bytes. blob1's length prefix + payload
	// (54 bytes) nearly fills page 0, so blob2's length prefix and first 2
	// payload bytes still land on page 0 and the rest forces advancePage to
	// persist page 0 to the device and move on to a fresh, still-unflushed
	// page. Neither PutVar call is followed by an explicit Flush, so GetVar
	// must serve blob1 from the (now on-device) page 0 and blob2 partly from
	// that page and partly from the in-progress write buffer.
	blob1 := make([]byte, 50)
	for i := range blob1 {
		blob1[i] = byte(i + 1)
	}
	blob2 := []byte("still in the write buffer")

	require.NoError(t, e.PutVar(kbytes(1, 4), kbytes(10, 4), blob1))
	require.NoError(t, e.PutVar(kbytes(2, 4), kbytes(20, 4), blob2))

	out := make([]byte, 4)
	got1, err := e.GetVar(kbytes(1, 4), out)
	require.NoError(t, err)
	assert.Equal(t, blob1, got1)

	got2, err := e.GetVar(kbytes(2, 4), out)
	require.NoError(t, err)
	assert.Equal(t, blob2, got2)
}

func TestGetVarWithNoBlobReturnsNilWithoutError(t *testing.T) {
	e, err := OpenMemory(varConfig())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put(kbytes(1, 4), kbytes(5, 4)))
	out := make([]byte, 4)
	blob, err := e.GetVar(kbytes(1, 4), out)
	require.NoError(t, err)
	assert.Nil(t, blob, "a record with no var data should return a nil blob")
}

func TestReopenRecoversFlushedRecords(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.bin")
	indexPath := filepath.Join(dir, "index.bin")
	varPath := filepath.Join(dir, "var.bin")

	cfg := noVarConfig()
	e1, err := OpenFiles(cfg, dataPath, indexPath, varPath)
	require.NoError(t, err)
	for i := uint64(0); i < 20; i++ {
		require.NoError(t, e1.Put(kbytes(i, 4), kbytes(i*3, 4)))
	}
	require.NoError(t, e1.Close())

	cfg2 := noVarConfig()
	cfg2.ResetData = false
	e2, err := OpenFiles(cfg2, dataPath, indexPath, varPath)
	require.NoError(t, err)
	defer e2.Close()

	out := make([]byte, 4)
	for _, i := range []uint64{0, 1, 9, 18} {
		require.NoError(t, e2.Get(kbytes(i, 4), out))
		assert.Equal(t, i*3, keycodec.Widen(out, 4))
	}
}
