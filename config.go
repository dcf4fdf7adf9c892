package embeddb

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/flashkv/embeddb/bitmap"
	"github.com/flashkv/embeddb/keycodec"
)

// CompareFunc mirrors the compareKey/compareData callbacks of §6.
type CompareFunc func(a, b []byte) int

// Config is every enumerated option of §6, set before Open and immutable
// for the life of the engine handle, the way pager.New(useMemory bool)
// takes its parameters up front, generalized to the full parameter surface
// this spec's geometry and callback set requires.
type Config struct {
	KeySize  int // 1-8
	DataSize int // >=1
	PageSize int // >= headerSize + recordSize

	BufferSizeInBlocks int

	BitmapSize int // 0-8

	UseIndex   bool
	UseBitmap  bool
	UseMaxMin  bool
	UseSum     bool // accepted for wire/config compatibility; §4 never elaborates USE_SUM semantics, and the engine does not read it
	UseVarData bool
	ResetData  bool

	// IndexMaxError bounds the spline's prediction error, per invariant 4.
	IndexMaxError uint32
	// SplineCapacity is ALLOCATED_SPLINE_POINTS, the spline's fixed knot
	// capacity. 0 means unbounded (test-only convenience; production
	// configurations should set a real capacity since the spec treats
	// exhaustion as a first-class error).
	SplineCapacity int
	// RadixBits is the radix accelerator's prefix width; 0 disables it.
	RadixBits int

	// EraseSizeInPages must divide DataNumPages and IndexNumPages.
	EraseSizeInPages int

	DataStartAddress int64
	DataNumPages     int

	IndexStartAddress int64
	IndexNumPages     int

	VarStartAddress int64
	VarNumPages     int

	CompareKey  CompareFunc
	CompareData CompareFunc

	InBitmap             bitmap.InBitmapFunc
	UpdateBitmap         bitmap.UpdateFunc
	BuildBitmapFromRange bitmap.BuildFromRangeFunc

	Logger *zap.SugaredLogger
}

// Option mutates a Config during construction; functional options keep
// optional ambient concerns (logging) separate from the required geometry
// fields callers must always set explicitly.
type Option func(*Config)

// WithLogger attaches a structured logger. Without one, NewConfig installs a
// no-op logger so the engine never has to nil-check it.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewConfig builds a Config from required geometry plus options, filling in
// default comparators and bitmap callbacks when the caller doesn't supply
// its own, per the design note that the engine "is parameterized by
// key-width at runtime" with all key decoding funneled through one helper.
func NewConfig(keySize, dataSize, pageSize, bufferSizeInBlocks int, opts ...Option) *Config {
	c := &Config{
		KeySize:             keySize,
		DataSize:            dataSize,
		PageSize:            pageSize,
		BufferSizeInBlocks:  bufferSizeInBlocks,
		EraseSizeInPages:    1,
		CompareKey:          func(a, b []byte) int { return keycodec.Compare(a, b, keySize) },
		CompareData:         func(a, b []byte) int { return keycodec.Compare(a, b, dataSize) },
		InBitmap:             bitmap.DefaultInBitmap,
		UpdateBitmap:         bitmap.DefaultUpdate,
		BuildBitmapFromRange: bitmap.DefaultBuildFromRange,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return c
}

// Validate performs the geometry and parameter cross-checks a complete
// implementation needs beyond what §6 enumerates by name (supplemented
// feature #1 in SPEC_FULL.md): keySize range, page size large enough for at
// least one record, buffer sizing, and erase-size divisibility.
func (c *Config) Validate() error {
	if c.KeySize < 1 || c.KeySize > 8 {
		return errInvalid("keySize must be 1-8, got %d", c.KeySize)
	}
	if c.DataSize < 1 {
		return errInvalid("dataSize must be >= 1, got %d", c.DataSize)
	}
	if c.BitmapSize < 0 || c.BitmapSize > 8 {
		return errInvalid("bitmapSize must be 0-8, got %d", c.BitmapSize)
	}
	if c.UseBitmap && c.BitmapSize == 0 {
		return errInvalid("bitmapSize must be > 0 when bitmaps are enabled")
	}
	recordSize := c.KeySize + c.DataSize
	if c.UseVarData {
		recordSize += 4
	}
	headerSize := 6
	if c.UseBitmap {
		headerSize += c.BitmapSize
	}
	if c.UseMaxMin {
		headerSize += 2*c.KeySize + 2*c.DataSize
	}
	if c.PageSize < headerSize+recordSize {
		return errInvalid("pageSize %d too small for headerSize %d + one record %d", c.PageSize, headerSize, recordSize)
	}
	minBlocks := 2
	if c.UseIndex {
		minBlocks += 2
	}
	if c.UseVarData {
		minBlocks += 2
	}
	if c.BufferSizeInBlocks < minBlocks {
		return errInvalid("bufferSizeInBlocks must be >= %d for this configuration, got %d", minBlocks, c.BufferSizeInBlocks)
	}
	if c.EraseSizeInPages < 1 {
		return errInvalid("eraseSizeInPages must be >= 1, got %d", c.EraseSizeInPages)
	}
	if c.DataNumPages <= 0 || c.DataNumPages%c.EraseSizeInPages != 0 {
		return errInvalid("dataNumPages %d must be a positive multiple of eraseSizeInPages %d", c.DataNumPages, c.EraseSizeInPages)
	}
	if c.UseIndex && (c.IndexNumPages <= 0 || c.IndexNumPages%c.EraseSizeInPages != 0) {
		return errInvalid("indexNumPages %d must be a positive multiple of eraseSizeInPages %d", c.IndexNumPages, c.EraseSizeInPages)
	}
	if c.UseVarData && c.VarNumPages <= 0 {
		return errInvalid("varNumPages must be > 0 when variable data is enabled")
	}
	return nil
}

func errInvalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
