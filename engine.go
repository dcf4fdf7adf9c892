// Package embeddb implements an append-only, flash-aware key/data storage
// engine for time-series records: a page-structured write path, a learned
// spline/radix index for point lookups, bitmap-pruned range iteration, and
// a variable-data append log for blobs. See SPEC_FULL.md for the full
// design; the engine composes the buffer, region, spline, bitmap, and
// vardata packages the way db.New composes kv.New, vm.New and a catalog in
// the teacher repo this was grown from.
package embeddb

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/flashkv/embeddb/bitmap"
	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
	"github.com/flashkv/embeddb/region"
	"github.com/flashkv/embeddb/spline"
	"github.com/flashkv/embeddb/storage"
	"github.com/flashkv/embeddb/vardata"
)

// Engine is the public handle. It has no internal locking: per §5's
// single-threaded cooperative model, a multi-threaded host must serialize
// calls to it externally.
type Engine struct {
	cfg    *Config
	layout page.Layout
	log    *zap.SugaredLogger

	dataDevice  storage.Device
	indexDevice storage.Device
	varDevice   storage.Device

	dataRegion  *region.Manager
	indexRegion *region.Manager
	varLog      *vardata.Log

	bufs *buffer.Pool

	spline *spline.Spline
	radix  *spline.Radix

	indexOpen bool
	curBitmap *bitmap.Bitmap

	minKeyBuf  []byte
	hasMinKey  bool
	lastKeyBuf []byte
	hasLastKey bool

	avgKeyDiff float64

	stats Stats
}

// Devices groups the up-to-three storage backends an engine is opened
// against. IndexDevice and VarDevice are nil when the corresponding
// feature is disabled.
type Devices struct {
	Data  storage.Device
	Index storage.Device
	Var   storage.Device
}

// OpenMemory opens an engine entirely backed by in-memory devices, for
// tests and ephemeral use, mirroring pager.New(useMemory=true, "").
func OpenMemory(cfg *Config) (*Engine, error) {
	devs := Devices{
		Data: storage.NewMemoryDevice(int64(cfg.DataNumPages) * int64(cfg.PageSize)),
	}
	if cfg.UseIndex {
		devs.Index = storage.NewMemoryDevice(int64(cfg.IndexNumPages) * int64(cfg.PageSize))
	}
	if cfg.UseVarData {
		devs.Var = storage.NewMemoryDevice(int64(cfg.VarNumPages) * int64(cfg.PageSize))
	}
	return Open(cfg, devs)
}

// OpenFiles opens an engine backed by up to three named files, creating
// them if they don't exist.
func OpenFiles(cfg *Config, dataPath, indexPath, varPath string) (*Engine, error) {
	devs := Devices{}
	df, err := storage.OpenFileDevice(dataPath)
	if err != nil {
		return nil, err
	}
	devs.Data = df
	if cfg.UseIndex {
		idxf, err := storage.OpenFileDevice(indexPath)
		if err != nil {
			return nil, err
		}
		devs.Index = idxf
	}
	if cfg.UseVarData {
		varf, err := storage.OpenFileDevice(varPath)
		if err != nil {
			return nil, err
		}
		devs.Var = varf
	}
	return Open(cfg, devs)
}

// Open constructs an engine against the given devices. When cfg.ResetData
// is set the regions are formatted fresh; otherwise Open recovers existing
// state from them, per §4.9.
func Open(cfg *Config, devs Devices) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layout := page.NewLayout(cfg.KeySize, cfg.DataSize, cfg.PageSize, cfg.BitmapSize, cfg.UseBitmap, cfg.UseMaxMin, cfg.UseVarData)

	bufs, err := buffer.New(cfg.PageSize, cfg.BufferSizeInBlocks, cfg.UseIndex, cfg.UseVarData)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		layout:      layout,
		log:         cfg.Logger,
		dataDevice:  devs.Data,
		indexDevice: devs.Index,
		varDevice:   devs.Var,
		bufs:        bufs,
		spline:      spline.New(cfg.IndexMaxError, cfg.SplineCapacity),
		radix:       spline.NewRadix(cfg.RadixBits, cfg.KeySize*8),
		minKeyBuf:   make([]byte, cfg.KeySize),
		lastKeyBuf:  make([]byte, cfg.KeySize),
	}

	e.dataRegion = region.New(devs.Data, 0, cfg.PageSize, cfg.DataNumPages, cfg.EraseSizeInPages)
	e.dataRegion.OnErase = func(pagesErased int) { e.onDataErase(pagesErased) }

	if cfg.UseIndex {
		e.indexRegion = region.New(devs.Index, 0, cfg.PageSize, cfg.IndexNumPages, cfg.EraseSizeInPages)
	}
	if cfg.UseVarData {
		e.varLog = vardata.New(devs.Var, 0, cfg.PageSize, cfg.VarNumPages, cfg.KeySize, bufs)
	}

	if cfg.ResetData {
		if err := e.formatFresh(); err != nil {
			return nil, err
		}
	} else {
		if err := e.recover(); err != nil {
			return nil, errors.Wrap(ErrIoFailure, err.Error())
		}
	}

	dw := page.DataPage{Buf: e.bufs.Slot(buffer.DataWrite), Layout: e.layout}
	if dw.Count() == 0 {
		dw.Init(0)
	}
	// The index-write page is left uninitialized until the first bitmap is
	// ready to append; see appendIndexEntry.
	if cfg.BitmapSize > 0 {
		e.curBitmap = bitmap.New(cfg.BitmapSize)
	}

	e.log.Infow("embeddb engine opened",
		"keySize", cfg.KeySize, "dataSize", cfg.DataSize, "pageSize", cfg.PageSize,
		"useIndex", cfg.UseIndex, "useVarData", cfg.UseVarData)

	return e, nil
}

func (e *Engine) formatFresh() error {
	if err := e.dataRegion.FormatFresh(); err != nil {
		return err
	}
	if e.indexRegion != nil {
		if err := e.indexRegion.FormatFresh(); err != nil {
			return err
		}
	}
	if e.varLog != nil {
		if err := e.varLog.FormatFresh(); err != nil {
			return err
		}
	}
	return nil
}

// onDataErase bumps the estimated minKey when the data region reclaims a
// live block, using liveBlocks as the denominator rather than
// nextPageWriteId-1 (open question #1).
func (e *Engine) onDataErase(pagesErased int) {
	e.stats.PagesErased += uint64(pagesErased)
	if !e.hasMinKey || e.avgKeyDiff == 0 {
		return
	}
	bump := uint64(float64(pagesErased) * e.avgKeyDiff * float64(e.layout.MaxRecordsPerPage))
	cur := keycodec.Widen(e.minKeyBuf, e.layout.KeySize)
	keycodec.Put(e.minKeyBuf, e.layout.KeySize, cur+bump)
}
