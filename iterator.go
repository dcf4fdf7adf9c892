package embeddb

import (
	"github.com/flashkv/embeddb/bitmap"
	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
)

type iterState int

const (
	stateNeedIndexPage iterState = iota
	stateNeedDataPage
	stateInPage
	stateDone
)

// IterBounds is initIterator's {minKey?, maxKey?, minData?, maxData?}
// argument; a nil field means that bound is unset.
type IterBounds struct {
	MinKey, MaxKey   []byte
	MinData, MaxData []byte
}

// Iterator implements §4.7's range scan: bitmap-pruned when the index
// region and a data bound are both available, a plain sequential scan of
// live data pages otherwise.
type Iterator struct {
	e      *Engine
	bounds IterBounds

	state iterState

	useIndexScan bool
	queryBitmap  *bitmap.Bitmap

	idxLogical uint32
	idxPage    page.IndexPage
	idxSlot    int
	idxLoaded  bool

	dataLogical uint32
	maxLogical  uint32
	dataPage    page.DataPage
	recIdx      int
}

// NewIterator implements initIterator: it builds a query bitmap from the
// data bounds when bitmap-indexing is available and at least one data
// bound is set, and otherwise prepares a full sequential scan.
func (e *Engine) NewIterator(b IterBounds) (*Iterator, error) {
	it := &Iterator{e: e, bounds: b}

	if e.dataRegion.Empty() {
		it.state = stateDone
		return it, nil
	}
	it.dataLogical = e.dataRegion.FirstLiveLogicalID
	it.maxLogical = e.dataRegion.NextWriteLogicalID - 1

	if b.MinKey != nil {
		if narrowed := e.narrowIterStart(b.MinKey); narrowed > it.dataLogical {
			it.dataLogical = narrowed
		}
	}

	wantIndex := e.cfg.UseIndex && e.indexRegion != nil && e.cfg.BitmapSize > 0 &&
		(b.MinData != nil || b.MaxData != nil)
	if wantIndex && !e.indexRegion.Empty() {
		bm := bitmap.New(e.cfg.BitmapSize)
		minD := b.MinData
		maxD := b.MaxData
		if minD == nil {
			minD = make([]byte, e.layout.DataSize)
		}
		if maxD == nil {
			maxD = allOnes(e.layout.DataSize)
		}
		e.cfg.BuildBitmapFromRange(minD, maxD, bm)
		it.queryBitmap = bm
		it.useIndexScan = true
		it.idxLogical = e.indexRegion.FirstLiveLogicalID
		it.state = stateNeedIndexPage
	} else {
		it.state = stateNeedDataPage
	}
	return it, nil
}

func allOnes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

// narrowIterStart uses the spline's lower error bound for minKey to skip
// straight past data pages that provably can't contain it, instead of
// scanning the live region from its very first page. The lower bound is
// conservative: a page below it is guaranteed to sort before minKey.
func (e *Engine) narrowIterStart(minKey []byte) uint32 {
	kw := keycodec.Widen(minKey, e.layout.KeySize)
	_, loY, _ := e.spline.Find(kw)
	if loY < e.dataRegion.FirstLiveLogicalID {
		loY = e.dataRegion.FirstLiveLogicalID
	}
	return loY
}

// Next implements §4.7's next: advance the cursor according to the
// {NeedIndexPage, NeedDataPage, InPage, Done} state machine, applying the
// key/data bound filters spec.md §4.7 names to each candidate record.
func (it *Iterator) Next(outKey, outData []byte) (bool, error) {
	e := it.e
	for {
		switch it.state {
		case stateDone:
			return false, nil

		case stateNeedIndexPage:
			if !it.idxLoaded || it.idxSlot >= it.idxPage.Count() {
				if it.idxLogical >= e.indexRegion.NextWriteLogicalID {
					it.state = stateDone
					continue
				}
				buf := e.bufs.Slot(buffer.IndexRead)
				phys := e.indexRegion.PhysicalFor(it.idxLogical)
				if !e.bufs.Touch(buffer.IndexRead, int64(phys)) {
					if err := e.indexRegion.ReadInto(it.idxLogical, buf); err != nil {
						return false, wrapIo(err)
					}
				}
				it.idxPage = page.IndexPage{Buf: buf, Layout: e.layout}
				it.idxSlot = 0
				it.idxLoaded = true
				it.idxLogical++
				continue
			}
			j := it.idxSlot
			it.idxSlot++
			slotBitmap := bitmap.FromBytes(it.idxPage.BitmapAt(j))
			if !slotBitmap.Overlap(it.queryBitmap) {
				continue
			}
			candidate := it.idxPage.MinDataPageID() + uint32(j)
			if !e.dataRegion.IsLive(candidate) {
				continue
			}
			it.dataLogical = candidate
			it.state = stateNeedDataPage

		case stateNeedDataPage:
			if it.dataLogical > it.maxLogical || !e.dataRegion.IsLive(it.dataLogical) {
				if it.useIndexScan {
					it.state = stateNeedIndexPage
					continue
				}
				it.state = stateDone
				continue
			}
			buf := e.bufs.Slot(buffer.DataRead)
			phys := e.dataRegion.PhysicalFor(it.dataLogical)
			if !e.bufs.Touch(buffer.DataRead, int64(phys)) {
				if err := e.dataRegion.ReadInto(it.dataLogical, buf); err != nil {
					return false, wrapIo(err)
				}
			}
			it.dataPage = page.DataPage{Buf: buf, Layout: e.layout}
			it.recIdx = 0
			it.state = stateInPage

		case stateInPage:
			if it.recIdx >= it.dataPage.Count() {
				it.dataLogical++
				if it.useIndexScan {
					it.state = stateNeedIndexPage
				} else {
					it.state = stateNeedDataPage
				}
				continue
			}
			i := it.recIdx
			it.recIdx++
			key := it.dataPage.RecordKey(i)
			data := it.dataPage.RecordData(i)

			if it.bounds.MaxKey != nil && e.cfg.CompareKey(key, it.bounds.MaxKey) > 0 {
				it.state = stateDone
				return false, nil
			}
			if it.bounds.MinKey != nil && e.cfg.CompareKey(key, it.bounds.MinKey) < 0 {
				continue
			}
			if it.bounds.MinData != nil && e.cfg.CompareData(data, it.bounds.MinData) < 0 {
				continue
			}
			if it.bounds.MaxData != nil && e.cfg.CompareData(data, it.bounds.MaxData) > 0 {
				continue
			}

			copy(outKey, key)
			copy(outData, data)
			return true, nil
		}
	}
}
