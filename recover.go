package embeddb

import (
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
)

// recover implements §4.9: reconstruct the data and index region frontiers
// by scanning page headers (region.Manager.Recover, the single
// frontier-detection routine shared across regions per the design note),
// then replay spline knots by re-reading every live data page's min key in
// logical order. Losing an unflushed partial write buffer across an
// unclean restart is accepted per the Non-goal "transactions or
// crash-atomic durability beyond per-page writes": only already-persisted
// pages are ever recovered.
func (e *Engine) recover() error {
	if err := e.dataRegion.Recover(); err != nil {
		return err
	}
	if e.indexRegion != nil {
		if err := e.indexRegion.Recover(); err != nil {
			return err
		}
		e.indexOpen = false
	}

	if e.dataRegion.Empty() {
		return nil
	}

	buf := make([]byte, e.layout.PageSize)
	dp := page.DataPage{Buf: buf, Layout: e.layout}

	var liveBlocks uint32
	var firstMin, lastMin []byte
	for logical := e.dataRegion.FirstLiveLogicalID; logical < e.dataRegion.NextWriteLogicalID; logical++ {
		if err := e.dataRegion.ReadInto(logical, buf); err != nil {
			return err
		}
		minKey := append([]byte{}, dp.MinKey()...)
		if err := e.spline.Add(keycodec.Widen(minKey, e.layout.KeySize), logical); err != nil {
			e.log.Warnw("spline overflow during recovery", "logicalID", logical, "err", err)
			break
		}
		if e.cfg.RadixBits > 0 {
			e.radix.AddPoint(keycodec.Widen(minKey, e.layout.KeySize), e.spline.Len()-1)
		}
		if firstMin == nil {
			firstMin = minKey
		}
		lastMin = minKey
		liveBlocks++
	}

	if firstMin != nil {
		e.minKeyBuf = firstMin
		e.hasMinKey = true
	}
	if lastMin != nil {
		e.lastKeyBuf = append([]byte{}, lastMin...)
		e.hasLastKey = true
	}
	if liveBlocks > 0 && e.layout.MaxRecordsPerPage > 0 {
		minV := keycodec.Widen(e.minKeyBuf, e.layout.KeySize)
		maxV := keycodec.Widen(e.lastKeyBuf, e.layout.KeySize)
		if maxV > minV {
			e.avgKeyDiff = float64(maxV-minV) / float64(liveBlocks) / float64(e.layout.MaxRecordsPerPage)
		}
	}

	return nil
}
