package embeddb

import (
	"github.com/pkg/errors"

	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
)

// Get implements §4.6's get: model-predicted page, bounded linear probe,
// in-page interpolated search.
func (e *Engine) Get(key, out []byte) error {
	if err := e.checkArgs(key, out); err != nil {
		return err
	}
	dp, idx, err := e.lookupRecord(key)
	if err != nil {
		return err
	}
	copy(out, dp.RecordData(idx))
	return nil
}

// GetVar implements §4.6's getVar: perform get, re-find the record's slot,
// then stream its variable blob if it has one and hasn't been evicted by
// var-region wrap.
func (e *Engine) GetVar(key, out []byte) (blob []byte, err error) {
	if e.varLog == nil {
		return nil, errors.New("embeddb: variable data is not enabled for this engine")
	}
	dp, idx, err := e.lookupRecord(key)
	if err != nil {
		return nil, err
	}
	copy(out, dp.RecordData(idx))

	varOffset := dp.RecordVarOffset(idx)
	if varOffset == page.NoVarData {
		return nil, nil
	}

	kw := keycodec.Widen(key, e.layout.KeySize)
	if e.varLog.HasMin && kw < e.varLog.MinVarRecordID {
		return nil, ErrVarDataEvicted
	}

	lenBuf := make([]byte, 4)
	if err := e.varLog.ReadAt(varOffset, lenBuf); err != nil {
		return nil, errors.Wrap(ErrIoFailure, err.Error())
	}
	length := le32(lenBuf)
	blob = make([]byte, length)
	if length > 0 {
		if err := e.varLog.ReadAt(varOffset+4, blob); err != nil {
			return nil, errors.Wrap(ErrIoFailure, err.Error())
		}
	}
	return blob, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// lookupRecord performs the shared get/getVar lookup: a fast path against
// the not-yet-persisted write buffer (read-your-own-write), then the
// spline-guided probe against persisted pages.
func (e *Engine) lookupRecord(key []byte) (page.DataPage, int, error) {
	dw := page.DataPage{Buf: e.bufs.Slot(buffer.DataWrite), Layout: e.layout}
	if dw.Count() > 0 {
		if idx, found := e.searchPage(dw, key); found {
			return dw, idx, nil
		}
	}

	if e.dataRegion.Empty() {
		return page.DataPage{}, 0, ErrNotFound
	}

	kw := keycodec.Widen(key, e.layout.KeySize)
	var predicted, loY, hiY uint32
	if e.cfg.RadixBits > 0 {
		loKnot, hiKnot := e.radix.Find(kw, 0, e.spline.Len()-1)
		predicted, loY, hiY = e.spline.FindBounded(kw, loKnot, hiKnot)
	} else {
		predicted, loY, hiY = e.spline.Find(kw)
	}

	if loY < e.dataRegion.FirstLiveLogicalID {
		loY = e.dataRegion.FirstLiveLogicalID
	}
	if e.dataRegion.NextWriteLogicalID == 0 {
		return page.DataPage{}, 0, ErrNotFound
	}
	maxValid := e.dataRegion.NextWriteLogicalID - 1
	if hiY > maxValid {
		hiY = maxValid
	}
	if predicted > maxValid {
		predicted = maxValid
	}
	if predicted < loY {
		predicted = loY
	}

	dr := page.DataPage{Buf: e.bufs.Slot(buffer.DataRead), Layout: e.layout}
	cur := predicted
	for {
		if cur < loY || cur > hiY || !e.dataRegion.IsLive(cur) {
			return page.DataPage{}, 0, ErrNotFound
		}
		phys := e.dataRegion.PhysicalFor(cur)
		if !e.bufs.Touch(buffer.DataRead, int64(phys)) {
			if err := e.dataRegion.ReadInto(cur, dr.Buf); err != nil {
				return page.DataPage{}, 0, errors.Wrap(ErrIoFailure, err.Error())
			}
		}
		minK, maxK := dr.MinKey(), dr.MaxKey()
		if e.cfg.CompareKey(key, minK) < 0 {
			cur--
			continue
		}
		if e.cfg.CompareKey(key, maxK) > 0 {
			cur++
			continue
		}
		break
	}

	idx, found := e.searchPage(dr, key)
	if !found {
		return page.DataPage{}, 0, ErrNotFound
	}
	return dr, idx, nil
}

// searchPage implements §4.6 step 4: estimate a slot from the page's first
// and last record keys, clamp, and fall back to bisection seeded at that
// estimate (or at the midpoint when the estimate is unusable, preserving
// the -1 sentinel's "fall back to plain bisection" semantics from §9).
func (e *Engine) searchPage(dp page.DataPage, key []byte) (idx int, found bool) {
	count := dp.Count()
	if count == 0 {
		return 0, false
	}

	kw := keycodec.Widen(key, e.layout.KeySize)
	firstKey := keycodec.Widen(dp.RecordKey(0), e.layout.KeySize)
	lastKey := keycodec.Widen(dp.RecordKey(count-1), e.layout.KeySize)

	seed := -1
	if count > 1 && lastKey != firstKey {
		est := int(float64(kw-firstKey) / float64(lastKey-firstKey) * float64(count-1))
		if est >= 1 && est <= count-2 {
			seed = est
		}
	}

	lo, hi := 0, count-1
	first := true
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if first && seed >= 0 {
			mid = seed
		}
		first = false
		cmp := e.cfg.CompareKey(key, dp.RecordKey(mid))
		switch {
		case cmp == 0:
			return mid, true
		case cmp < 0:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return 0, false
}
