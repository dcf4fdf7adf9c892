package embeddb

import (
	"github.com/pkg/errors"

	"github.com/flashkv/embeddb/bitmap"
	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
)

// Put implements §4.5's fixed-record write path.
func (e *Engine) Put(key, data []byte) error {
	return e.put(key, data, page.NoVarData)
}

// PutVar implements §4.5's putVar: it reserves a var-data offset, writes
// the fixed record with that offset stamped in, then appends the length
// prefix and payload to the variable-data log.
func (e *Engine) PutVar(key, data, blob []byte) error {
	if e.varLog == nil {
		return errors.New("embeddb: variable data is not enabled for this engine")
	}
	if err := e.varLog.BeforeRecord(key); err != nil {
		return errors.Wrap(ErrIoFailure, err.Error())
	}
	varOffset := e.varLog.CurrentOffset()
	if err := e.put(key, data, varOffset); err != nil {
		return err
	}
	if err := e.varLog.WriteLength(uint32(len(blob)), key); err != nil {
		return errors.Wrap(ErrIoFailure, err.Error())
	}
	if err := e.varLog.WritePayload(blob, key); err != nil {
		return errors.Wrap(ErrIoFailure, err.Error())
	}
	e.stats.VarPagesWritten = uint64(e.varLog.PagesWritten())
	return nil
}

func (e *Engine) checkArgs(key, data []byte) error {
	if len(key) != e.layout.KeySize {
		return errors.Errorf("embeddb: key must be %d bytes, got %d", e.layout.KeySize, len(key))
	}
	if len(data) != e.layout.DataSize {
		return errors.Errorf("embeddb: data must be %d bytes, got %d", e.layout.DataSize, len(data))
	}
	return nil
}

func (e *Engine) put(key, data []byte, varOffset uint32) error {
	if err := e.checkArgs(key, data); err != nil {
		return err
	}
	if e.hasLastKey && e.cfg.CompareKey(key, e.lastKeyBuf) < 0 {
		return ErrOrderViolation
	}

	dw := page.DataPage{Buf: e.bufs.Slot(buffer.DataWrite), Layout: e.layout}
	if dw.Full() {
		if err := e.persistDataPage(dw); err != nil {
			return err
		}
		dw.Init(0)
	}

	firstOnPage := dw.Count() == 0
	dw.AppendRecord(key, data, varOffset)
	if firstOnPage {
		dw.SetMinKey(key)
		dw.SetMaxKey(key)
		dw.SetMinData(data)
		dw.SetMaxData(data)
	} else {
		dw.SetMaxKey(key)
		if e.layout.UseMaxMin {
			if e.cfg.CompareData(data, dw.MinData()) < 0 {
				dw.SetMinData(data)
			}
			if e.cfg.CompareData(data, dw.MaxData()) > 0 {
				dw.SetMaxData(data)
			}
		}
	}

	if e.cfg.BitmapSize > 0 {
		e.cfg.UpdateBitmap(data, e.curBitmap)
	}

	if !e.hasMinKey {
		copy(e.minKeyBuf, key)
		e.hasMinKey = true
	}
	copy(e.lastKeyBuf, key)
	e.hasLastKey = true
	return nil
}

// persistDataPage implements §4.5 step 1: write the full page, feed its
// min key into the spline and radix, append its bitmap to the index
// region, recompute avgKeyDiff using liveBlocks (open question #1), and
// reset the per-page bitmap accumulator.
func (e *Engine) persistDataPage(dw page.DataPage) error {
	if e.cfg.UseBitmap {
		dw.SetBitmap(e.curBitmap)
	}

	logicalID, err := e.dataRegion.Write(dw.Buf)
	if err != nil {
		return errors.Wrap(ErrIoFailure, err.Error())
	}
	e.stats.DataPagesWritten++
	e.bufs.Invalidate(buffer.DataRead)

	minKeyWidened := keycodec.Widen(dw.MinKey(), e.layout.KeySize)
	if err := e.spline.Add(minKeyWidened, logicalID); err != nil {
		return errors.Wrap(ErrSplineOverflow, err.Error())
	}
	if e.cfg.RadixBits > 0 {
		knotIdx := e.spline.Len() - 1
		if knotIdx < 0 {
			knotIdx = 0
		}
		e.radix.AddPoint(minKeyWidened, knotIdx)
	}

	if e.cfg.UseIndex && e.cfg.BitmapSize > 0 {
		if err := e.appendIndexEntry(logicalID, e.curBitmap.Bytes()); err != nil {
			return err
		}
	}

	liveBlocks := e.dataRegion.LiveBlocks()
	if liveBlocks > 0 && e.layout.MaxRecordsPerPage > 0 {
		minV := keycodec.Widen(e.minKeyBuf, e.layout.KeySize)
		maxV := keycodec.Widen(dw.MaxKey(), e.layout.KeySize)
		if maxV > minV {
			e.avgKeyDiff = float64(maxV-minV) / float64(liveBlocks) / float64(e.layout.MaxRecordsPerPage)
		}
	}

	if e.cfg.BitmapSize > 0 {
		e.curBitmap = bitmap.New(e.cfg.BitmapSize)
	}
	return nil
}

func (e *Engine) appendIndexEntry(dataLogicalID uint32, bm []byte) error {
	ip := page.IndexPage{Buf: e.bufs.Slot(buffer.IndexWrite), Layout: e.layout}
	if !e.indexOpen {
		ip.Init(0, dataLogicalID)
		e.indexOpen = true
	}
	if ip.Full() {
		if err := e.persistIndexPage(ip); err != nil {
			return err
		}
		ip.Init(0, dataLogicalID)
	}
	ip.AppendBitmap(bm)
	return nil
}

func (e *Engine) persistIndexPage(ip page.IndexPage) error {
	_, err := e.indexRegion.Write(ip.Buf)
	if err != nil {
		return errors.Wrap(ErrIoFailure, err.Error())
	}
	e.stats.IndexPagesWritten++
	e.bufs.Invalidate(buffer.IndexRead)
	return nil
}
