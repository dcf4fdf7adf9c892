package embeddb

import (
	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/page"
)

// Flush implements §4.8: persist the partial data-write buffer as a full
// page (its record count stands as-is; unused slots stay zeroed) and
// reinitialize it, persist the partial index page, and persist the partial
// var-write page. A second call with no intervening Put is a no-op: the
// data buffer's Count()==0 guard skips its write, the index page is only
// written while indexOpen is set (Flush clears it, and the next appended
// bitmap starts a fresh index page), and the var log tracks this via its
// own dirty flag (vardata.Log.Flush), satisfying the "idempotent flush"
// half of the two contracts spec.md allows.
func (e *Engine) Flush() error {
	dw := page.DataPage{Buf: e.bufs.Slot(buffer.DataWrite), Layout: e.layout}
	if dw.Count() > 0 {
		if err := e.persistDataPage(dw); err != nil {
			return err
		}
		dw.Init(0)
	}

	if e.indexOpen {
		ip := page.IndexPage{Buf: e.bufs.Slot(buffer.IndexWrite), Layout: e.layout}
		if ip.Count() > 0 {
			if err := e.persistIndexPage(ip); err != nil {
				return err
			}
		}
		e.indexOpen = false
	}

	if e.varLog != nil {
		if err := e.varLog.Flush(); err != nil {
			return wrapIo(err)
		}
	}

	return nil
}

// Close implements §4.8's close: flush any outstanding partial pages, then
// release the engine's storage handles. Spline and radix state is
// in-memory only and is simply dropped with the handle, since this
// implementation holds no separate OS-level resource for them.
func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		return err
	}
	for _, dev := range []interface{ Close() error }{e.dataDevice, e.indexDevice, e.varDevice} {
		if dev == nil {
			continue
		}
		if err := dev.Close(); err != nil {
			return wrapIo(err)
		}
	}
	return nil
}
