// Package vardata implements the variable-data append log of §4.5/§4.6/§9's
// var-data design note: a circular run of pages, each headed by the current
// max key, holding length-prefixed blobs that may span page boundaries.
// There is no teacher precedent for this component (chirst-cdb's pager has
// no analogous overflow log); the page-spanning write/read loop is grounded
// directly on the specification's putVar/getVar prose.
package vardata

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/flashkv/embeddb/buffer"
	"github.com/flashkv/embeddb/keycodec"
	"github.com/flashkv/embeddb/page"
	"github.com/flashkv/embeddb/storage"
)

var le = binary.LittleEndian

// Log owns one circular var-data region of a Device. Its in-progress write
// page and its device-backed read cache are both slots drawn from the
// engine's shared buffer.Pool (VarWrite/VarRead), the same way the fixed
// record path draws DataWrite/DataRead from it.
type Log struct {
	Device   storage.Device
	Base     int64
	PageSize int
	NumPages int
	KeySize  int

	bufs *buffer.Pool

	cur         page.VarPage
	writePhys   int
	writeOffset int
	dirty       bool

	pagesWrittenTotal int64

	// MinVarRecordID is the smallest key whose blob is guaranteed not yet
	// overwritten by wrap, per invariant 5. HasMin is false until the first
	// wrap-around overwrite happens.
	MinVarRecordID uint64
	HasMin         bool
}

// New constructs a Log over numPages pages of pageSize bytes starting at
// baseOffset; keySize is the width of each page's max-key header. bufs must
// have been allocated with useVar set, so its VarWrite/VarRead slots exist.
func New(dev storage.Device, baseOffset int64, pageSize, numPages, keySize int, bufs *buffer.Pool) *Log {
	l := &Log{
		Device:   dev,
		Base:     baseOffset,
		PageSize: pageSize,
		NumPages: numPages,
		KeySize:  keySize,
		bufs:     bufs,
	}
	l.cur = page.VarPage{
		Buf:    bufs.Slot(buffer.VarWrite),
		Layout: page.Layout{KeySize: keySize, PageSize: pageSize},
	}
	return l
}

// FormatFresh erases the whole var region.
func (l *Log) FormatFresh() error {
	return l.Device.Erase(l.Base, int64(l.NumPages)*int64(l.PageSize))
}

func (l *Log) bodySize() int { return l.cur.BodySize() }

// PagesWritten returns how many var pages have been persisted so far.
func (l *Log) PagesWritten() int64 { return l.pagesWrittenTotal }

// CurrentOffset returns the absolute var offset the next write would land
// at: the record's varOffset suffix is stamped with this value.
func (l *Log) CurrentOffset() uint32 {
	return uint32(l.writePhys)*uint32(l.PageSize) + uint32(l.KeySize) + uint32(l.writeOffset)
}

// BeforeRecord implements putVar step 1: if fewer than 4 bytes remain on
// the current page, flush it and start a new one, then stamp key into the
// (possibly new) current page's header.
func (l *Log) BeforeRecord(key []byte) error {
	if l.cur.Remaining(l.writeOffset) < 4 {
		if err := l.advancePage(); err != nil {
			return err
		}
	}
	l.cur.SetHeader(key)
	l.dirty = true
	return nil
}

// WriteLength writes a little-endian uint32 length, handling a page
// boundary split exactly like WritePayload.
func (l *Log) WriteLength(length uint32, key []byte) error {
	b := make([]byte, 4)
	le.PutUint32(b, length)
	return l.writeBytes(b, key)
}

// WritePayload copies payload into the log, page by page, restamping each
// new page's header with key as it goes.
func (l *Log) WritePayload(payload []byte, key []byte) error {
	return l.writeBytes(payload, key)
}

func (l *Log) writeBytes(data []byte, key []byte) error {
	pos := 0
	for pos < len(data) {
		remaining := l.cur.Remaining(l.writeOffset)
		if remaining <= 0 {
			if err := l.advancePage(); err != nil {
				return err
			}
			l.cur.SetHeader(key)
			remaining = l.cur.Remaining(l.writeOffset)
		}
		n := len(data) - pos
		if n > remaining {
			n = remaining
		}
		dst := l.cur.BodyStart() + l.writeOffset
		copy(l.cur.Buf[dst:dst+n], data[pos:pos+n])
		l.writeOffset += n
		pos += n
		l.dirty = true
	}
	return nil
}

// advancePage persists the in-progress page, advances the write frontier
// (wrapping circularly), and — if the slot about to be reused still holds
// data from a previous lap — reads its old header to bump MinVarRecordID
// before that data is overwritten, per §4.5 step 4 and invariant 5.
func (l *Log) advancePage() error {
	offset := l.Base + int64(l.writePhys)*int64(l.PageSize)
	if _, err := l.Device.WriteAt(l.cur.Buf, offset); err != nil {
		return errors.Wrap(err, "vardata: writing page")
	}
	l.pagesWrittenTotal++
	l.bufs.Invalidate(buffer.VarRead)
	l.writePhys++
	if l.writePhys >= l.NumPages {
		l.writePhys = 0
	}

	if l.pagesWrittenTotal >= int64(l.NumPages) {
		oldHeader := make([]byte, l.KeySize)
		nextOffset := l.Base + int64(l.writePhys)*int64(l.PageSize)
		if _, err := l.Device.ReadAt(oldHeader, nextOffset); err != nil {
			return errors.Wrap(err, "vardata: reading page about to be overwritten")
		}
		l.MinVarRecordID = keycodec.Widen(oldHeader, l.KeySize) + 1
		l.HasMin = true
	}

	for i := range l.cur.Buf {
		l.cur.Buf[i] = 0
	}
	l.writeOffset = 0
	return nil
}

// Flush persists the partial current page if there is unwritten content.
// A second call with no intervening write is a no-op, satisfying the
// "idempotence of flush" testable property via the no-op contract.
func (l *Log) Flush() error {
	if !l.dirty {
		return nil
	}
	if err := l.advancePage(); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// ReadAt reads n bytes starting at the given absolute var offset into out,
// skipping each page's keySize header byte run as it crosses boundaries.
// The page currently being written has no copy on Device yet, so a request
// landing there is served straight out of the write buffer
// (read-your-own-write), mirroring how lookupRecord checks the DataWrite
// slot before falling through to a device-backed read. Anything older is
// served through the VarRead slot, Touch-cached by physical page number the
// same way DataRead/IndexRead are in read.go/write.go.
func (l *Log) ReadAt(offset uint32, out []byte) error {
	remaining := len(out)
	pos := 0
	cur := int64(offset)
	pageSize := int64(l.PageSize)
	for remaining > 0 {
		physPage := cur / pageSize
		within := cur % pageSize
		bodyOffset := int(within) - l.KeySize
		if bodyOffset < 0 {
			return errors.Errorf("vardata: offset %d lands inside page header", cur)
		}
		avail := l.bodySize() - bodyOffset
		toRead := remaining
		if toRead > avail {
			toRead = avail
		}

		if int(physPage) == l.writePhys {
			src := l.cur.BodyStart() + bodyOffset
			copy(out[pos:pos+toRead], l.cur.Buf[src:src+toRead])
		} else {
			rb := l.bufs.Slot(buffer.VarRead)
			if !l.bufs.Touch(buffer.VarRead, physPage) {
				if _, err := l.Device.ReadAt(rb, l.Base+physPage*pageSize); err != nil {
					return errors.Wrap(err, "vardata: reading page")
				}
			}
			src := l.KeySize + bodyOffset
			copy(out[pos:pos+toRead], rb[src:src+toRead])
		}

		pos += toRead
		remaining -= toRead
		cur = (physPage+1)*pageSize + int64(l.KeySize)
	}
	return nil
}
