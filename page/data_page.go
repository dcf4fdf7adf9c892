package page

import "github.com/flashkv/embeddb/bitmap"

// DataPage is a thin view over a buffer-pool-owned byte slice, laid out per
// the data page wire format: a header (logical id, record count, optional
// bitmap, optional min/max key and data) followed by count fixed-size
// record slots.
type DataPage struct {
	Buf    []byte
	Layout Layout
}

// Init zeroes the body and primes min-key/min-data to all-ones so the first
// record's min comparison always wins, per §4.1.
func (p DataPage) Init(logicalID uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	le.PutUint32(p.Buf[0:4], logicalID)
	if off := p.Layout.minKeyOffset(); off >= 0 {
		setAllOnes(p.Buf[off : off+p.Layout.KeySize])
	}
	if off := p.Layout.minDataOffset(); off >= 0 {
		setAllOnes(p.Buf[off : off+p.Layout.DataSize])
	}
}

func setAllOnes(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}

func (p DataPage) LogicalID() uint32      { return le.Uint32(p.Buf[0:4]) }
func (p DataPage) SetLogicalID(id uint32) { le.PutUint32(p.Buf[0:4], id) }

func (p DataPage) Count() int            { return int(le.Uint16(p.Buf[4:6])) }
func (p DataPage) setCount(n int)        { le.PutUint16(p.Buf[4:6], uint16(n)) }
func (p DataPage) IncCount()             { p.setCount(p.Count() + 1) }

// Bitmap returns the page-level bitmap field, or nil if bitmaps are disabled.
func (p DataPage) Bitmap() *bitmap.Bitmap {
	off := p.Layout.bitmapOffset()
	if off < 0 {
		return nil
	}
	return bitmap.FromBytes(p.Buf[off : off+p.Layout.BitmapSize])
}

// SetBitmap writes bm back into the header's bitmap field.
func (p DataPage) SetBitmap(bm *bitmap.Bitmap) {
	off := p.Layout.bitmapOffset()
	if off < 0 {
		return
	}
	copy(p.Buf[off:off+p.Layout.BitmapSize], bm.Bytes())
}

// MinKey returns the header's min-key field when USE_MAX_MIN is set;
// otherwise it falls back to slot 0's key, which is equivalent since
// records are inserted in non-decreasing key order.
func (p DataPage) MinKey() []byte {
	if off := p.Layout.minKeyOffset(); off >= 0 {
		return p.Buf[off : off+p.Layout.KeySize]
	}
	return p.RecordKey(0)
}

// MaxKey returns the header's max-key field when set, else the last slot's
// key per §4.1 ("getMaxKey (from header or last slot respectively)").
func (p DataPage) MaxKey() []byte {
	if off := p.Layout.maxKeyOffset(); off >= 0 {
		return p.Buf[off : off+p.Layout.KeySize]
	}
	return p.RecordKey(p.Count() - 1)
}

func (p DataPage) SetMinKey(k []byte) {
	if off := p.Layout.minKeyOffset(); off >= 0 {
		copy(p.Buf[off:off+p.Layout.KeySize], k)
	}
}

func (p DataPage) SetMaxKey(k []byte) {
	if off := p.Layout.maxKeyOffset(); off >= 0 {
		copy(p.Buf[off:off+p.Layout.KeySize], k)
	}
}

func (p DataPage) MinData() []byte {
	off := p.Layout.minDataOffset()
	if off < 0 {
		return nil
	}
	return p.Buf[off : off+p.Layout.DataSize]
}

func (p DataPage) MaxData() []byte {
	off := p.Layout.maxDataOffset()
	if off < 0 {
		return nil
	}
	return p.Buf[off : off+p.Layout.DataSize]
}

func (p DataPage) SetMinData(d []byte) {
	if off := p.Layout.minDataOffset(); off >= 0 {
		copy(p.Buf[off:off+p.Layout.DataSize], d)
	}
}

func (p DataPage) SetMaxData(d []byte) {
	if off := p.Layout.maxDataOffset(); off >= 0 {
		copy(p.Buf[off:off+p.Layout.DataSize], d)
	}
}

// RecordKey returns the key bytes of record slot i.
func (p DataPage) RecordKey(i int) []byte {
	off := p.Layout.RecordOffset(i)
	return p.Buf[off : off+p.Layout.KeySize]
}

// RecordData returns the data bytes of record slot i.
func (p DataPage) RecordData(i int) []byte {
	off := p.Layout.RecordOffset(i) + p.Layout.KeySize
	return p.Buf[off : off+p.Layout.DataSize]
}

// RecordVarOffset returns the var-offset suffix of record slot i. Callers
// must only call this when Layout.UseVarData is true.
func (p DataPage) RecordVarOffset(i int) uint32 {
	off := p.Layout.RecordOffset(i) + p.Layout.KeySize + p.Layout.DataSize
	return le.Uint32(p.Buf[off : off+4])
}

func (p DataPage) SetRecordVarOffset(i int, v uint32) {
	off := p.Layout.RecordOffset(i) + p.Layout.KeySize + p.Layout.DataSize
	le.PutUint32(p.Buf[off:off+4], v)
}

// AppendRecord writes key/data (and varOffset, if var-data is enabled) into
// the next free slot and increments the record count. The caller must have
// already checked Count() < Layout.MaxRecordsPerPage.
func (p DataPage) AppendRecord(key, data []byte, varOffset uint32) {
	i := p.Count()
	off := p.Layout.RecordOffset(i)
	copy(p.Buf[off:off+p.Layout.KeySize], key)
	copy(p.Buf[off+p.Layout.KeySize:off+p.Layout.KeySize+p.Layout.DataSize], data)
	if p.Layout.UseVarData {
		le.PutUint32(p.Buf[off+p.Layout.KeySize+p.Layout.DataSize:off+p.Layout.KeySize+p.Layout.DataSize+4], varOffset)
	}
	p.IncCount()
}

// Full reports whether the page has no room for another record.
func (p DataPage) Full() bool {
	return p.Count() >= p.Layout.MaxRecordsPerPage
}
