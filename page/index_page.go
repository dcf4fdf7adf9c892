package page

// IndexPage is a view over a buffer-pool-owned slice laid out as the index
// page wire format: a 16-byte header followed by count fixed-size bitmaps,
// one per consecutive data page starting at MinDataPageID.
type IndexPage struct {
	Buf    []byte
	Layout Layout
}

func (p IndexPage) Init(logicalID uint32, minDataPageID uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	le.PutUint32(p.Buf[0:4], logicalID)
	le.PutUint32(p.Buf[8:12], minDataPageID)
}

func (p IndexPage) LogicalID() uint32 { return le.Uint32(p.Buf[0:4]) }

func (p IndexPage) Count() int     { return int(le.Uint16(p.Buf[4:6])) }
func (p IndexPage) setCount(n int) { le.PutUint16(p.Buf[4:6], uint16(n)) }

// MinDataPageID is the logical id of the first data page this index page
// summarizes; bitmap at slot j summarizes MinDataPageID+j, per invariant 6.
func (p IndexPage) MinDataPageID() uint32 { return le.Uint32(p.Buf[8:12]) }

// BitmapAt returns the raw bitmap bytes for slot j.
func (p IndexPage) BitmapAt(j int) []byte {
	off := IndexPageHeaderSize + j*p.Layout.BitmapSize
	return p.Buf[off : off+p.Layout.BitmapSize]
}

// AppendBitmap writes bm into the next free slot and increments count. The
// caller must have checked Count() < Layout.MaxBitmapsPerIndexPage.
func (p IndexPage) AppendBitmap(bm []byte) {
	j := p.Count()
	copy(p.BitmapAt(j), bm)
	p.setCount(j + 1)
}

func (p IndexPage) Full() bool {
	return p.Count() >= p.Layout.MaxBitmapsPerIndexPage
}
