package page

// VarPage is a view over a buffer-pool-owned slice holding a run of the
// variable-data log: a keySize-byte header (the max key whose blob has
// bytes on this page) followed by concatenated (uint32 length, payload)
// records that may span page boundaries.
type VarPage struct {
	Buf    []byte
	Layout Layout
}

// BodyStart is the byte offset where payload data begins, right after the
// keySize-byte header.
func (p VarPage) BodyStart() int { return p.Layout.KeySize }

// BodySize is how many payload bytes a var page can hold.
func (p VarPage) BodySize() int { return p.Layout.PageSize - p.Layout.KeySize }

func (p VarPage) Header() []byte {
	return p.Buf[0:p.Layout.KeySize]
}

// SetHeader stamps the page's max-key header, called whenever a new var
// page is started or an existing one's max key advances.
func (p VarPage) SetHeader(key []byte) {
	copy(p.Buf[0:p.Layout.KeySize], key)
}

// Remaining returns how many body bytes are free starting at body offset
// pos (pos is relative to BodyStart, i.e. 0 means "page is empty").
func (p VarPage) Remaining(pos int) int {
	return p.BodySize() - pos
}
