// Package page implements the on-disk page codec: header layout, record
// slot addressing, and the bitmap/min-max summary fields, grounded on
// pager/pager.go's byte-offset constants and slotted Page type but
// generalized from compile-time constants to a runtime-computed Layout,
// since key/data/bitmap widths are configuration here rather than a fixed
// SQL row format.
package page

import "encoding/binary"

// Parameter flags mirror the spec's parameters bitfield.
const (
	UseIndex byte = 1 << iota
	UseBitmap
	UseMaxMin
	UseSum
	UseVarData
	ResetData
)

// NoVarData is the sentinel stored in a record's 4-byte var-offset suffix
// meaning the record has no associated variable-length blob.
const NoVarData uint32 = 0xFFFFFFFF

// dataPageHeaderFixed is the always-present portion of a data page header:
// 4-byte logical id + 2-byte record count.
const dataPageHeaderFixed = 6

// IndexPageHeaderSize is the fixed 16-byte index page header.
const IndexPageHeaderSize = 16

// Layout is computed once from configuration and shared by every page the
// engine reads or writes; it never changes for the lifetime of an open
// engine handle.
type Layout struct {
	KeySize    int
	DataSize   int
	PageSize   int
	BitmapSize int
	UseBitmap  bool
	UseMaxMin  bool
	UseVarData bool

	// RecordSize is key + data + (4 if var-data is enabled).
	RecordSize int
	// HeaderSize is the data page header size: fixed 6 bytes, plus bitmap,
	// plus min/max key and data fields when enabled.
	HeaderSize int
	// MaxRecordsPerPage is how many records fit in PageSize-HeaderSize bytes.
	MaxRecordsPerPage int
	// MaxBitmapsPerIndexPage is how many per-data-page bitmaps fit in one
	// index page body.
	MaxBitmapsPerIndexPage int
}

// NewLayout computes a Layout from the engine's configured geometry.
func NewLayout(keySize, dataSize, pageSize, bitmapSize int, useBitmap, useMaxMin, useVarData bool) Layout {
	l := Layout{
		KeySize:    keySize,
		DataSize:   dataSize,
		PageSize:   pageSize,
		BitmapSize: bitmapSize,
		UseBitmap:  useBitmap,
		UseMaxMin:  useMaxMin,
		UseVarData: useVarData,
	}
	l.RecordSize = keySize + dataSize
	if useVarData {
		l.RecordSize += 4
	}
	l.HeaderSize = dataPageHeaderFixed
	if useBitmap {
		l.HeaderSize += bitmapSize
	}
	if useMaxMin {
		l.HeaderSize += 2*keySize + 2*dataSize
	}
	if l.PageSize > l.HeaderSize {
		l.MaxRecordsPerPage = (l.PageSize - l.HeaderSize) / l.RecordSize
	}
	if bitmapSize > 0 {
		l.MaxBitmapsPerIndexPage = (pageSize - IndexPageHeaderSize) / bitmapSize
	}
	return l
}

// bitmapOffset is the byte offset of the bitmap field within a data page
// header, or -1 if bitmaps are disabled.
func (l Layout) bitmapOffset() int {
	if !l.UseBitmap {
		return -1
	}
	return dataPageHeaderFixed
}

// minKeyOffset is the byte offset of the min-key field, or -1 if disabled.
func (l Layout) minKeyOffset() int {
	if !l.UseMaxMin {
		return -1
	}
	off := dataPageHeaderFixed
	if l.UseBitmap {
		off += l.BitmapSize
	}
	return off
}

func (l Layout) maxKeyOffset() int {
	off := l.minKeyOffset()
	if off < 0 {
		return -1
	}
	return off + l.KeySize
}

func (l Layout) minDataOffset() int {
	off := l.maxKeyOffset()
	if off < 0 {
		return -1
	}
	return off + l.KeySize
}

func (l Layout) maxDataOffset() int {
	off := l.minDataOffset()
	if off < 0 {
		return -1
	}
	return off + l.DataSize
}

// RecordOffset returns the byte offset of record i within a data page body.
func (l Layout) RecordOffset(i int) int {
	return l.HeaderSize + i*l.RecordSize
}

// le is the shared byte order for every multi-byte wire field.
var le = binary.LittleEndian
