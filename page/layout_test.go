package page

import "testing"

func TestNewLayoutHeaderSizes(t *testing.T) {
	l := NewLayout(4, 4, 256, 0, false, false, false)
	if l.HeaderSize != 6 {
		t.Errorf("bare layout HeaderSize = %d, want 6", l.HeaderSize)
	}
	if l.RecordSize != 8 {
		t.Errorf("RecordSize = %d, want 8", l.RecordSize)
	}

	withAll := NewLayout(4, 4, 256, 2, true, true, true)
	wantHeader := 6 + 2 + 2*4 + 2*4 // fixed + bitmap + min/max key + min/max data
	if withAll.HeaderSize != wantHeader {
		t.Errorf("HeaderSize = %d, want %d", withAll.HeaderSize, wantHeader)
	}
	if withAll.RecordSize != 4+4+4 {
		t.Errorf("RecordSize with var data = %d, want %d", withAll.RecordSize, 4+4+4)
	}
}

func TestMaxRecordsPerPage(t *testing.T) {
	l := NewLayout(4, 4, 70, 0, false, false, false)
	// header=6, record=8 -> (70-6)/8 = 8
	if l.MaxRecordsPerPage != 8 {
		t.Errorf("MaxRecordsPerPage = %d, want 8", l.MaxRecordsPerPage)
	}
}

func TestRecordOffsetMonotonic(t *testing.T) {
	l := NewLayout(4, 4, 256, 0, false, false, false)
	if l.RecordOffset(0) != l.HeaderSize {
		t.Errorf("RecordOffset(0) = %d, want %d", l.RecordOffset(0), l.HeaderSize)
	}
	if l.RecordOffset(1) != l.HeaderSize+l.RecordSize {
		t.Errorf("RecordOffset(1) = %d, want %d", l.RecordOffset(1), l.HeaderSize+l.RecordSize)
	}
}
