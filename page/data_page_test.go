package page

import "testing"

func newTestDataPage(t *testing.T, useMaxMin, useVarData bool) DataPage {
	t.Helper()
	l := NewLayout(4, 4, 256, 0, useMaxMin, useMaxMin, useVarData)
	buf := make([]byte, l.PageSize)
	dp := DataPage{Buf: buf, Layout: l}
	dp.Init(1)
	return dp
}

func TestInitSetsLogicalIDAndEmptyCount(t *testing.T) {
	dp := newTestDataPage(t, false, false)
	if dp.LogicalID() != 1 {
		t.Errorf("LogicalID = %d, want 1", dp.LogicalID())
	}
	if dp.Count() != 0 {
		t.Errorf("Count = %d, want 0", dp.Count())
	}
}

func TestAppendRecordRoundTrip(t *testing.T) {
	dp := newTestDataPage(t, false, false)
	key := []byte{1, 0, 0, 0}
	data := []byte{9, 9, 9, 9}
	dp.AppendRecord(key, data, NoVarData)
	if dp.Count() != 1 {
		t.Fatalf("Count = %d, want 1", dp.Count())
	}
	if string(dp.RecordKey(0)) != string(key) {
		t.Errorf("RecordKey(0) = %v, want %v", dp.RecordKey(0), key)
	}
	if string(dp.RecordData(0)) != string(data) {
		t.Errorf("RecordData(0) = %v, want %v", dp.RecordData(0), data)
	}
}

func TestAppendRecordWithVarOffset(t *testing.T) {
	dp := newTestDataPage(t, false, true)
	dp.AppendRecord([]byte{1, 0, 0, 0}, []byte{0, 0, 0, 0}, 42)
	if got := dp.RecordVarOffset(0); got != 42 {
		t.Errorf("RecordVarOffset(0) = %d, want 42", got)
	}
}

func TestFull(t *testing.T) {
	l := NewLayout(4, 4, 6+8*2, 0, false, false, false) // room for exactly 2 records
	dp := DataPage{Buf: make([]byte, l.PageSize), Layout: l}
	dp.Init(0)
	if dp.Full() {
		t.Fatal("fresh page should not be full")
	}
	dp.AppendRecord([]byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}, NoVarData)
	dp.AppendRecord([]byte{1, 0, 0, 0}, []byte{0, 0, 0, 0}, NoVarData)
	if !dp.Full() {
		t.Fatal("page with MaxRecordsPerPage records should be full")
	}
}

func TestMinMaxKeyHeaderFields(t *testing.T) {
	dp := newTestDataPage(t, true, false)
	dp.SetMinKey([]byte{1, 0, 0, 0})
	dp.SetMaxKey([]byte{9, 0, 0, 0})
	if string(dp.MinKey()) != string([]byte{1, 0, 0, 0}) {
		t.Errorf("MinKey mismatch")
	}
	if string(dp.MaxKey()) != string([]byte{9, 0, 0, 0}) {
		t.Errorf("MaxKey mismatch")
	}
}

func TestMinKeyFallsBackToSlotZeroWithoutMaxMin(t *testing.T) {
	dp := newTestDataPage(t, false, false)
	dp.AppendRecord([]byte{5, 0, 0, 0}, []byte{0, 0, 0, 0}, NoVarData)
	if string(dp.MinKey()) != string([]byte{5, 0, 0, 0}) {
		t.Errorf("MinKey should fall back to slot 0's key when USE_MAX_MIN is off")
	}
}
