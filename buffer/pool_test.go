package buffer

import "testing"

func TestMinBlocks(t *testing.T) {
	cases := []struct {
		useIndex, useVar bool
		want             int
	}{
		{false, false, 2},
		{true, false, 4},
		{false, true, 4},
		{true, true, 6},
	}
	for _, c := range cases {
		if got := MinBlocks(c.useIndex, c.useVar); got != c.want {
			t.Errorf("MinBlocks(%v,%v) = %d, want %d", c.useIndex, c.useVar, got, c.want)
		}
	}
}

func TestNewRejectsTooFewBlocks(t *testing.T) {
	if _, err := New(512, 1, true, true); err == nil {
		t.Fatal("expected an error for too few blocks")
	}
}

func TestRoleAssignment(t *testing.T) {
	p, err := New(512, 6, true, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, r := range []Role{DataWrite, DataRead, IndexWrite, IndexRead, VarWrite, VarRead} {
		if !p.HasRole(r) {
			t.Errorf("expected role %s to be allocated", r)
		}
		if len(p.Slot(r)) != 512 {
			t.Errorf("role %s slot size = %d, want 512", r, len(p.Slot(r)))
		}
	}
}

func TestTouchHitMiss(t *testing.T) {
	p, err := New(512, 2, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Touch(DataRead, 5) {
		t.Fatal("first touch of a previously unseen key must miss")
	}
	if !p.Touch(DataRead, 5) {
		t.Fatal("second touch of the same key must hit")
	}
	if p.Touch(DataRead, 6) {
		t.Fatal("touching a different key must miss")
	}
	if p.Hits != 1 || p.Misses != 2 {
		t.Errorf("Hits=%d Misses=%d, want 1,2", p.Hits, p.Misses)
	}
}

func TestInvalidateForcesMiss(t *testing.T) {
	p, err := New(512, 2, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Touch(DataRead, 1)
	p.Invalidate(DataRead)
	if p.Touch(DataRead, 1) {
		t.Fatal("touch after invalidate must miss even for the same key")
	}
}

func TestUnallocatedRoleSlotIsNil(t *testing.T) {
	p, err := New(512, 2, false, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.HasRole(IndexWrite) {
		t.Fatal("IndexWrite should not be allocated when useIndex is false")
	}
	if p.Slot(IndexWrite) != nil {
		t.Fatal("Slot for an unallocated role should be nil")
	}
}
