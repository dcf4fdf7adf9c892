package spline

import "testing"

func TestFindStaysWithinErrorBound(t *testing.T) {
	s := New(4, 0)
	for i := uint64(0); i < 200; i++ {
		if err := s.Add(i, uint32(i)); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	for i := uint64(0); i < 200; i++ {
		predicted, low, high := s.Find(i)
		if predicted < low || predicted > high {
			t.Fatalf("predicted %d outside [%d,%d] for key %d", predicted, low, high, i)
		}
		want := uint32(i)
		if want > predicted {
			if want-predicted > 4 {
				t.Errorf("key %d: predicted %d off by more than MaxError", i, predicted)
			}
		} else if predicted-want > 4 {
			t.Errorf("key %d: predicted %d off by more than MaxError", i, predicted)
		}
	}
}

func TestAddSingleKnotPredictsThatValue(t *testing.T) {
	s := New(2, 0)
	s.Add(10, 5)
	predicted, low, high := s.Find(10)
	if predicted != 5 {
		t.Errorf("predicted = %d, want 5", predicted)
	}
	if low > 5 || high < 5 {
		t.Errorf("bounds [%d,%d] do not contain 5", low, high)
	}
}

func TestOverflowReturnsErrorWithoutCorruptingState(t *testing.T) {
	s := New(0, 1)
	if err := s.Add(0, 0); err != nil {
		t.Fatalf("Add(0,0): %v", err)
	}
	if err := s.Add(1, 100); err != nil {
		t.Fatalf("Add(1,100): %v", err)
	}
	before := s.Len()
	// this point's slope diverges from the established corridor, forcing a
	// second knot to commit, which must overflow a capacity-1 spline.
	if err := s.Add(2, 0); err != ErrOverflow {
		t.Fatalf("Add(2,0) = %v, want ErrOverflow", err)
	}
	if s.Len() != before {
		t.Fatalf("Len() changed from %d to %d on an overflowing Add", before, s.Len())
	}
}

func TestFindBoundedMatchesFindWithFullRange(t *testing.T) {
	s := New(4, 0)
	for i := uint64(0); i < 50; i++ {
		s.Add(i*3, uint32(i))
	}
	for i := uint64(0); i < 150; i += 7 {
		wantP, wantLo, wantHi := s.Find(i)
		gotP, gotLo, gotHi := s.FindBounded(i, 0, s.Len()-1)
		if wantP != gotP || wantLo != gotLo || wantHi != gotHi {
			t.Errorf("key %d: Find=(%d,%d,%d) FindBounded=(%d,%d,%d)", i, wantP, wantLo, wantHi, gotP, gotLo, gotHi)
		}
	}
}

func TestFindBoundedClampsOutOfRangeBounds(t *testing.T) {
	s := New(2, 0)
	for i := uint64(0); i < 10; i++ {
		s.Add(i, uint32(i))
	}
	// lo/hi far outside [0, Len()-1] must not panic and must clamp.
	predicted, _, _ := s.FindBounded(5, -100, 1000)
	if predicted > 9+2 {
		t.Errorf("predicted %d implausible for clamped bounds", predicted)
	}
}

func TestDegenerateSameKeyInsertsDoNotPanic(t *testing.T) {
	s := New(2, 0)
	s.Add(5, 1)
	s.Add(5, 2)
	s.Add(5, 3)
	s.Add(6, 4)
	predicted, _, _ := s.Find(5)
	_ = predicted
}
