// Package spline implements the piecewise-linear monotone learned index of
// §4.4: a streaming spline construction with a bounded-error corridor, plus
// an optional radix-prefix accelerator (radix.go). Neither the teacher nor
// any other example repo implements a learned index, so this algorithm is
// grounded directly on the specification's description of splineAdd and
// splineFind rather than on corpus precedent; see DESIGN.md.
package spline

import "github.com/pkg/errors"

// ErrOverflow is returned by Add once the spline's fixed knot capacity is
// exhausted. Per §4.4, capacity exhaustion must not corrupt prior state:
// Add returns before mutating anything when this would be the overflowing
// insert.
var ErrOverflow = errors.New("spline: knot capacity exhausted")

// Knot is a single (key, logicalPageId) point retained by the spline.
type Knot struct {
	Key uint64
	Y   uint32
}

// Spline maintains a bounded-error piecewise-linear envelope over inserted
// (key, y) points using the classic streaming "error corridor" technique:
// each new point narrows a pair of candidate slopes bounding the line from
// the last committed knot; when no slope in that range can cover the new
// point within ±MaxError, the last point that did fit is committed as a new
// knot and a fresh corridor starts from there.
type Spline struct {
	MaxError uint32
	Capacity int

	knots []Knot

	hasCorridor  bool
	upperSlope   float64
	lowerSlope   float64
	lastSeen     Knot
	lastSeenSet  bool
	lastHitKnot  int
}

// New returns an empty Spline bounding prediction error to maxError and
// capped at capacity knots (0 means unbounded).
func New(maxError uint32, capacity int) *Spline {
	return &Spline{MaxError: maxError, Capacity: capacity}
}

// Len returns the number of committed knots.
func (s *Spline) Len() int { return len(s.knots) }

// Knots returns the committed knots. Callers must not mutate the result.
func (s *Spline) Knots() []Knot { return s.knots }

func slope(a, b Knot) float64 {
	return (float64(b.Y) - float64(a.Y)) / float64(b.Key-a.Key)
}

func errorBound(y uint32, maxError uint32, sign int) float64 {
	if sign < 0 {
		if y < maxError {
			return 0
		}
		return float64(y - maxError)
	}
	return float64(y) + float64(maxError)
}

// Add feeds a new (key, y) point into the spline. Keys must be
// non-decreasing; the write path is responsible for rejecting
// OrderViolation before points ever reach here.
func (s *Spline) Add(key uint64, y uint32) error {
	if len(s.knots) == 0 {
		if s.Capacity > 0 && len(s.knots) >= s.Capacity {
			return ErrOverflow
		}
		s.knots = append(s.knots, Knot{key, y})
		s.lastSeen = Knot{key, y}
		s.lastSeenSet = true
		return nil
	}

	last := s.knots[len(s.knots)-1]

	if key == last.Key {
		// Degenerate: two knots at the same key. Keep the corridor as is
		// and just track the latest value seen at this key.
		s.lastSeen = Knot{key, y}
		return nil
	}

	if !s.hasCorridor {
		s.upperSlope = slope(last, Knot{key, uint32(errorBound(y, s.MaxError, 1))})
		s.lowerSlope = slope(last, Knot{key, uint32(errorBound(y, s.MaxError, -1))})
		s.hasCorridor = true
		s.lastSeen = Knot{key, y}
		return nil
	}

	upperCandidate := slope(last, Knot{key, uint32(errorBound(y, s.MaxError, 1))})
	lowerCandidate := slope(last, Knot{key, uint32(errorBound(y, s.MaxError, -1))})

	if lowerCandidate > s.upperSlope || upperCandidate < s.lowerSlope {
		if s.Capacity > 0 && len(s.knots) >= s.Capacity {
			return ErrOverflow
		}
		newLast := s.lastSeen
		s.knots = append(s.knots, newLast)
		if key == newLast.Key {
			s.hasCorridor = false
			s.lastSeen = Knot{key, y}
			return nil
		}
		s.upperSlope = slope(newLast, Knot{key, uint32(errorBound(y, s.MaxError, 1))})
		s.lowerSlope = slope(newLast, Knot{key, uint32(errorBound(y, s.MaxError, -1))})
		s.hasCorridor = true
		s.lastSeen = Knot{key, y}
		return nil
	}

	if upperCandidate < s.upperSlope {
		s.upperSlope = upperCandidate
	}
	if lowerCandidate > s.lowerSlope {
		s.lowerSlope = lowerCandidate
	}
	s.lastSeen = Knot{key, y}
	return nil
}

// effectivePoints returns the committed knots extended with the most
// recently seen point when it is not itself already a knot, so lookups can
// interpolate up to the freshest data without waiting for the next commit.
func (s *Spline) effectivePoints() []Knot {
	if len(s.knots) == 0 {
		if s.lastSeenSet {
			return []Knot{s.lastSeen}
		}
		return nil
	}
	last := s.knots[len(s.knots)-1]
	if s.lastSeenSet && s.lastSeen.Key != last.Key {
		out := make([]Knot, len(s.knots), len(s.knots)+1)
		copy(out, s.knots)
		return append(out, s.lastSeen)
	}
	return s.knots
}

// Find predicts y for key, returning (predictedY, low, high) where
// low/high are predictedY clamped to ±MaxError per §4.4. The caller is
// responsible for further clamping the result into the currently valid
// logical page id range.
func (s *Spline) Find(key uint64) (predictedY, low, high uint32) {
	ek := s.effectivePoints()
	if len(ek) == 0 {
		return 0, 0, 0
	}
	if len(ek) == 1 {
		return clamp(ek[0].Y, s.MaxError)
	}

	i := s.boundedSearch(ek, key)
	a, b := ek[i], ek[i+1]
	var predicted float64
	if b.Key == a.Key {
		predicted = float64(a.Y)
	} else {
		t := float64(key-a.Key) / float64(b.Key-a.Key)
		predicted = float64(a.Y) + t*(float64(b.Y)-float64(a.Y))
	}
	s.lastHitKnot = i
	return clamp(uint32(predicted), s.MaxError)
}

func clamp(y, maxError uint32) (predicted, low, high uint32) {
	low = 0
	if y > maxError {
		low = y - maxError
	}
	return y, low, y + maxError
}

// FindBounded is like Find but restricts the linear scan to knot indices
// [lo, hi], the range radixsplineFind narrows to from the two radix table
// entries bracketing key's prefix, per §4.4. A hi at or past the last
// committed knot also takes in the most recently seen point, as Find does.
func (s *Spline) FindBounded(key uint64, lo, hi int) (predictedY, low, high uint32) {
	ek := s.effectivePoints()
	n := len(ek)
	if n == 0 {
		return 0, 0, 0
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 || hi >= len(s.knots)-1 {
		hi = n - 1
	}
	if hi < lo {
		hi = lo
	}
	if n == 1 || lo == hi {
		return clamp(ek[lo].Y, s.MaxError)
	}

	i := lo
	for i < hi && key >= ek[i+1].Key {
		i++
	}
	j := i + 1
	if j > n-1 {
		j = n - 1
	}
	a, b := ek[i], ek[j]
	var predicted float64
	if b.Key == a.Key {
		predicted = float64(a.Y)
	} else {
		t := float64(key-a.Key) / float64(b.Key-a.Key)
		predicted = float64(a.Y) + t*(float64(b.Y)-float64(a.Y))
	}
	return clamp(uint32(predicted), s.MaxError)
}

// boundedSearch performs the bounded linear search described in §4.4: it
// starts at the last hit segment and walks forward, or walks backward from
// that segment when the key precedes the last hit.
func (s *Spline) boundedSearch(ek []Knot, key uint64) int {
	n := len(ek)
	start := s.lastHitKnot
	if start < 0 || start > n-2 {
		start = 0
	}
	if key >= ek[start].Key {
		for i := start; i < n-1; i++ {
			if key < ek[i+1].Key {
				return i
			}
		}
		return n - 2
	}
	for i := start; i >= 0; i-- {
		if key >= ek[i].Key {
			return i
		}
	}
	return 0
}
