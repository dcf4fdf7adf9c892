package embeddb

// Stats counts lifecycle and performance events, the "Stats / lifecycle"
// component in SYSTEM OVERVIEW's budget table (supplemented feature #2 in
// SPEC_FULL.md: the architecture table names this row but §4 never details
// it, so SPEC_FULL enumerates the counters directly).
type Stats struct {
	DataPagesWritten  uint64
	IndexPagesWritten uint64
	VarPagesWritten   uint64
	PagesErased       uint64
	SplineKnots       int
	BufferHits        uint64
	BufferMisses      uint64
}

// Stats returns a snapshot of the engine's lifetime counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		DataPagesWritten:  e.stats.DataPagesWritten,
		IndexPagesWritten: e.stats.IndexPagesWritten,
		VarPagesWritten:   e.stats.VarPagesWritten,
		PagesErased:       e.stats.PagesErased,
		SplineKnots:       e.spline.Len(),
		BufferHits:        e.bufs.Hits,
		BufferMisses:      e.bufs.Misses,
	}
	return s
}
