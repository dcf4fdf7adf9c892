// Package buffer implements the fixed role-slot buffer pool: a small
// contiguous allocation partitioned into named slots (data-write,
// data-read, index-write, index-read, var-write, var-read) per §4.2,
// grounded on pager/cache/cache.go's lruPageCache — but cut down from a
// general-purpose many-key LRU to a one-entry-per-role direct-mapped cache,
// since the spec's roles are fixed rather than general-purpose.
package buffer

import "github.com/pkg/errors"

// Role identifies one of the buffer pool's fixed slots.
type Role int

const (
	DataWrite Role = iota
	DataRead
	IndexWrite
	IndexRead
	VarWrite
	VarRead
	roleCount
)

func (r Role) String() string {
	switch r {
	case DataWrite:
		return "data-write"
	case DataRead:
		return "data-read"
	case IndexWrite:
		return "index-write"
	case IndexRead:
		return "index-read"
	case VarWrite:
		return "var-write"
	case VarRead:
		return "var-read"
	default:
		return "unknown"
	}
}

// residentNone marks a read slot as not currently caching any page.
const residentNone = -1

// Pool is the engine's fixed-role buffer pool. Pages are sliced views into
// one contiguous backing allocation, matching the teacher's single
// `bufferSizeInBlocks * pageSize` allocation strategy.
type Pool struct {
	pageSize int
	backing  []byte
	slots    map[Role][]byte
	resident map[Role]int64

	Hits   uint64
	Misses uint64
}

// MinBlocks returns the minimum bufferSizeInBlocks required for the given
// feature set, per §4.2's table (2 base; +2 for index; +2 for var-data,
// sharing slot 2/3 with index when index is disabled).
func MinBlocks(useIndex, useVar bool) int {
	n := 2
	if useIndex {
		n += 2
	}
	if useVar {
		n += 2
	}
	return n
}

// New allocates a Pool sized for bufferSizeInBlocks pages of pageSize bytes
// and assigns role slots per §4.2's table. useIndex/useVar control whether
// the index and var slots are allocated at all.
func New(pageSize, bufferSizeInBlocks int, useIndex, useVar bool) (*Pool, error) {
	min := MinBlocks(useIndex, useVar)
	if bufferSizeInBlocks < min {
		return nil, errors.Errorf("buffer: need at least %d blocks for this configuration, got %d", min, bufferSizeInBlocks)
	}

	p := &Pool{
		pageSize: pageSize,
		backing:  make([]byte, bufferSizeInBlocks*pageSize),
		slots:    map[Role][]byte{},
		resident: map[Role]int64{},
	}

	block := 0
	assign := func(r Role) {
		p.slots[r] = p.backing[block*pageSize : (block+1)*pageSize]
		block++
	}
	assign(DataWrite)
	assign(DataRead)
	if useIndex {
		assign(IndexWrite)
		assign(IndexRead)
	}
	if useVar {
		// Slot 4/5 per the table; when index is disabled these occupy slots
		// 2/3 instead, which assign's running block counter already does.
		assign(VarWrite)
		assign(VarRead)
	}

	for _, r := range []Role{DataRead, IndexRead, VarRead} {
		if _, ok := p.slots[r]; ok {
			p.resident[r] = residentNone
		}
	}

	return p, nil
}

// Slot returns the backing bytes for role r, or nil if that role was not
// allocated (e.g. IndexWrite when the index is disabled).
func (p *Pool) Slot(r Role) []byte {
	return p.slots[r]
}

// HasRole reports whether role r was allocated.
func (p *Pool) HasRole(r Role) bool {
	_, ok := p.slots[r]
	return ok
}

// Touch checks whether the read slot r already caches physicalKey. If so it
// counts a buffer hit and returns true without disturbing the slot's
// contents (the caller must not re-read from storage). If not, it counts a
// miss, marks physicalKey as the new resident key, and returns false so the
// caller knows it must populate the slot from storage.
func (p *Pool) Touch(r Role, physicalKey int64) bool {
	if p.resident[r] == physicalKey && physicalKey != residentNone {
		p.Hits++
		return true
	}
	p.Misses++
	p.resident[r] = physicalKey
	return false
}

// Invalidate clears a read slot's resident key, forcing the next Touch to
// miss. Used when the underlying physical page may have been rewritten
// since it was cached (e.g. after an erase-ahead cycle).
func (p *Pool) Invalidate(r Role) {
	if _, ok := p.resident[r]; ok {
		p.resident[r] = residentNone
	}
}
