package embeddb

import "github.com/pkg/errors"

// Error kinds, per §7. Entry points return these sentinels either bare or
// wrapped with github.com/pkg/errors, so errors.Cause still recovers the
// sentinel for status-code mapping while a wrapped message keeps call-site
// context. Key/data size errors and var-data calls on an engine without
// variable data are plain errors that map to no sentinel.
var (
	// ErrNotFound means the key is absent from the engine.
	ErrNotFound = errors.New("embeddb: key not found")
	// ErrVarDataEvicted means the fixed record exists but its variable blob
	// was overwritten by var-region wrap. It is a non-fatal status
	// alongside a successful fixed-record fetch, per §7.
	ErrVarDataEvicted = errors.New("embeddb: variable data evicted by region wrap")
	// ErrIoFailure means the underlying storage device returned short or
	// errored.
	ErrIoFailure = errors.New("embeddb: storage io failure")
	// ErrInvalidConfig means the configured geometry is impossible: too few
	// buffers, a region smaller than the minimum, keySize > 8, and so on.
	ErrInvalidConfig = errors.New("embeddb: invalid configuration")
	// ErrSplineOverflow means the spline's knot capacity is exhausted.
	ErrSplineOverflow = errors.New("embeddb: spline knot capacity exhausted")
	// ErrOrderViolation means the caller inserted a key below the current
	// maximum, per the REDESIGN FLAGS decision to reject descending-key
	// inserts rather than silently corrupt the spline.
	ErrOrderViolation = errors.New("embeddb: insert key is not monotonically increasing")
)

// Status codes, per §7: "every entry point returns a signed status code (0
// on success, positive for soft conditions like VarDataEvicted, negative
// for failures)".
const (
	StatusOK             = 0
	StatusVarDataEvicted = 1

	StatusNotFound        = -1
	StatusIoFailure       = -2
	StatusInvalidConfig   = -3
	StatusSplineOverflow  = -4
	StatusOrderViolation  = -5
	statusUnknownFailure  = -128
)

// wrapIo wraps a lower-level error as ErrIoFailure so errors.Cause still
// recovers the sentinel while the original message is kept for diagnostics.
func wrapIo(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(ErrIoFailure, err.Error())
}

// StatusOf maps an error returned by an engine entry point to its status
// code, for callers that want the C-ABI-flavored signed-status convention
// instead of idiomatic Go error handling.
func StatusOf(err error) int {
	if err == nil {
		return StatusOK
	}
	switch errors.Cause(err) {
	case ErrVarDataEvicted:
		return StatusVarDataEvicted
	case ErrNotFound:
		return StatusNotFound
	case ErrIoFailure:
		return StatusIoFailure
	case ErrInvalidConfig:
		return StatusInvalidConfig
	case ErrSplineOverflow:
		return StatusSplineOverflow
	case ErrOrderViolation:
		return StatusOrderViolation
	default:
		return statusUnknownFailure
	}
}
