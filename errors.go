package variant

import "errors"

// Configuration errors. They are returned only by constructors, never by
// per-identifier calls.
var (
	ErrInvalidWeights          = errors.New("variant: invalid weights")
	ErrInvalidTableSize        = errors.New("variant: invalid table size")
	ErrInvalidParameter        = errors.New("variant: invalid parameter")
	ErrUnsupportedAlgorithm    = errors.New("variant: unsupported algorithm")
	ErrUnsupportedDistribution = errors.New("variant: unsupported distribution")
)

// ErrOutOfRange is returned when table index lies outside of the table.
// It signals an internal inconsistency between distribution and bucketing.
var ErrOutOfRange = errors.New("variant: index out of range")

// IsConfigError reports whether err is caused by invalid configuration, as
// opposed to an internal fault.
func IsConfigError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidWeights),
		errors.Is(err, ErrInvalidTableSize),
		errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrUnsupportedAlgorithm),
		errors.Is(err, ErrUnsupportedDistribution):
		return true
	}
	return false
}
