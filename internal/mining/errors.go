package mining

import "errors"

var (
	// ErrInvalidInput indicates malformed transaction data or an out-of-range
	// parameter. It is returned before any mining work starts.
	ErrInvalidInput = errors.New("mining: invalid input")
	// ErrResourceExhausted indicates a soft limit on the number of itemsets or
	// rules was exceeded, usually because thresholds are too low.
	ErrResourceExhausted = errors.New("mining: resource limit exceeded")
)

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsResourceExhausted reports whether err is or wraps ErrResourceExhausted.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
