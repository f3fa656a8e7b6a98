// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import (
	"fmt"
)

// Uint64 converts a signed integer to uint64, rejecting negative values.
func Uint64[T ~int | ~int32 | ~int64](v T) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return uint64(v), nil
}

// PositiveUint64 is Uint64 that also rejects zero.
func PositiveUint64[T ~int | ~int32 | ~int64](v T) (uint64, error) {
	if v == 0 {
		return 0, fmt.Errorf("value %d must be positive", v)
	}
	return Uint64(v)
}
