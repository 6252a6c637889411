package safe

import (
	"math"
)

// Uint64ToInt64 safely converts an uint64 value to int64, clamping to math.MaxInt64 if overflow
// would occur.
// Returns the converted value and a boolean indicating whether clamping occurred.
func Uint64ToInt64(val uint64) (int64, bool) {
	if val > math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(val), false
}

// Uint64ToUint32 safely converts an uint64 value to uint32, clamping to math.MaxUint32 if overflow
// would occur.
// Returns the converted value and a boolean indicating whether clamping occurred.
func Uint64ToUint32(val uint64) (uint32, bool) {
	if val > math.MaxUint32 {
		return math.MaxUint32, true
	}
	return uint32(val), false
}
