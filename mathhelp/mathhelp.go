package mathhelp

import (
	"math"

	"golang.org/x/exp/constraints"
)

func BetweenInc[T constraints.Ordered](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

func Pow2(n uint) uint {
	return 1 << n
}

func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func AllFinite(fs ...float64) bool {
	for _, f := range fs {
		if !IsFinite(f) {
			return false
		}
	}
	return true
}
