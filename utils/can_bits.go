package utils

// rawLimits returns the smallest and largest raw integer a signal of bitLen
// bits can carry.
func rawLimits(bitLen int, signed bool) (int64, int64) {
	if signed {
		return -int64(1) << (bitLen - 1), int64(1)<<(bitLen-1) - 1
	}
	if bitLen >= 64 {
		return 0, int64(^uint64(0) >> 1)
	}
	return 0, int64(1)<<bitLen - 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRaw(raw int64, bitLen int, signed bool) int64 {
	lo, hi := rawLimits(bitLen, signed)
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}
