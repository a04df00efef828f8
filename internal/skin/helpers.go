package skin

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// toByte maps [0,1] to [0,255] with rounding.
func toByte(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// clampByte maps an arbitrary byte-space value to [0,255] with rounding.
func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// signed recenters [0,1) noise to [-1,1).
func signed(v float64) float64 {
	return v*2 - 1
}
