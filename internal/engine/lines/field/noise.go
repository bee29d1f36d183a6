package field

import "math"

// noise3 is smooth value noise on an integer lattice, in [-1, 1].
func noise3(x, y, z float64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := fade(x-x0), fade(y-y0), fade(z-z0)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	c := func(dx, dy, dz int64) float64 { return lattice(ix+dx, iy+dy, iz+dz) }

	x00 := lerp(c(0, 0, 0), c(1, 0, 0), fx)
	x10 := lerp(c(0, 1, 0), c(1, 1, 0), fx)
	x01 := lerp(c(0, 0, 1), c(1, 0, 1), fx)
	x11 := lerp(c(0, 1, 1), c(1, 1, 1), fx)
	return lerp(lerp(x00, x10, fy), lerp(x01, x11, fy), fz)
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lattice(x, y, z int64) float64 {
	h := uint64(x)*0x9E3779B185EBCA87 ^ uint64(y)*0xC2B2AE3D27D4EB4F ^ uint64(z)*0x165667B19E3779F9
	h ^= h >> 33
	h *= 0xFF51AFD7ED558CCD
	h ^= h >> 33
	return float64(h>>11)/float64(1<<52) - 1
}
