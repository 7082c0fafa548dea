package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SpheresOverlap checks if the sphere at p with radius rp intersects the
// sphere at q with radius rq. Touching spheres count as overlapping.
func SpheresOverlap(p, q mgl64.Vec3, rp, rq float64) bool {
	r := rp + rq
	return q.Sub(p).LenSqr() <= r*r
}

// RaySphere intersects the ray origin + t*dir with the sphere at centre with
// the radius passed and returns the distance t along the ray to the first
// intersection. dir must be of unit length. Intersections behind the origin
// or beyond maxDist are rejected. The second return value is false if the ray
// misses the sphere within maxDist.
func RaySphere(origin, dir, centre mgl64.Vec3, radius, maxDist float64) (float64, bool) {
	f := origin.Sub(centre)
	b := 2 * f.Dot(dir)
	c := f.LenSqr() - radius*radius

	d := b*b - 4*c
	if d < 0 {
		return 0, false
	}
	sqrtD := math.Sqrt(d)
	t := (-b - sqrtD) / 2
	if t < 0 {
		t = (-b + sqrtD) / 2
	}
	if t < 0 || t > maxDist {
		return 0, false
	}
	return t, true
}

// RandomUnitVec3 returns a uniformly distributed point on the unit sphere
// from the two uniform samples u, v in [0, 1).
func RandomUnitVec3(u, v float64) mgl64.Vec3 {
	lat := math.Acos(2*u-1) - math.Pi/2
	lon := 2 * math.Pi * v
	return mgl64.Vec3{
		math.Cos(lat) * math.Cos(lon),
		math.Sin(lat),
		math.Cos(lat) * math.Sin(lon),
	}
}
