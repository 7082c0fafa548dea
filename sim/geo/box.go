package geo

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned box in world space. Box is always 'correct': The
// minimum corner is component-wise smaller than or equal to the maximum
// corner.
type Box struct {
	min, max mgl64.Vec3
}

// NewBox creates a Box spanning the two corners passed. The corners may be
// passed in any order.
func NewBox(a, b mgl64.Vec3) Box {
	return Box{
		min: mgl64.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		max: mgl64.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// Sphere returns the Box that bounds a sphere with the centre and radius
// passed, [centre - r, centre + r] on every axis.
func Sphere(centre mgl64.Vec3, r float64) Box {
	d := mgl64.Vec3{r, r, r}
	return Box{min: centre.Sub(d), max: centre.Add(d)}
}

// Min returns the minimum corner of the Box.
func (b Box) Min() mgl64.Vec3 {
	return b.min
}

// Max returns the maximum corner of the Box.
func (b Box) Max() mgl64.Vec3 {
	return b.max
}

// Centre returns the centre of the Box.
func (b Box) Centre() mgl64.Vec3 {
	return b.min.Add(b.max).Mul(0.5)
}

// Vec3Within checks if a Vec3 lies within the Box, including points exactly
// on its faces.
func (b Box) Vec3Within(p mgl64.Vec3) bool {
	return p[0] >= b.min[0] && p[0] <= b.max[0] &&
		p[1] >= b.min[1] && p[1] <= b.max[1] &&
		p[2] >= b.min[2] && p[2] <= b.max[2]
}
