package world

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/geo"
)

// rayEpsilon is subtracted from the distance returned by FirstHit so that a
// mover travelling the returned distance stops short of contact.
const rayEpsilon = 0.01

// ring iterates over all organisms in the chunk holding the position passed
// and in all chunks surrounding it. Provided chunks are at least twice as
// large as the largest organism, this covers every organism a sphere at the
// position could interact with.
func (i *ChunkedIndex) ring(p mgl64.Vec3) iter.Seq[*Organism] {
	c := i.chunkAt(p)
	return func(yield func(*Organism) bool) {
		for _, o := range c.organisms {
			if !yield(o) {
				return
			}
		}
		for _, n := range c.neighbours {
			for _, o := range n.organisms {
				if !yield(o) {
					return
				}
			}
		}
	}
}

// Overlaps checks if an organism of the size of the one passed, placed at
// pos, would collide with anything: it returns true if pos is out of the
// world bounds or if any organism other than the one passed intersects the
// probe sphere. The surrounding chunks searched are those of the organism's
// current position, which is valid for the small per-tick displacements
// organisms make.
func (i *ChunkedIndex) Overlaps(o *Organism, pos mgl64.Vec3) bool {
	if !i.w.InBounds(pos) {
		return true
	}
	for other := range i.ring(o.pos) {
		if other == o {
			continue
		}
		if geo.SpheresOverlap(pos, other.pos, o.size, other.size) {
			return true
		}
	}
	return false
}

// FirstHit casts a ray from the organism's position along the unit direction
// passed and returns the distance to the first obstruction within length,
// reduced by a small margin so that travelling the returned distance leaves
// the organism short of contact. If the end of the ray lies out of the world
// bounds, (true, 0) is returned. If nothing obstructs the ray, (false,
// length) is returned.
func (i *ChunkedIndex) FirstHit(o *Organism, dir mgl64.Vec3, length float64) (bool, float64) {
	if !i.w.InBounds(o.pos.Add(dir.Mul(length))) {
		return true, 0
	}
	nearest, hit := math.MaxFloat64, false
	for other := range i.ring(o.pos) {
		if other == o {
			continue
		}
		if t, ok := geo.RaySphere(o.pos, dir, other.pos, o.size+other.size, length); ok && t < nearest {
			nearest, hit = t, true
		}
	}
	if !hit {
		return false, length
	}
	return true, max(0, nearest-rayEpsilon)
}

// NearestNeighbour returns the organism closest to the one passed, searching
// only the organism's own chunk and the chunks surrounding it. Nil is
// returned if those chunks hold no other organism, even if organisms exist
// further away; the query is deliberately bounded.
func (i *ChunkedIndex) NearestNeighbour(o *Organism) *Organism {
	var (
		nearest *Organism
		best    = math.MaxFloat64
	)
	for other := range i.ring(o.pos) {
		if other == o {
			continue
		}
		if d := other.pos.Sub(o.pos).LenSqr(); d < best {
			nearest, best = other, d
		}
	}
	return nearest
}
