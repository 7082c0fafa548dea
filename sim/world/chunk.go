package world

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Chunk is one cubic cell of the uniform grid of a ChunkedIndex. It holds the
// organisms whose position lies inside it and a fixed list of the up to 26
// chunks surrounding it.
type Chunk struct {
	centre mgl64.Vec3
	size   float64

	organisms []*Organism
	// scratch is reused every tick to snapshot the organism slice, so that
	// insertions and removals during stepping cannot affect the iteration.
	scratch []*Organism

	neighbours []*Chunk
}

// Centre returns the centre position of the chunk.
func (c *Chunk) Centre() mgl64.Vec3 {
	return c.centre
}

// Size returns the edge length of the chunk.
func (c *Chunk) Size() float64 {
	return c.size
}

// Neighbours returns the chunks surrounding this chunk. Interior chunks have
// 26 neighbours, chunks on the boundary of the grid fewer.
func (c *Chunk) Neighbours() []*Chunk {
	return c.neighbours
}

// insert appends an organism to the chunk. The caller is responsible for not
// inserting the same organism twice.
func (c *Chunk) insert(o *Organism) {
	c.organisms = append(c.organisms, o)
}

// remove removes the first organism in the chunk identical to the one passed
// and reports if one was found.
func (c *Chunk) remove(o *Organism) bool {
	for i, other := range c.organisms {
		if other == o {
			c.organisms = append(c.organisms[:i], c.organisms[i+1:]...)
			return true
		}
	}
	return false
}

// step ticks every organism present in the chunk at the start of the call.
// Organisms inserted during the call, such as newborns, are not stepped until
// the next tick. The organisms themselves additionally guard against being
// stepped twice when they move to a chunk stepped later in the same tick.
func (c *Chunk) step(tick int64, r *rand.Rand) {
	snap := append(c.scratch[:0], c.organisms...)
	c.scratch = snap
	for _, o := range snap {
		o.step(tick, r)
	}
}
