package organism

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/geo"
	"github.com/phlipsje/continuum/sim/world"
)

const drifterKey = "continuum:drifter"

// Drifter is an organism kind that travels with a persistent heading,
// nudged by a small random jitter each tick. It does not divide. Drifters
// bounce off obstructions naturally under precise movement by re-rolling
// their heading whenever they could not cover most of their intended step.
type Drifter struct {
	// Heading is the current unit travel direction.
	Heading mgl64.Vec3
	// Speed is the distance covered per tick when unobstructed.
	Speed float64
	// Jitter scales the random nudge applied to the heading each tick.
	Jitter float64
}

// Key ...
func (d *Drifter) Key() string {
	return drifterKey
}

// Tick nudges the heading and moves the drifter along it. If the drifter
// barely advanced, its heading is re-rolled so it does not grind against
// whatever is in its way.
func (d *Drifter) Tick(o *world.Organism, r *rand.Rand) {
	if d.Jitter > 0 {
		nudge := geo.RandomUnitVec3(r.Float64(), r.Float64()).Mul(d.Jitter)
		if h := d.Heading.Add(nudge); h.Len() > 0 {
			d.Heading = h.Normalize()
		}
	}
	before := o.Position()
	o.Move(d.Heading.Mul(d.Speed))
	if moved := o.Position().Sub(before).Len(); moved < d.Speed/2 {
		d.Heading = geo.RandomUnitVec3(r.Float64(), r.Float64())
	}
}

// Spawn returns a copy of the behaviour; drifters created through division
// share their parent's parameters.
func (d *Drifter) Spawn() world.Behaviour {
	child := *d
	return &child
}

// EncodeBehaviour ...
func (d *Drifter) EncodeBehaviour() string {
	return fmt.Sprintf("%g %g %g %g %g", d.Heading[0], d.Heading[1], d.Heading[2], d.Speed, d.Jitter)
}

// decodeDrifter parses the string produced by Drifter.EncodeBehaviour.
func decodeDrifter(data string) (world.Behaviour, error) {
	d := &Drifter{}
	if _, err := fmt.Sscanf(data, "%g %g %g %g %g", &d.Heading[0], &d.Heading[1], &d.Heading[2], &d.Speed, &d.Jitter); err != nil {
		return nil, err
	}
	return d, nil
}
