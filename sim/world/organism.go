package world

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/phlipsje/continuum/sim/geo"
)

const (
	// moveEpsilon is subtracted from the distance moved in precise movement
	// so that an organism always stops short of the obstruction it ran into.
	moveEpsilon = 0.001
	// childOffsetFactor scales the radius of a dividing organism to the
	// distance between the parent centre and each offered child position.
	childOffsetFactor = 1.02
	// reproduceAttempts is the number of random directions tried before a
	// division is given up on.
	reproduceAttempts = 5
)

// Behaviour implements the behaviour of a kind of organism. The Behaviour of
// an organism is ticked once per simulation tick and drives the organism
// through Organism.Move and Organism.Reproduce.
type Behaviour interface {
	// Key returns the identifier of the organism kind, used for persistence
	// and the population census.
	Key() string
	// Tick advances the behaviour by one tick. The random source passed is
	// owned by the worker currently stepping the organism and must not be
	// retained.
	Tick(o *Organism, r *rand.Rand)
	// Spawn returns the Behaviour of a child produced by division.
	Spawn() Behaviour
	// EncodeBehaviour encodes the state of the Behaviour to a string. The
	// counterpart decoder is registered per Key by the caller that persists
	// organisms.
	EncodeBehaviour() string
}

// Organism is a spherical actor in a World. Its radius is fixed for its
// lifetime; its position changes through Move, Reproduce or SetPosition, all
// of which keep the spatial index it is stored in up to date.
type Organism struct {
	id   uuid.UUID
	pos  mgl64.Vec3
	size float64
	mbb  geo.Box

	b Behaviour

	w   *World
	idx *ChunkedIndex

	// lastTicked is the tick number this organism was last stepped at. It
	// stops organisms from being stepped twice in one tick when they are
	// re-bucketed into a chunk that has not been stepped yet, and stops
	// newborns from being stepped in the tick they were created in.
	lastTicked int64
}

// NewOrganism creates an Organism with the Behaviour, position and radius
// passed. The organism does not take part in a simulation until it is added
// to an index with ChunkedIndex.AddOrganism.
func NewOrganism(b Behaviour, pos mgl64.Vec3, size float64) *Organism {
	return &Organism{id: uuid.New(), pos: pos, size: size, mbb: geo.Sphere(pos, size), b: b}
}

// ID returns the unique identifier of the organism.
func (o *Organism) ID() uuid.UUID {
	return o.id
}

// Key returns the kind identifier of the organism's Behaviour.
func (o *Organism) Key() string {
	return o.b.Key()
}

// Behaviour returns the Behaviour driving the organism.
func (o *Organism) Behaviour() Behaviour {
	return o.b
}

// Position returns the current centre of the organism.
func (o *Organism) Position() mgl64.Vec3 {
	return o.pos
}

// Size returns the radius of the organism.
func (o *Organism) Size() float64 {
	return o.size
}

// MBB returns the minimum bounding box of the organism, derived from its
// position and radius.
func (o *Organism) MBB() geo.Box {
	return o.mbb
}

// World returns the World the organism lives in, or nil if it has not been
// added to an index yet.
func (o *Organism) World() *World {
	return o.w
}

// SetPosition moves the organism to the position passed without any collision
// checking. The index holding the organism is notified before the new
// position becomes observable, so that the organism is re-bucketed into the
// right chunk first.
func (o *Organism) SetPosition(p mgl64.Vec3) {
	box := geo.Sphere(p, o.size)
	if o.idx != nil {
		o.idx.rebucket(o, p, box)
	}
	o.pos, o.mbb = p, box
}

// Move attempts to displace the organism by the vector passed. With precise
// movement disabled on the World, the move commits only if the target
// position collides with nothing. With precise movement enabled, the organism
// travels along the direction up to the first obstruction, stopping just
// short of contact. A zero vector is a no-op.
func (o *Organism) Move(dir mgl64.Vec3) {
	l := dir.Len()
	if l == 0 || o.idx == nil {
		return
	}
	if !o.w.PreciseMovement() {
		if p := o.pos.Add(dir); !o.idx.Overlaps(o, p) {
			o.SetPosition(p)
		}
		return
	}
	unit := dir.Mul(1 / l)
	_, t := o.idx.FirstHit(o, unit, l)
	if d := t - moveEpsilon; d > 0 {
		o.SetPosition(o.pos.Add(unit.Mul(d)))
	}
}

// Reproduce attempts to divide the organism. Up to five uniformly random
// directions are tried. For each direction, with the child offset r =
// size*1.02, the organism first offers a symmetric split (child at +d*r,
// parent moved to -d*r), then a one-sided child at +2d*r, then one at -2d*r,
// committing the first offer that is free of collisions. The child is created
// through Behaviour.Spawn and added to the index. Nil is returned if every
// attempt failed.
func (o *Organism) Reproduce(r *rand.Rand) *Organism {
	if o.idx == nil {
		return nil
	}
	for i := 0; i < reproduceAttempts; i++ {
		d := geo.RandomUnitVec3(r.Float64(), r.Float64())
		offset := d.Mul(o.size * childOffsetFactor)

		if plus, minus := o.pos.Add(offset), o.pos.Sub(offset); !o.idx.Overlaps(o, plus) && !o.idx.Overlaps(o, minus) {
			child := o.spawnChild(plus)
			o.SetPosition(minus)
			return child
		}
		if p := o.pos.Add(offset.Mul(2)); !o.idx.Overlaps(o, p) {
			return o.spawnChild(p)
		}
		if p := o.pos.Sub(offset.Mul(2)); !o.idx.Overlaps(o, p) {
			return o.spawnChild(p)
		}
	}
	return nil
}

// spawnChild creates a child organism at the position passed and inserts it
// into the parent's index.
func (o *Organism) spawnChild(pos mgl64.Vec3) *Organism {
	child := NewOrganism(o.b.Spawn(), pos, o.size)
	o.idx.AddOrganism(child)
	return child
}

// step ticks the organism's Behaviour once, unless it was already stepped in
// the tick passed.
func (o *Organism) step(tick int64, r *rand.Rand) {
	if o.lastTicked >= tick {
		return
	}
	o.lastTicked = tick
	o.b.Tick(o, r)
}
