package organism

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/world"
)

const cellKey = "continuum:cell"

// Cell is an organism kind that wanders randomly and divides with a fixed
// chance each tick.
type Cell struct {
	// StepSize is the maximum displacement per axis per tick.
	StepSize float64
	// DivideChance is the chance per tick that the cell attempts to divide,
	// in [0, 1].
	DivideChance float64
}

// Key ...
func (c *Cell) Key() string {
	return cellKey
}

// Tick makes the cell take one brownian step, each axis displaced uniformly
// within [-StepSize, StepSize], and attempt a division with DivideChance.
func (c *Cell) Tick(o *world.Organism, r *rand.Rand) {
	o.Move(mgl64.Vec3{
		(r.Float64()*2 - 1) * c.StepSize,
		(r.Float64()*2 - 1) * c.StepSize,
		(r.Float64()*2 - 1) * c.StepSize,
	})
	if c.DivideChance > 0 && r.Float64() < c.DivideChance {
		o.Reproduce(r)
	}
}

// Spawn returns the behaviour of a daughter cell, inheriting the step size
// and division chance of the parent.
func (c *Cell) Spawn() world.Behaviour {
	daughter := *c
	return &daughter
}

// EncodeBehaviour ...
func (c *Cell) EncodeBehaviour() string {
	return fmt.Sprintf("%g %g", c.StepSize, c.DivideChance)
}

// decodeCell parses the string produced by Cell.EncodeBehaviour.
func decodeCell(data string) (world.Behaviour, error) {
	c := &Cell{}
	if _, err := fmt.Sscanf(data, "%g %g", &c.StepSize, &c.DivideChance); err != nil {
		return nil, err
	}
	return c, nil
}
