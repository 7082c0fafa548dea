package world

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/geo"
)

// Config holds the options of a World. Config is copied on creation of a
// World, so changes after calling Config.New have no effect.
type Config struct {
	// Log is the logger used for warnings of the World and any index created
	// for it. If nil, Log is set to slog.Default().
	Log *slog.Logger
	// Min and Max are the corners of the axis-aligned volume that organisms
	// are confined to. Both corners are inclusive.
	Min, Max mgl64.Vec3
	// PreciseMovement, if set, makes Organism.Move resolve movement with a
	// ray cast so that organisms slide up to the first obstruction instead of
	// rejecting obstructed movement entirely.
	PreciseMovement bool
	// RandomiseTickOrder, if set, shuffles the batch execution order of every
	// colour group before each tick. The colour order itself is fixed.
	RandomiseTickOrder bool
	// Seed seeds all random sources derived for the World. Runs with the same
	// Seed are only reproducible when stepping on a single core with
	// RandomiseTickOrder disabled.
	Seed int64
}

// World is the bounded volume that a population of organisms lives in. It
// carries the movement policy and the master seed that all per-worker random
// sources are derived from.
type World struct {
	conf Config
}

// New creates a World using the Config.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &World{conf: conf}
}

// InBounds checks if the position passed lies within the bounds of the World.
// Positions exactly on the boundary are in bounds.
func (w *World) InBounds(p mgl64.Vec3) bool {
	return geo.NewBox(w.conf.Min, w.conf.Max).Vec3Within(p)
}

// Bounds returns the minimum and maximum corner of the World.
func (w *World) Bounds() (mgl64.Vec3, mgl64.Vec3) {
	return w.conf.Min, w.conf.Max
}

// PreciseMovement reports if organisms resolve movement with a ray cast
// rather than an all-or-nothing overlap test.
func (w *World) PreciseMovement() bool {
	return w.conf.PreciseMovement
}

// RandomiseTickOrder reports if batch execution order is shuffled each tick.
func (w *World) RandomiseTickOrder() bool {
	return w.conf.RandomiseTickOrder
}

// Seed returns the master seed of the World.
func (w *World) Seed() int64 {
	return w.conf.Seed
}

// Log returns the logger of the World.
func (w *World) Log() *slog.Logger {
	return w.conf.Log
}
