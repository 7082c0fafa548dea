package organism

import (
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/world"
)

// newTestIndex creates a world and index for behaviour tests.
func newTestIndex(t *testing.T, conf world.Config, ic world.IndexConfig) (*world.World, *world.ChunkedIndex) {
	t.Helper()
	if conf.Log == nil {
		conf.Log = slog.New(slog.DiscardHandler)
	}
	w := conf.New()
	idx, err := ic.New(w)
	if err != nil {
		t.Fatalf("failed creating index: %v", err)
	}
	return w, idx
}

func TestCellStaysInBounds(t *testing.T) {
	w, idx := newTestIndex(t, world.Config{Max: mgl64.Vec3{10, 10, 10}, Seed: 3}, world.IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	cell := &Cell{StepSize: 0.01}
	idx.AddOrganism(world.NewOrganism(cell, mgl64.Vec3{5, 5, 5}, 0.2))
	for i := 0; i < 100; i++ {
		idx.Step()
	}

	if n := idx.OrganismCount(); n != 1 {
		t.Fatalf("OrganismCount() = %v, want 1", n)
	}
	for o := range idx.Organisms() {
		if !w.InBounds(o.Position()) {
			t.Fatalf("cell wandered out of bounds to %v", o.Position())
		}
	}
}

func TestCellDivides(t *testing.T) {
	_, idx := newTestIndex(t, world.Config{Max: mgl64.Vec3{10, 10, 10}, Seed: 3}, world.IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	idx.AddOrganism(world.NewOrganism(&Cell{StepSize: 0.01, DivideChance: 1}, mgl64.Vec3{5, 5, 5}, 0.5))
	for i := 0; i < 50; i++ {
		idx.Step()
	}
	if n := idx.OrganismCount(); n <= 1 {
		t.Fatalf("OrganismCount() = %v after 50 ticks of guaranteed division, want > 1", n)
	}
}

func TestCellEncodeDecode(t *testing.T) {
	c := &Cell{StepSize: 0.05, DivideChance: 0.125}
	b, err := DefaultRegistry.Decode(c.Key(), c.EncodeBehaviour())
	if err != nil {
		t.Fatalf("failed decoding cell: %v", err)
	}
	decoded, ok := b.(*Cell)
	if !ok {
		t.Fatalf("decoded behaviour is %T, want *Cell", b)
	}
	if *decoded != *c {
		t.Fatalf("decoded cell = %+v, want %+v", decoded, c)
	}
}

func TestCellSpawnCopies(t *testing.T) {
	c := &Cell{StepSize: 0.05, DivideChance: 0.5}
	child := c.Spawn().(*Cell)
	if child == c {
		t.Fatal("Spawn returned the parent behaviour")
	}
	if *child != *c {
		t.Fatalf("child = %+v, want a copy of %+v", child, c)
	}
}
