package world

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/geo"
)

func TestMoveBlocked(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.5)
	b := NewOrganism(inert{}, mgl64.Vec3{5.9, 5, 5}, 0.5)
	idx.AddOrganism(a)
	idx.AddOrganism(b)

	a.Move(mgl64.Vec3{0.2, 0, 0})
	if a.Position() != (mgl64.Vec3{5, 5, 5}) {
		t.Fatalf("blocked move changed position to %v", a.Position())
	}
}

func TestMoveFree(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.5)
	idx.AddOrganism(a)

	a.Move(mgl64.Vec3{0.2, 0, 0})
	if a.Position() != (mgl64.Vec3{5.2, 5, 5}) {
		t.Fatalf("free move resulted in position %v, want {5.2 5 5}", a.Position())
	}
	if a.MBB() != geo.Sphere(a.Position(), 0.5) {
		t.Fatal("bounding box not updated with the position")
	}
}

func TestMoveOutOfBoundsBlocked(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{9.9, 5, 5}, 0.5)
	idx.AddOrganism(a)

	a.Move(mgl64.Vec3{0.5, 0, 0})
	if a.Position() != (mgl64.Vec3{9.9, 5, 5}) {
		t.Fatalf("move out of bounds changed position to %v", a.Position())
	}
}

func TestMovePrecise(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}, PreciseMovement: true}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.25)
	b := NewOrganism(inert{}, mgl64.Vec3{5.9, 5, 5}, 0.25)
	idx.AddOrganism(a)
	idx.AddOrganism(b)

	// The surfaces meet at a travel distance of 0.4; the organism must stop
	// the ray and move margins short of that.
	a.Move(mgl64.Vec3{0.6, 0, 0})
	want := 5 + 0.4 - rayEpsilon - moveEpsilon
	if math.Abs(a.Position()[0]-want) > 1e-12 {
		t.Fatalf("precise move stopped at x = %v, want %v", a.Position()[0], want)
	}
	if idx.Overlaps(a, a.Position()) {
		t.Fatal("organism overlaps after a precise move")
	}
}

func TestMovePreciseUnobstructed(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}, PreciseMovement: true}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.25)
	idx.AddOrganism(a)

	a.Move(mgl64.Vec3{0.6, 0, 0})
	if want := 5 + 0.6 - moveEpsilon; math.Abs(a.Position()[0]-want) > 1e-12 {
		t.Fatalf("unobstructed precise move stopped at x = %v, want %v", a.Position()[0], want)
	}
}

func TestMoveZero(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.5)
	idx.AddOrganism(a)
	a.Move(mgl64.Vec3{})
	if a.Position() != (mgl64.Vec3{5, 5, 5}) {
		t.Fatalf("zero move changed position to %v", a.Position())
	}
}

func TestReproduceSafety(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.5)
	idx.AddOrganism(a)

	r := rand.New(rand.NewPCG(1, 2))
	child := a.Reproduce(r)
	if child == nil {
		t.Fatal("division with all space free returned no child")
	}
	if n := idx.OrganismCount(); n != 2 {
		t.Fatalf("OrganismCount() = %v after division, want 2", n)
	}
	if dist := child.Position().Sub(a.Position()).Len(); dist < a.Size()+child.Size() {
		t.Fatalf("parent and child overlap after division: distance %v", dist)
	}
}

func TestReproduceFailsWhenCrowded(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	a := NewOrganism(inert{}, mgl64.Vec3{5, 5, 5}, 0.5)
	idx.AddOrganism(a)

	// Pack a lattice around the parent dense enough that every point a child
	// could be offered at lies within collision range of some lattice
	// organism, regardless of the random directions drawn.
	for x := -3; x <= 3; x++ {
		for y := -3; y <= 3; y++ {
			for z := -3; z <= 3; z++ {
				pos := mgl64.Vec3{5 + float64(x)*0.9, 5 + float64(y)*0.9, 5 + float64(z)*0.9}
				idx.AddOrganism(NewOrganism(inert{}, pos, 0.5))
			}
		}
	}
	before := idx.OrganismCount()

	r := rand.New(rand.NewPCG(1, 2))
	if child := a.Reproduce(r); child != nil {
		t.Fatalf("division in a packed region returned a child at %v", child.Position())
	}
	if n := idx.OrganismCount(); n != before {
		t.Fatalf("OrganismCount() = %v after failed division, want %v", n, before)
	}
}

func TestReproductionFillsWorld(t *testing.T) {
	_, idx := newTestIndex(t, Config{Max: mgl64.Vec3{10, 10, 10}, Seed: 7}, IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	idx.AddOrganism(NewOrganism(&divider{}, mgl64.Vec3{5, 5, 5}, 0.5))
	for i := 0; i < 50; i++ {
		idx.Step()
	}

	if n := idx.OrganismCount(); n <= 1 {
		t.Fatalf("OrganismCount() = %v after 50 dividing ticks, want > 1", n)
	}
	var all []*Organism
	for o := range idx.Organisms() {
		all = append(all, o)
		if !idx.w.InBounds(o.Position()) {
			t.Fatalf("organism out of bounds at %v", o.Position())
		}
	}
	for i, a := range all {
		for _, b := range all[i+1:] {
			if dist := a.Position().Sub(b.Position()).Len(); dist < a.Size()+b.Size()-1e-9 {
				t.Fatalf("organisms overlap at distance %v", dist)
			}
		}
	}
}
