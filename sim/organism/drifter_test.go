package organism

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/world"
)

func TestDrifterTravels(t *testing.T) {
	_, idx := newTestIndex(t, world.Config{Max: mgl64.Vec3{20, 10, 10}, PreciseMovement: true, Seed: 3}, world.IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	d := &Drifter{Heading: mgl64.Vec3{1, 0, 0}, Speed: 0.1}
	o := world.NewOrganism(d, mgl64.Vec3{2, 5, 5}, 0.4)
	idx.AddOrganism(o)

	for i := 0; i < 20; i++ {
		idx.Step()
	}
	// Without jitter the heading is stable; 20 unobstructed ticks cover just
	// short of 2 along x.
	if o.Position()[0] <= 3.5 {
		t.Fatalf("drifter at x = %v after 20 ticks, want > 3.5", o.Position()[0])
	}
}

func TestDrifterRerollsHeadingWhenStuck(t *testing.T) {
	_, idx := newTestIndex(t, world.Config{Max: mgl64.Vec3{10, 10, 10}, PreciseMovement: true, Seed: 3}, world.IndexConfig{ChunkSize: 2, LargestOrganismSize: 0.5, Cores: 1})

	d := &Drifter{Heading: mgl64.Vec3{1, 0, 0}, Speed: 0.2}
	o := world.NewOrganism(d, mgl64.Vec3{5, 5, 5}, 0.4)
	idx.AddOrganism(o)
	idx.AddOrganism(world.NewOrganism(&Drifter{Speed: 0}, mgl64.Vec3{5.85, 5, 5}, 0.4))

	idx.Step()
	if d.Heading == (mgl64.Vec3{1, 0, 0}) {
		t.Fatal("drifter kept its heading while grinding against an obstruction")
	}
}

func TestDrifterEncodeDecode(t *testing.T) {
	d := &Drifter{Heading: mgl64.Vec3{0, 1, 0}, Speed: 0.25, Jitter: 0.05}
	b, err := DefaultRegistry.Decode(d.Key(), d.EncodeBehaviour())
	if err != nil {
		t.Fatalf("failed decoding drifter: %v", err)
	}
	decoded, ok := b.(*Drifter)
	if !ok {
		t.Fatalf("decoded behaviour is %T, want *Drifter", b)
	}
	if *decoded != *d {
		t.Fatalf("decoded drifter = %+v, want %+v", decoded, d)
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	if _, err := DefaultRegistry.Decode("continuum:unknown", ""); err == nil {
		t.Fatal("expected decoding an unregistered kind to fail")
	}
}
