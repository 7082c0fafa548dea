package world

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/geo"
)

var (
	// ErrChunkTooSmall is returned when an index is created with chunks too
	// small to guarantee that a sphere only ever overlaps its own chunk and
	// the chunks directly surrounding it.
	ErrChunkTooSmall = errors.New("chunk size must be at least twice the largest organism size")
	// ErrUnsupported is returned by queries that the chunked index does not
	// implement.
	ErrUnsupported = errors.New("operation not supported by the chunked index")
)

// colourCount is the number of parity colour groups chunks are divided over.
// Two chunks of the same colour differ by at least two chunks on some axis
// and are therefore never neighbours, which is what makes it safe to step all
// chunks of one colour concurrently.
const colourCount = 8

// IndexConfig holds the options for creating a ChunkedIndex.
type IndexConfig struct {
	// ChunkSize is the edge length of every cubic chunk of the grid.
	ChunkSize float64
	// LargestOrganismSize is the radius of the largest organism that will
	// ever be added to the index. It must be at most half the chunk size.
	LargestOrganismSize float64
	// Cores is the number of workers that chunk batches are spread over. If
	// zero, one less than the number of logical cores is used.
	Cores int
}

// ChunkedIndex is a spatial index dividing a World into a uniform grid of
// cubic chunks. It steps all organisms it holds in discrete ticks, with
// chunks of the same parity colour stepping in parallel, and answers the
// local collision, ray and nearest-neighbour queries organisms need while
// moving and dividing.
type ChunkedIndex struct {
	w   *World
	log *slog.Logger

	min        mgl64.Vec3
	chunkSize  float64
	nx, ny, nz int
	chunks     []*Chunk

	batches [colourCount][][]*Chunk
	workers *scheduler

	shuffle *rand.Rand

	stepping atomic.Bool
	tick     atomic.Int64

	count  atomic.Int64
	census *Census
}

// New creates a ChunkedIndex covering the bounds of the World passed. It
// returns an error if the chunk size cannot uphold the locality guarantee
// that all queries rely on, and logs warnings for configurations that are
// valid but wasteful.
func (conf IndexConfig) New(w *World) (*ChunkedIndex, error) {
	if conf.ChunkSize/2 < conf.LargestOrganismSize {
		return nil, fmt.Errorf("create index: %w: chunk size %v, largest organism size %v", ErrChunkTooSmall, conf.ChunkSize, conf.LargestOrganismSize)
	}
	log := w.Log()
	if conf.ChunkSize > 10*conf.LargestOrganismSize {
		log.Warn("Chunks are large compared to the organisms they hold, queries will scan sparse buckets.", "chunk_size", conf.ChunkSize, "largest_organism_size", conf.LargestOrganismSize)
	}
	cores := conf.Cores
	if cores <= 0 {
		cores = runtime.NumCPU() - 1
		if cores < 1 {
			cores = 1
		}
	} else if cores > runtime.NumCPU() {
		log.Warn("More cores configured than the host has logical cores.", "cores", cores, "available", runtime.NumCPU())
	}
	if conf.Cores == 1 {
		log.Warn("Running a parallel index on a single core adds scheduling overhead without benefit.")
	}

	wmin, wmax := w.Bounds()
	i := &ChunkedIndex{
		w:         w,
		log:       log,
		min:       wmin,
		chunkSize: conf.ChunkSize,
		nx:        int(math.Ceil((wmax[0] - wmin[0]) / conf.ChunkSize)),
		ny:        int(math.Ceil((wmax[1] - wmin[1]) / conf.ChunkSize)),
		nz:        int(math.Ceil((wmax[2] - wmin[2]) / conf.ChunkSize)),
		census:    NewCensus(),
	}
	i.chunks = make([]*Chunk, i.nx*i.ny*i.nz)
	for x := 0; x < i.nx; x++ {
		for y := 0; y < i.ny; y++ {
			for z := 0; z < i.nz; z++ {
				centre := wmin.Add(mgl64.Vec3{
					(float64(x) + 0.5) * conf.ChunkSize,
					(float64(y) + 0.5) * conf.ChunkSize,
					(float64(z) + 0.5) * conf.ChunkSize,
				})
				i.chunks[i.flat(x, y, z)] = &Chunk{centre: centre, size: conf.ChunkSize}
			}
		}
	}
	i.linkNeighbours()
	i.buildBatches(cores)
	i.workers = newScheduler(cores, w.Seed())
	i.shuffle = workerRand(w.Seed(), shuffleWorkerID)
	return i, nil
}

// flat converts grid coordinates to an index into the flattened chunk slice.
func (i *ChunkedIndex) flat(x, y, z int) int {
	return (x*i.ny+y)*i.nz + z
}

// linkNeighbours computes the fixed neighbour list of every chunk: all chunks
// at most one step away on every axis, excluding the chunk itself and
// coordinates outside the grid.
func (i *ChunkedIndex) linkNeighbours() {
	for x := 0; x < i.nx; x++ {
		for y := 0; y < i.ny; y++ {
			for z := 0; z < i.nz; z++ {
				c := i.chunks[i.flat(x, y, z)]
				for dx := -1; dx <= 1; dx++ {
					for dy := -1; dy <= 1; dy++ {
						for dz := -1; dz <= 1; dz++ {
							if dx == 0 && dy == 0 && dz == 0 {
								continue
							}
							nx, ny, nz := x+dx, y+dy, z+dz
							if nx < 0 || nx >= i.nx || ny < 0 || ny >= i.ny || nz < 0 || nz >= i.nz {
								continue
							}
							c.neighbours = append(c.neighbours, i.chunks[i.flat(nx, ny, nz)])
						}
					}
				}
			}
		}
	}
}

// buildBatches groups the chunks into the eight parity colour groups and
// partitions each group into at most cores batches of near-equal size. The
// batches are fixed for the lifetime of the index.
func (i *ChunkedIndex) buildBatches(cores int) {
	var groups [colourCount][]*Chunk
	for x := 0; x < i.nx; x++ {
		for y := 0; y < i.ny; y++ {
			for z := 0; z < i.nz; z++ {
				colour := x%2 + y%2*2 + z%2*4
				groups[colour] = append(groups[colour], i.chunks[i.flat(x, y, z)])
			}
		}
	}
	for colour, group := range groups {
		n := len(group)
		if n == 0 {
			continue
		}
		c := min(cores, n)
		size, rem := n/c, n%c
		for b, off := 0, 0; b < c; b++ {
			l := size
			if b < rem {
				l++
			}
			i.batches[colour] = append(i.batches[colour], group[off:off+l])
			off += l
		}
	}
}

// chunkAt returns the chunk that holds the position passed. Positions outside
// the grid are clamped to the nearest chunk, so that positions exactly on the
// maximum world bound resolve to the last chunk of each axis.
func (i *ChunkedIndex) chunkAt(p mgl64.Vec3) *Chunk {
	x := clampChunk(int(math.Floor((p[0]-i.min[0])/i.chunkSize)), i.nx)
	y := clampChunk(int(math.Floor((p[1]-i.min[1])/i.chunkSize)), i.ny)
	z := clampChunk(int(math.Floor((p[2]-i.min[2])/i.chunkSize)), i.nz)
	return i.chunks[i.flat(x, y, z)]
}

func clampChunk(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// rebucket moves an organism between chunks when its position is about to
// change. It is called before the organism's position field is updated, so
// the old chunk is still derivable from the current position.
func (i *ChunkedIndex) rebucket(o *Organism, newPos mgl64.Vec3, _ geo.Box) {
	old, next := i.chunkAt(o.pos), i.chunkAt(newPos)
	if old == next {
		return
	}
	old.remove(o)
	next.insert(o)
}

// AddOrganism inserts an organism into the chunk holding its position. The
// organism is stamped with the current tick, so an organism born while a tick
// is in flight is not stepped until the next tick.
func (i *ChunkedIndex) AddOrganism(o *Organism) {
	o.idx, o.w = i, i.w
	o.lastTicked = i.tick.Load()
	i.chunkAt(o.pos).insert(o)
	i.count.Add(1)
	i.census.add(o.Key())
}

// RemoveOrganism removes an organism from the index and reports if it was
// present.
func (i *ChunkedIndex) RemoveOrganism(o *Organism) bool {
	if !i.chunkAt(o.pos).remove(o) {
		return false
	}
	o.idx = nil
	i.count.Add(-1)
	i.census.remove(o.Key())
	return true
}

// OrganismCount returns the number of organisms currently in the index.
func (i *ChunkedIndex) OrganismCount() int {
	return int(i.count.Load())
}

// Organisms returns an iterator over every organism in the index. It must not
// be used while a tick is in flight.
func (i *ChunkedIndex) Organisms() iter.Seq[*Organism] {
	return func(yield func(*Organism) bool) {
		for _, c := range i.chunks {
			for _, o := range c.organisms {
				if !yield(o) {
					return
				}
			}
		}
	}
}

// Census returns the live population counts per organism kind.
func (i *ChunkedIndex) Census() *Census {
	return i.census
}

// OrganismsWithinRange would return all organisms within the range passed of
// an organism. The chunked index cannot answer it within its locality
// guarantee and always returns ErrUnsupported; use an index built for
// unbounded range queries instead.
func (i *ChunkedIndex) OrganismsWithinRange(*Organism, float64) ([]*Organism, error) {
	return nil, fmt.Errorf("organisms within range: %w", ErrUnsupported)
}

// Step runs one tick: for each of the eight colours in order, all batches of
// the colour are stepped in parallel, and the next colour is not started
// until every batch of the previous one finished. If a previous tick is still
// in flight, the call returns immediately and the tick is dropped.
func (i *ChunkedIndex) Step() {
	if !i.stepping.CompareAndSwap(false, true) {
		return
	}
	defer i.stepping.Store(false)

	tick := i.tick.Add(1)
	for colour := range i.batches {
		if i.w.RandomiseTickOrder() {
			batches := i.batches[colour]
			i.shuffle.Shuffle(len(batches), func(a, b int) {
				batches[a], batches[b] = batches[b], batches[a]
			})
		}
		i.workers.run(i.batches[colour], tick)
	}
}

// Tick returns the number of ticks started so far.
func (i *ChunkedIndex) Tick() int64 {
	return i.tick.Load()
}

// Dimensions returns the number of chunks along each axis of the grid.
func (i *ChunkedIndex) Dimensions() (nx, ny, nz int) {
	return i.nx, i.ny, i.nz
}
