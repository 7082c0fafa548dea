package world

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// shuffleWorkerID is the virtual worker id that the batch shuffle source is
// derived with, chosen outside the range of real worker ids.
const shuffleWorkerID = ^uint64(0)

// scheduler executes the batches of one colour group in parallel and joins
// them before the next colour may start. Every worker slot owns a random
// source derived deterministically from the master seed, so organisms never
// contend on a shared source while stepping.
type scheduler struct {
	rands []*rand.Rand
}

// newScheduler creates a scheduler with the number of worker slots passed,
// deriving one random source per slot from the seed.
func newScheduler(cores int, seed int64) *scheduler {
	s := &scheduler{rands: make([]*rand.Rand, cores)}
	for n := range s.rands {
		s.rands[n] = workerRand(seed, uint64(n))
	}
	return s
}

// workerRand derives the random source of a single worker from the master
// seed and the worker id.
func workerRand(seed int64, worker uint64) *rand.Rand {
	var b [17]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(seed))
	binary.LittleEndian.PutUint64(b[8:16], worker)
	b[16] = 0
	lo := xxhash.Sum64(b[:])
	b[16] = 1
	hi := xxhash.Sum64(b[:])
	return rand.New(rand.NewPCG(lo, hi))
}

// run steps all batches passed concurrently and returns once every batch has
// finished. Batches never outnumber worker slots. A panic in any batch is
// re-raised on the calling goroutine after all batches finished, failing the
// tick as a whole.
func (s *scheduler) run(batches [][]*Chunk, tick int64) {
	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked any
	)
	for n, batch := range batches {
		wg.Add(1)
		go func(batch []*Chunk, r *rand.Rand) {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = v
					}
					panicMu.Unlock()
				}
			}()
			for _, c := range batch {
				c.step(tick, r)
			}
		}(batch, s.rands[n])
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
}
