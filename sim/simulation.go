// Package sim ties the simulation core together: it builds a world and its
// chunked index from a Config, runs the tick loop and seeds or persists
// populations.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phlipsje/continuum/sim/world"
)

const tpsSampleSize = 20

// Simulation runs a population of organisms inside a chunked index at a fixed
// tick rate.
type Simulation struct {
	conf Config
	w    *world.World
	idx  *world.ChunkedIndex

	closing chan struct{}
	running sync.WaitGroup
	once    sync.Once

	tps atomic.Uint64
}

// New creates a Simulation from the Config. It returns an error if the index
// configuration is invalid.
func (conf Config) New() (*Simulation, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.World.Log == nil {
		conf.World.Log = conf.Log
	}
	if conf.TickInterval == 0 {
		conf.TickInterval = time.Second / 20
	}
	w := conf.World.New()
	idx, err := conf.Index.New(w)
	if err != nil {
		return nil, fmt.Errorf("create simulation: %w", err)
	}
	return &Simulation{conf: conf, w: w, idx: idx, closing: make(chan struct{})}, nil
}

// World returns the World of the simulation.
func (s *Simulation) World() *world.World {
	return s.w
}

// Index returns the chunked index of the simulation.
func (s *Simulation) Index() *world.ChunkedIndex {
	return s.idx
}

// Seed places organisms of the Behaviour returned by the factory passed at
// random collision-free positions in the world, rejection-sampling up to 100
// candidate positions per organism. It returns the number of organisms
// actually placed and is meant to be called before the simulation starts.
func (s *Simulation) Seed(n int, size float64, r *rand.Rand, factory func() world.Behaviour) int {
	wmin, wmax := s.w.Bounds()
	span := wmax.Sub(wmin)
	placed := 0
	for i := 0; i < n; i++ {
		for attempt := 0; attempt < 100; attempt++ {
			pos := mgl64.Vec3{
				wmin[0] + size + r.Float64()*(span[0]-2*size),
				wmin[1] + size + r.Float64()*(span[1]-2*size),
				wmin[2] + size + r.Float64()*(span[2]-2*size),
			}
			o := world.NewOrganism(factory(), pos, size)
			if s.idx.Overlaps(o, pos) {
				continue
			}
			s.idx.AddOrganism(o)
			placed++
			break
		}
	}
	if placed < n {
		s.conf.Log.Warn("Could not place the full population.", "requested", n, "placed", placed)
	}
	return placed
}

// Start starts the tick loop of the simulation in the background. Use Close
// to stop it again.
func (s *Simulation) Start() {
	s.running.Add(1)
	go s.tickLoop()
}

// tickLoop steps the index on every tick of a fixed ticker, samples the tick
// rate over a window of 20 ticks and reports the census and observer
// snapshots as configured.
func (s *Simulation) tickLoop() {
	defer s.running.Done()

	tc := time.NewTicker(s.conf.TickInterval)
	defer tc.Stop()

	var (
		lastTick      = time.Now()
		durationSum   time.Duration
		ticksCount    int
		warned        bool
		nominal       = 1 / s.conf.TickInterval.Seconds()
		warnThreshold = nominal * 0.95
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					tps := 1.0 / avg.Seconds()
					s.tps.Store(math.Float64bits(tps))
					if tps < warnThreshold {
						if !warned {
							s.conf.Log.Warn("TPS dropped below threshold.", "tps", tps)
							warned = true
						}
					} else if warned {
						warned = false
					}
					durationSum, ticksCount = 0, 0
				}
			}

			s.idx.Step()
			if n := s.conf.CensusInterval; n > 0 && s.idx.Tick()%int64(n) == 0 {
				s.conf.Log.Info("Population census.", "tick", s.idx.Tick(), "organisms", s.idx.OrganismCount(), "kinds", s.idx.Census().Counts())
			}
			if s.conf.Observer != nil {
				s.conf.Observer.Broadcast(s.idx)
			}
		case <-s.closing:
			return
		}
	}
}

// TPS returns the current ticks per second of the simulation, averaged over
// the last 20 ticks.
func (s *Simulation) TPS() float64 {
	return math.Float64frombits(s.tps.Load())
}

// Close stops the tick loop and waits for an in-flight tick to finish. It may
// be called multiple times.
func (s *Simulation) Close() error {
	s.once.Do(func() {
		close(s.closing)
	})
	s.running.Wait()
	return nil
}

// CloseOnProgramEnd closes the simulation when the program receives an
// interrupt or termination signal, calling the function passed afterwards.
func (s *Simulation) CloseOnProgramEnd(then func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		_ = s.Close()
		if then != nil {
			then()
		}
	}()
}
