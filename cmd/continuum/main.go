package main

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/phlipsje/continuum/sim"
	"github.com/phlipsje/continuum/sim/geo"
	"github.com/phlipsje/continuum/sim/observer"
	"github.com/phlipsje/continuum/sim/organism"
	"github.com/phlipsje/continuum/sim/simdb"
	"github.com/phlipsje/continuum/sim/world"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	uc, err := sim.ReadConfig("config.toml")
	if err != nil {
		log.Error("Failed reading config.", "err", err)
		os.Exit(1)
	}
	conf := uc.Config(log)

	var obs *observer.Observer
	if addr := uc.Observer.Address; addr != "" {
		obs = observer.New(log)
		conf.Observer = obs
		go func() {
			log.Info("Observer listening.", "addr", addr)
			if err := http.ListenAndServe(addr, obs); err != nil {
				log.Error("Observer server stopped.", "err", err)
			}
		}()
	}

	s, err := conf.New()
	if err != nil {
		log.Error("Failed creating simulation.", "err", err)
		os.Exit(1)
	}

	var db *simdb.DB
	if path := uc.Database.Path; path != "" {
		if db, err = simdb.Open(path); err != nil {
			log.Error("Failed opening population database.", "err", err)
			os.Exit(1)
		}
		n, err := db.LoadPopulation(organism.DefaultRegistry, s.Index())
		if err != nil {
			log.Error("Failed loading population.", "err", err)
			os.Exit(1)
		}
		if n > 0 {
			log.Info("Loaded stored population.", "organisms", n)
		}
	}
	if s.Index().OrganismCount() == 0 {
		seedPopulation(s, uc)
		log.Info("Seeded initial population.", "organisms", s.Index().OrganismCount())
	}

	s.Start()
	log.Info("Simulation running.", "tick_interval", conf.TickInterval)

	done := make(chan struct{})
	s.CloseOnProgramEnd(func() {
		close(done)
	})
	<-done

	if db != nil {
		if err := db.SavePopulation(s.Index()); err != nil {
			log.Error("Failed saving population.", "err", err)
		} else {
			log.Info("Saved population.", "organisms", s.Index().OrganismCount())
		}
		if err := db.Close(); err != nil {
			log.Error("Failed closing population database.", "err", err)
		}
	}
	if obs != nil {
		obs.Close()
	}
}

// seedPopulation fills the simulation with the initial population configured
// in the user config.
func seedPopulation(s *sim.Simulation, uc sim.UserConfig) {
	r := rand.New(rand.NewPCG(uint64(uc.World.Seed), 0x9e3779b97f4a7c15))
	p := uc.Population
	s.Seed(p.Cells, p.CellSize, r, func() world.Behaviour {
		return &organism.Cell{StepSize: p.CellStepSize, DivideChance: p.CellDivideChance}
	})
	s.Seed(p.Drifters, p.DrifterSize, r, func() world.Behaviour {
		return &organism.Drifter{
			Heading: geo.RandomUnitVec3(r.Float64(), r.Float64()),
			Speed:   p.DrifterSpeed,
			Jitter:  0.05,
		}
	})
}
