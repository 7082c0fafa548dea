package sim

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml"
	"github.com/phlipsje/continuum/sim/observer"
	"github.com/phlipsje/continuum/sim/world"
)

// Config contains options for running a simulation. Config is obtained from
// a UserConfig or filled out manually.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// World configures the bounded volume organisms live in.
	World world.Config
	// Index configures the chunked spatial index built over the world.
	Index world.IndexConfig
	// TickInterval is the duration of one tick. If zero, it defaults to a
	// twentieth of a second.
	TickInterval time.Duration
	// CensusInterval is the number of ticks between population log lines. If
	// zero, the population is not logged.
	CensusInterval int
	// Observer, if non-nil, receives a snapshot broadcast after every tick.
	Observer *observer.Observer
}

// UserConfig is the user configuration of a simulation, holding only plain
// serialisable values. UserConfig can be read from and written to a TOML file
// and converted to a Config by calling UserConfig.Config.
type UserConfig struct {
	World struct {
		// Min and Max are the corners of the simulated volume.
		Min, Max [3]float64
		// PreciseMovement resolves movement with ray casts instead of
		// all-or-nothing overlap checks.
		PreciseMovement bool
		// RandomiseTickOrder shuffles batch execution order each tick, at the
		// cost of reproducibility.
		RandomiseTickOrder bool
		// Seed seeds all random sources of the simulation.
		Seed int64
	}
	Index struct {
		// ChunkSize is the edge length of the cubic chunks of the grid. It
		// must be at least twice LargestOrganismSize.
		ChunkSize float64
		// LargestOrganismSize is the radius of the largest organism that will
		// occur in the simulation.
		LargestOrganismSize float64
		// Cores is the number of workers stepping chunks in parallel. 0 uses
		// one less than the number of logical cores.
		Cores int
	}
	Simulation struct {
		// TickRate is the number of ticks per second.
		TickRate int
		// CensusInterval is the number of ticks between population log
		// lines. 0 disables the census log.
		CensusInterval int
	}
	Observer struct {
		// Address is the address the snapshot websocket endpoint listens on.
		// Empty disables the observer.
		Address string
	}
	Database struct {
		// Path is the path of the population database. Empty disables
		// persistence.
		Path string
	}
	Population struct {
		// Cells is the number of wandering, dividing cells seeded initially.
		Cells int
		// CellSize is the radius of seeded cells.
		CellSize float64
		// CellStepSize is the per-axis wander distance of cells per tick.
		CellStepSize float64
		// CellDivideChance is the chance per tick that a cell divides.
		CellDivideChance float64
		// Drifters is the number of drifters seeded initially.
		Drifters int
		// DrifterSize is the radius of seeded drifters.
		DrifterSize float64
		// DrifterSpeed is the distance a drifter covers per tick.
		DrifterSpeed float64
	}
}

// Config converts the UserConfig to a Config usable to run a simulation,
// using the logger passed for the simulation and its world.
func (uc UserConfig) Config(log *slog.Logger) Config {
	if log == nil {
		log = slog.Default()
	}
	conf := Config{
		Log: log,
		World: world.Config{
			Log:                log,
			Min:                mgl64.Vec3(uc.World.Min),
			Max:                mgl64.Vec3(uc.World.Max),
			PreciseMovement:    uc.World.PreciseMovement,
			RandomiseTickOrder: uc.World.RandomiseTickOrder,
			Seed:               uc.World.Seed,
		},
		Index: world.IndexConfig{
			ChunkSize:           uc.Index.ChunkSize,
			LargestOrganismSize: uc.Index.LargestOrganismSize,
			Cores:               uc.Index.Cores,
		},
		CensusInterval: uc.Simulation.CensusInterval,
	}
	if uc.Simulation.TickRate > 0 {
		conf.TickInterval = time.Second / time.Duration(uc.Simulation.TickRate)
	}
	return conf
}

// DefaultConfig returns a UserConfig with the default values filled out: a
// hundred cells wandering a 50x50x50 volume at 20 ticks per second.
func DefaultConfig() UserConfig {
	uc := UserConfig{}
	uc.World.Min = [3]float64{0, 0, 0}
	uc.World.Max = [3]float64{50, 50, 50}
	uc.World.Seed = 1
	uc.Index.ChunkSize = 2
	uc.Index.LargestOrganismSize = 0.5
	uc.Simulation.TickRate = 20
	uc.Simulation.CensusInterval = 100
	uc.Database.Path = "population.db"
	uc.Population.Cells = 100
	uc.Population.CellSize = 0.25
	uc.Population.CellStepSize = 0.05
	uc.Population.CellDivideChance = 0.001
	uc.Population.Drifters = 10
	uc.Population.DrifterSize = 0.4
	uc.Population.DrifterSpeed = 0.1
	return uc
}

// ReadConfig reads a UserConfig from the TOML file at the path passed. If the
// file does not yet exist, it is created holding the default configuration.
func ReadConfig(path string) (UserConfig, error) {
	uc := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		out, err := toml.Marshal(uc)
		if err != nil {
			return uc, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			return uc, fmt.Errorf("create default config: %w", err)
		}
		return uc, nil
	}
	if err != nil {
		return uc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &uc); err != nil {
		return uc, fmt.Errorf("decode config: %w", err)
	}
	return uc, nil
}
