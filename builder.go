package intersection

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/anggasct/intersection/store"
)

// EngineBuilder provides the main entry point for building engines
type EngineBuilder interface {
	Name(name string) EngineBuilder
	Config(config Config) EngineBuilder
	Update(update ConfigUpdate) EngineBuilder
	Density(density Density) EngineBuilder
	SpeedFactor(factor float64) EngineBuilder

	Clock(clock Clock) EngineBuilder
	Logger(logger *slog.Logger) EngineBuilder
	Store(st store.Store) EngineBuilder
	Rand(rng *rand.Rand) EngineBuilder
	Seed(seed int64) EngineBuilder
	LogCapacity(capacity int) EngineBuilder
	Observer(observer Observer) EngineBuilder

	Build() (*Engine, error)
}

type engineBuilder struct {
	name        string
	config      Config
	density     Density
	speed       float64
	clock       Clock
	logger      *slog.Logger
	store       store.Store
	rng         *rand.Rand
	logCapacity int
	observers   []Observer
}

// NewBuilder creates a builder holding the defaults: the default
// configuration, medium density, speed 1 and the wall clock
func NewBuilder() EngineBuilder {
	return &engineBuilder{
		config:      DefaultConfig(),
		density:     DensityMedium,
		speed:       1,
		logCapacity: DefaultLogCapacity,
	}
}

func (b *engineBuilder) Name(name string) EngineBuilder {
	b.name = name
	return b
}

func (b *engineBuilder) Config(config Config) EngineBuilder {
	b.config = config
	return b
}

func (b *engineBuilder) Update(update ConfigUpdate) EngineBuilder {
	b.config = b.config.Merge(update)
	return b
}

func (b *engineBuilder) Density(density Density) EngineBuilder {
	b.density = density
	return b
}

func (b *engineBuilder) SpeedFactor(factor float64) EngineBuilder {
	b.speed = factor
	return b
}

func (b *engineBuilder) Clock(clock Clock) EngineBuilder {
	b.clock = clock
	return b
}

func (b *engineBuilder) Logger(logger *slog.Logger) EngineBuilder {
	b.logger = logger
	return b
}

func (b *engineBuilder) Store(st store.Store) EngineBuilder {
	b.store = st
	return b
}

func (b *engineBuilder) Rand(rng *rand.Rand) EngineBuilder {
	b.rng = rng
	return b
}

func (b *engineBuilder) Seed(seed int64) EngineBuilder {
	b.rng = rand.New(rand.NewSource(seed))
	return b
}

func (b *engineBuilder) LogCapacity(capacity int) EngineBuilder {
	b.logCapacity = capacity
	return b
}

func (b *engineBuilder) Observer(observer Observer) EngineBuilder {
	if observer != nil {
		b.observers = append(b.observers, observer)
	}
	return b
}

// Build validates the settings, restores persisted state and returns a
// paused engine in the first phase
func (b *engineBuilder) Build() (*Engine, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if !b.density.Valid() {
		return nil, NewConfigurationError("density", fmt.Sprintf("unknown density %d", int(b.density)))
	}
	if err := validateSpeed(b.speed); err != nil {
		return nil, err
	}
	if b.logCapacity <= 0 {
		return nil, NewConfigurationError("log_capacity", "must be positive")
	}

	name := b.name
	if name == "" {
		name = "intersection-" + uuid.NewString()
	}
	clock := b.clock
	if clock == nil {
		clock = RealClock()
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := b.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Engine{
		name:         name,
		clock:        clock,
		scheduler:    NewScheduler(clock),
		observers:    NewObserverManager(),
		logger:       logger.With("engine", name),
		store:        b.store,
		rng:          rng,
		config:       b.config,
		density:      b.density,
		speed:        b.speed,
		initialSpeed: b.speed,
		phase:        NSGreenEWRed,
		emergency:    EmergencyStandby,
		cycle:        1,
		paused:       true,
		log:          NewEventLog(b.logCapacity),
	}
	for _, observer := range b.observers {
		e.observers.AddObserver(observer)
	}

	e.restore()
	e.logger.Debug("engine built", "config", e.config, "density", e.density.String(), "speed", e.speed)
	return e, nil
}
