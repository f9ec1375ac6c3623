// Package engine owns the mutable world of one simulation and advances it
// one fixed tick per Update call. An Engine is not safe for concurrent use;
// callers serialize commands and updates.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/vajra-sim/vajra/internal/combat"
	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/tactics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// MinSpeedMultiplier is the floor applied to every speed multiplier write.
const MinSpeedMultiplier = 0.1

// logCapacity bounds the retained event log; snapshots only carry the tail.
const logCapacity = 512

var (
	ErrEmptyScenario     = errors.New("scenario has no units")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownAILevel    = errors.New("unknown ai level")
)

// Recorder receives a result record when a run ends or is reset.
type Recorder interface {
	RecordResult(r *core.ResultRecord) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used by stochastic flavour events.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithRecorder sets the persistence collaborator.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the process logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDSource replaces the visual event id generator.
func WithIDSource(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// WithClock replaces the wall clock used to timestamp result records.
func WithClock(f func() time.Time) Option {
	return func(e *Engine) { e.now = f }
}

// Stats is a cheap summary for monitoring.
type Stats struct {
	Status     core.SimulationStatus
	ScenarioID string
	Ticks      uint64
	Elapsed    float64
	Friendlies int
	Enemies    int
	Events     int
}

// Engine is the simulation state machine.
type Engine struct {
	cfg      config.SimulationConfig
	tier     tactics.Tier
	speed    float64
	rng      *rand.Rand
	newID    func() string
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
	combat   *combat.Resolver

	status       core.SimulationStatus
	scenarioID   string
	scenarioName string
	recorded     bool
	elapsed      float64
	ticks        uint64

	friendlies []*core.Unit
	enemies    []*core.Unit
	assets     []*core.Asset
	events     []core.VisualEvent
	log        []core.LogEntry

	metrics        core.Metrics
	interceptTimes []float64

	vengeanceActive bool
	vengeanceTimer  float64
}

// New creates an idle engine. The AI tier falls back to normal when the
// configured level is unknown.
func New(cfg config.SimulationConfig, opts ...Option) *Engine {
	tier, _ := tactics.ParseTier(cfg.AILevel)
	e := &Engine{
		cfg:    cfg,
		tier:   tier,
		speed:  clampSpeed(cfg.SpeedMultiplier),
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.Default(),
		combat: combat.NewResolver(combat.Config{
			FiringRange: cfg.FiringRange,
			Cooldown:    cfg.WeaponCooldown,
			Damage:      cfg.WeaponDamage,
		}),
		status: core.StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}
	return e
}

func clampSpeed(v float64) float64 {
	if v < MinSpeedMultiplier {
		return MinSpeedMultiplier
	}
	return v
}

// Status returns the lifecycle state.
func (e *Engine) Status() core.SimulationStatus { return e.status }

// AILevel returns the active friendly tier.
func (e *Engine) AILevel() tactics.Tier { return e.tier }

// SpeedMultiplier returns the active speed multiplier.
func (e *Engine) SpeedMultiplier() float64 { return e.speed }

// Elapsed returns simulation seconds since the scenario started.
func (e *Engine) Elapsed() float64 { return e.elapsed }

// Stats returns a monitoring summary.
func (e *Engine) Stats() Stats {
	return Stats{
		Status:     e.status,
		ScenarioID: e.scenarioID,
		Ticks:      e.ticks,
		Elapsed:    e.elapsed,
		Friendlies: len(e.friendlies),
		Enemies:    len(e.enemies),
		Events:     len(e.events),
	}
}

// SetSpeedMultiplier stores v clamped to MinSpeedMultiplier and returns the
// stored value. It takes effect from the next tick.
func (e *Engine) SetSpeedMultiplier(v float64) float64 {
	e.speed = clampSpeed(v)
	e.logger.Info("Speed multiplier set", "multiplier", e.speed)
	return e.speed
}

// SetAILevel switches the friendly tier. Unknown levels are rejected and
// leave the tier unchanged.
func (e *Engine) SetAILevel(level string) error {
	tier, ok := tactics.ParseTier(level)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAILevel, level)
	}
	e.tier = tier
	e.logger.Info("AI level set", "level", tier)
	return nil
}

// Start loads a scenario and begins running it. Any run in progress is
// reset and recorded first. An empty scenario is rejected and leaves the
// engine untouched.
func (e *Engine) Start(sc *core.Scenario) error {
	if sc.Empty() {
		return ErrEmptyScenario
	}

	e.Reset()

	e.scenarioID = sc.ID
	e.scenarioName = sc.Name
	if e.scenarioName == "" {
		e.scenarioName = sc.ID
	}
	e.friendlies = loadUnits(sc.Friendly, core.TeamFriendly)
	e.enemies = loadUnits(sc.Enemy, core.TeamEnemy)
	e.assets = make([]*core.Asset, 0, len(sc.Assets))
	for _, a := range sc.Assets {
		e.assets = append(e.assets, &core.Asset{ID: a.ID, Position: a.Position, Health: core.MaxHealth})
	}
	e.metrics.AssetsSaved = len(e.assets)
	e.metrics.AssetsStanding = len(e.assets)
	e.status = core.StatusRunning

	e.logger.Info("Simulation started",
		"scenario", e.scenarioID,
		"friendly", len(e.friendlies),
		"enemy", len(e.enemies),
		"assets", len(e.assets),
		"ai_level", e.tier,
	)
	e.logEvent("Simulation started: " + e.scenarioName)
	return nil
}

func loadUnits(specs []core.UnitSpec, team core.Team) []*core.Unit {
	units := make([]*core.Unit, 0, len(specs))
	for _, s := range specs {
		units = append(units, &core.Unit{
			ID:       s.ID,
			Team:     team,
			Kind:     s.Kind,
			Position: s.Position,
			Status:   core.StatusPatrolling,
			Health:   core.MaxHealth,
		})
	}
	return units
}

// Pause suspends a running simulation.
func (e *Engine) Pause() error {
	if e.status != core.StatusRunning {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, e.status)
	}
	e.status = core.StatusPaused
	e.logger.Info("Simulation paused", "scenario", e.scenarioID)
	return nil
}

// Resume continues a paused simulation.
func (e *Engine) Resume() error {
	if e.status != core.StatusPaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, e.status)
	}
	e.status = core.StatusRunning
	e.logger.Info("Simulation resumed", "scenario", e.scenarioID)
	return nil
}

// Reset records the current run, if any, and returns to idle. Valid from
// every state.
func (e *Engine) Reset() {
	if e.status != core.StatusIdle {
		e.record()
		e.logger.Info("Simulation reset", "scenario", e.scenarioID, "from", e.status)
	}

	e.status = core.StatusIdle
	e.scenarioID = ""
	e.scenarioName = ""
	e.recorded = false
	e.elapsed = 0
	e.ticks = 0
	e.friendlies = nil
	e.enemies = nil
	e.assets = nil
	e.events = nil
	e.log = nil
	e.metrics = core.Metrics{}
	e.interceptTimes = nil
	e.vengeanceActive = false
	e.vengeanceTimer = 0
	e.combat.Reset()
}

// record hands the run summary to the recorder once per run. Recorder
// failures are logged and swallowed.
func (e *Engine) record() {
	if e.recorded || e.scenarioID == "" {
		return
	}
	e.recorded = true
	if e.recorder == nil {
		return
	}

	rec := e.Result()
	if err := e.recorder.RecordResult(&rec); err != nil {
		e.logger.Error("Failed to record result", "scenario", e.scenarioID, "error", err)
		return
	}
	e.logger.Debug("Result recorded", "scenario", e.scenarioID)
}

// Result summarises the current run.
func (e *Engine) Result() core.ResultRecord {
	return core.ResultRecord{
		Timestamp:        e.now(),
		ScenarioID:       e.scenarioID,
		SimTimeSec:       round(e.elapsed, 2),
		Neutralizations:  e.metrics.Neutralizations,
		FriendlyLosses:   e.metrics.FriendlyLosses,
		AssetsSaved:      e.metrics.AssetsSaved,
		AvgInterceptTime: round(e.avgInterceptTime(), 2),
		AILevel:          string(e.tier),
		SpeedMultiplier:  e.speed,
	}
}

func (e *Engine) logEvent(msg string) {
	e.log = append(e.log, core.LogEntry{Time: round(e.elapsed, 1), Message: msg})
	if over := len(e.log) - logCapacity; over > 0 {
		e.log = append(e.log[:0], e.log[over:]...)
	}
	e.logger.Debug(msg, "sim_time", e.elapsed, "scenario", e.scenarioID)
}
