package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/tactics"
	"github.com/vajra-sim/vajra/pkg/core"
)

const tick = 1.0 / 60

func testConfig() config.SimulationConfig {
	return config.SimulationConfig{
		TickRate:           60,
		SpeedMultiplier:    1,
		LogTail:            20,
		VengeanceDuration:  10,
		WorldWidth:         1200,
		WorldHeight:        800,
		FriendlySpeed:      50,
		EnemySpeed:         50,
		FiringRange:        250,
		WeaponCooldown:     1,
		WeaponDamage:       34,
		AILevel:            "basic",
		CommunicationRange: 400,
		ThreateningRange:   500,
		SensorRange:        800,
		Guardians:          3,
		CommChance:         0.05,
	}
}

type fakeRecorder struct {
	records []core.ResultRecord
	err     error
}

func (r *fakeRecorder) RecordResult(rec *core.ResultRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *rec)
	return nil
}

func newTestEngine(cfg config.SimulationConfig, opts ...Option) *Engine {
	n := 0
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDSource(func() string {
			n++
			return fmt.Sprintf("ev-%d", n)
		}),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	return New(cfg, append(base, opts...)...)
}

func unitAt(id string, kind core.Kind, x, y float64) core.UnitSpec {
	return core.UnitSpec{ID: id, Kind: kind, Position: core.Position{X: x, Y: y}}
}

func assetSpec(id string, x, y float64) core.AssetSpec {
	return core.AssetSpec{ID: id, Position: core.Position{X: x, Y: y}}
}

func findUnit(s core.Snapshot, id string) (core.Unit, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return core.Unit{}, false
}

func countEvents(s core.Snapshot, kind core.VisualEventKind) int {
	n := 0
	for _, ev := range s.VisualEvents {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func hasLog(s core.Snapshot, substr string) bool {
	for _, l := range s.EventLog {
		if strings.Contains(l.Message, substr) {
			return true
		}
	}
	return false
}

// duelScenario puts one friendly in range of one ground attacker whose own
// target (a distant asset) is out of range.
func duelScenario() *core.Scenario {
	return &core.Scenario{
		ID:       "duel",
		Name:     "Duel",
		Friendly: []core.UnitSpec{unitAt("F1", core.KindInterceptor, 100, 100)},
		Enemy:    []core.UnitSpec{unitAt("E-GA1", core.KindGroundAttack, 150, 100)},
		Assets:   []core.AssetSpec{assetSpec("A1", 1100, 750)},
	}
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(testConfig())
	assert.Equal(t, core.StatusIdle, e.Status())
	assert.Equal(t, tactics.TierBasic, e.AILevel())
	assert.Equal(t, 1.0, e.SpeedMultiplier())

	cfg := testConfig()
	cfg.AILevel = "nonsense"
	cfg.SpeedMultiplier = 0
	e = newTestEngine(cfg)
	assert.Equal(t, tactics.TierNormal, e.AILevel(), "unknown configured tier falls back to normal")
	assert.Equal(t, MinSpeedMultiplier, e.SpeedMultiplier())
}

func TestStart_EmptyScenarioStaysIdle(t *testing.T) {
	e := newTestEngine(testConfig())

	assert.ErrorIs(t, e.Start(nil), ErrEmptyScenario)
	assert.ErrorIs(t, e.Start(&core.Scenario{ID: "nothing", Assets: []core.AssetSpec{assetSpec("A1", 0, 0)}}), ErrEmptyScenario)
	assert.Equal(t, core.StatusIdle, e.Status())

	snap := e.Update()
	assert.Equal(t, core.StatusIdle, snap.SimulationState.Status)
	assert.Empty(t, snap.Units)
}

func TestLifecycleTransitions(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(testConfig(), WithRecorder(rec))

	assert.ErrorIs(t, e.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, e.Resume(), ErrInvalidTransition)

	require.NoError(t, e.Start(duelScenario()))
	assert.Equal(t, core.StatusRunning, e.Status())
	assert.ErrorIs(t, e.Resume(), ErrInvalidTransition)

	e.Update()
	elapsed := e.Elapsed()
	assert.InDelta(t, tick, elapsed, 1e-12)

	require.NoError(t, e.Pause())
	snap := e.Update()
	assert.Equal(t, core.StatusPaused, snap.SimulationState.Status)
	assert.Equal(t, elapsed, e.Elapsed(), "paused engines do not advance")

	require.NoError(t, e.Resume())
	e.Update()
	assert.InDelta(t, 2*tick, e.Elapsed(), 1e-12)

	e.Reset()
	assert.Equal(t, core.StatusIdle, e.Status())
	assert.Equal(t, 0.0, e.Elapsed())
	require.Len(t, rec.records, 1)
	assert.Equal(t, "duel", rec.records[0].ScenarioID)

	e.Reset()
	assert.Len(t, rec.records, 1, "resetting an idle engine records nothing")
}

func TestStart_WhileRunningRecordsPreviousRun(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(testConfig(), WithRecorder(rec))

	require.NoError(t, e.Start(duelScenario()))
	e.Update()
	require.NoError(t, e.Start(duelScenario()))

	assert.Equal(t, core.StatusRunning, e.Status())
	assert.Equal(t, 0.0, e.Elapsed())
	assert.Len(t, rec.records, 1)
}

func TestThreeVersusZero(t *testing.T) {
	for _, tier := range []string{"basic", "normal", "advanced", "adaptive"} {
		t.Run(tier, func(t *testing.T) {
			e := newTestEngine(testConfig())
			require.NoError(t, e.SetAILevel(tier))
			require.NoError(t, e.Start(&core.Scenario{
				ID: "3v0",
				Friendly: []core.UnitSpec{
					unitAt("F1", core.KindInterceptor, 300, 700),
					unitAt("F2", core.KindInterceptor, 600, 700),
					unitAt("F3", core.KindInterceptor, 900, 700),
				},
				Assets: []core.AssetSpec{assetSpec("A1", 600, 750)},
			}))

			// Decisions run before the termination check, so the first
			// tick exercises this tier's empty-enemy path.
			snap := e.Update()
			require.Len(t, snap.Units, 3)
			for _, u := range snap.Units {
				assert.Equal(t, core.StatusPatrolling, u.Status, u.ID)
				assert.Empty(t, u.TargetID, u.ID)
			}
			assert.Zero(t, countEvents(snap, core.EventWeaponFire))
			assert.Zero(t, countEvents(snap, core.EventNeutralization))
			assert.Equal(t, 0.0, snap.Metrics.PercentUnattendedHostiles)
			assert.Equal(t, core.StatusFinished, e.Status())

			for i := 0; i < 5; i++ {
				assert.Equal(t, snap.Units, e.Update().Units, "finished runs stay frozen")
			}
		})
	}
}

func TestDamageLatency(t *testing.T) {
	e := newTestEngine(testConfig())
	require.NoError(t, e.Start(duelScenario()))

	first := e.Update()
	assert.Equal(t, 1, countEvents(first, core.EventWeaponFire))
	enemy, ok := findUnit(first, "E-GA1")
	require.True(t, ok)
	assert.Equal(t, core.MaxHealth, enemy.Health, "damage queued this tick must not land this tick")

	second := e.Update()
	enemy, ok = findUnit(second, "E-GA1")
	require.True(t, ok)
	assert.Equal(t, core.MaxHealth-34, enemy.Health)
}

func TestCooldownLaw(t *testing.T) {
	e := newTestEngine(testConfig())
	require.NoError(t, e.Start(duelScenario()))

	seen := map[string]bool{}
	var fireTimes []float64
	for i := 0; i < 120 && e.Status() == core.StatusRunning; i++ {
		snap := e.Update()
		for _, ev := range snap.VisualEvents {
			if ev.Kind == core.EventWeaponFire && ev.Team == core.TeamFriendly && !seen[ev.ID] {
				seen[ev.ID] = true
				fireTimes = append(fireTimes, snap.SimulationState.Time)
			}
		}
	}

	require.GreaterOrEqual(t, len(fireTimes), 2)
	for i := 1; i < len(fireTimes); i++ {
		assert.GreaterOrEqual(t, fireTimes[i]-fireTimes[i-1], 1.0)
	}
}

func TestTerminationIsAbsorbing(t *testing.T) {
	cfg := testConfig()
	cfg.WeaponDamage = 100
	rec := &fakeRecorder{}
	e := newTestEngine(cfg, WithRecorder(rec))
	require.NoError(t, e.Start(duelScenario()))

	e.Update()
	final := e.Update()
	require.Equal(t, core.StatusFinished, final.SimulationState.Status)
	assert.Equal(t, 1, final.Metrics.Neutralizations)
	assert.InDelta(t, 2*tick, final.Metrics.AvgInterceptionTime, 1e-9)
	assert.True(t, hasLog(final, "E-GA1 neutralized!"))
	assert.True(t, hasLog(final, "Simulation finished."))
	require.Len(t, rec.records, 1, "finishing records the run")

	for i := 0; i < 20; i++ {
		snap := e.Update()
		assert.Equal(t, core.StatusFinished, snap.SimulationState.Status)
		assert.Equal(t, final.Units, snap.Units)
		assert.Equal(t, final.SimulationState.Time, snap.SimulationState.Time)
		assert.Equal(t, final.Metrics, snap.Metrics)
	}

	e.Reset()
	assert.Len(t, rec.records, 1, "a finished run is recorded once")
}

func TestUnattendedHostiles(t *testing.T) {
	e := newTestEngine(testConfig())
	require.NoError(t, e.Start(&core.Scenario{
		ID: "unattended",
		Friendly: []core.UnitSpec{
			unitAt("F1", core.KindInterceptor, 100, 100),
			unitAt("F2", core.KindInterceptor, 110, 100),
		},
		Enemy: []core.UnitSpec{
			unitAt("E-AA1", core.KindAirToAir, 100, 500),
			unitAt("E-AA2", core.KindAirToAir, 1100, 100),
			unitAt("E-AA3", core.KindAirToAir, 1100, 700),
			unitAt("E-AA4", core.KindAirToAir, 600, 700),
		},
	}))

	snap := e.Update()
	assert.InDelta(t, 75.0, snap.Metrics.PercentUnattendedHostiles, 1e-9)

	targeted := map[string]bool{}
	enemies := 0
	for _, u := range snap.Units {
		if u.Team == core.TeamFriendly && u.TargetID != "" {
			targeted[u.TargetID] = true
		}
	}
	unattended := 0
	for _, u := range snap.Units {
		if u.Team == core.TeamEnemy {
			enemies++
			if !targeted[u.ID] {
				unattended++
			}
		}
	}
	assert.InDelta(t, 100*float64(unattended)/float64(enemies), snap.Metrics.PercentUnattendedHostiles, 1e-9)
}

func TestAssetDestructionEndsRun(t *testing.T) {
	cfg := testConfig()
	cfg.WeaponDamage = 100
	rec := &fakeRecorder{}
	e := newTestEngine(cfg, WithRecorder(rec))
	require.NoError(t, e.Start(&core.Scenario{
		ID:       "raid",
		Friendly: []core.UnitSpec{unitAt("F1", core.KindInterceptor, 1100, 100)},
		Enemy:    []core.UnitSpec{unitAt("E-GA1", core.KindGroundAttack, 100, 700)},
		Assets:   []core.AssetSpec{assetSpec("A1", 100, 750)},
	}))

	first := e.Update()
	assert.Equal(t, 1, first.Metrics.AssetsSaved)
	assert.Equal(t, 1, first.Metrics.AssetsStanding)
	enemy, _ := findUnit(first, "E-GA1")
	assert.Equal(t, "A1", enemy.TargetID)

	second := e.Update()
	assert.Equal(t, core.StatusFinished, second.SimulationState.Status)
	assert.Equal(t, 1, second.Metrics.AssetsSaved, "assets_saved stays at the loaded count")
	assert.Equal(t, 0, second.Metrics.AssetsStanding)
	assert.Equal(t, 1, e.Result().AssetsSaved)
	require.Len(t, rec.records, 1)
	assert.Equal(t, 1, rec.records[0].AssetsSaved)
	require.Len(t, second.Assets, 1, "destroyed assets stay listed")
	assert.LessOrEqual(t, second.Assets[0].Health, 0)
	assert.True(t, hasLog(second, "A1 destroyed!"))

	var assetEvent bool
	for _, ev := range second.VisualEvents {
		if ev.Kind == core.EventNeutralization && ev.Team == core.TeamAsset {
			assetEvent = true
		}
	}
	assert.True(t, assetEvent)
}

func TestAssetsSavedKeepsLoadedCount(t *testing.T) {
	cfg := testConfig()
	cfg.WeaponDamage = 100
	rec := &fakeRecorder{}
	e := newTestEngine(cfg, WithRecorder(rec))
	require.NoError(t, e.Start(&core.Scenario{
		ID:       "two-assets",
		Friendly: []core.UnitSpec{unitAt("F1", core.KindInterceptor, 1100, 100)},
		Enemy:    []core.UnitSpec{unitAt("E-GA1", core.KindGroundAttack, 100, 700)},
		Assets: []core.AssetSpec{
			assetSpec("A1", 100, 750),
			assetSpec("A2", 1100, 750),
		},
	}))

	e.Update()
	snap := e.Update()
	require.Equal(t, core.StatusRunning, snap.SimulationState.Status, "A2 still stands")
	require.LessOrEqual(t, snap.Assets[0].Health, 0)
	assert.Equal(t, 2, snap.Metrics.AssetsSaved)
	assert.Equal(t, 1, snap.Metrics.AssetsStanding)

	e.Reset()
	require.Len(t, rec.records, 1)
	assert.Equal(t, 2, rec.records[0].AssetsSaved)
}

func TestNoAssetsDoesNotFinishImmediately(t *testing.T) {
	e := newTestEngine(testConfig())
	require.NoError(t, e.Start(&core.Scenario{
		ID:       "open-field",
		Friendly: []core.UnitSpec{unitAt("F1", core.KindInterceptor, 100, 100)},
		Enemy:    []core.UnitSpec{unitAt("E-AA1", core.KindAirToAir, 1100, 700)},
	}))

	for i := 0; i < 3; i++ {
		snap := e.Update()
		assert.Equal(t, core.StatusRunning, snap.SimulationState.Status)
		assert.Zero(t, snap.Metrics.AssetsSaved)
	}
}

func TestMove_RetreatHeadsForSafePoint(t *testing.T) {
	cfg := testConfig()
	cfg.EnemySpeed = 80
	e := newTestEngine(cfg)
	require.NoError(t, e.Start(&core.Scenario{
		ID:       "retreat",
		Friendly: []core.UnitSpec{unitAt("F1", core.KindInterceptor, 600, 100)},
		Enemy:    []core.UnitSpec{unitAt("E-AA1", core.KindAirToAir, 100, 750)},
	}))
	require.Equal(t, core.Position{X: 600, Y: 750}, e.safePoint())

	friendly, enemy := e.friendlies[0], e.enemies[0]
	friendly.Status = core.StatusRetreating
	enemy.Status = core.StatusRetreating
	enemy.TargetID = "F1"

	units, assets := e.index()
	e.move(tick, units, assets)

	assert.InDelta(t, 600, friendly.Position.X, 1e-9)
	assert.InDelta(t, 100+cfg.FriendlySpeed*tick, friendly.Position.Y, 1e-9)
	assert.Equal(t, core.Position{X: 0, Y: cfg.FriendlySpeed}, friendly.Velocity)

	assert.InDelta(t, 100+cfg.EnemySpeed*tick, enemy.Position.X, 1e-9)
	assert.InDelta(t, 750, enemy.Position.Y, 1e-9)
	assert.InDelta(t, cfg.EnemySpeed, enemy.Velocity.X, 1e-9)
	assert.InDelta(t, 0, enemy.Velocity.Y, 1e-9)
}

func vengeanceScenario() *core.Scenario {
	return &core.Scenario{
		ID: "vengeance",
		Friendly: []core.UnitSpec{
			unitAt("F1", core.KindInterceptor, 100, 100),
			unitAt("F2", core.KindInterceptor, 1000, 700),
		},
		Enemy: []core.UnitSpec{
			unitAt("E-AA1", core.KindAirToAir, 120, 100),
			unitAt("E-AA2", core.KindAirToAir, 1000, 100),
		},
	}
}

func TestVengeanceBuff(t *testing.T) {
	cfg := testConfig()
	cfg.WeaponDamage = 100
	cfg.VengeanceDuration = 0.05
	e := newTestEngine(cfg)
	require.NoError(t, e.Start(vengeanceScenario()))

	e.Update()
	snap := e.Update()
	require.Equal(t, core.StatusRunning, snap.SimulationState.Status)
	assert.Equal(t, 1, snap.Metrics.FriendlyLosses)
	assert.True(t, snap.Settings.VengeanceActive)
	assert.True(t, hasLog(snap, "Vengeance protocol activated!"))

	for i := 0; i < 5; i++ {
		snap = e.Update()
	}
	assert.False(t, snap.Settings.VengeanceActive)
	assert.True(t, hasLog(snap, "Vengeance buff worn off."))
}

func TestVengeanceBuff_NotUnderCoordinatedTiers(t *testing.T) {
	cfg := testConfig()
	cfg.WeaponDamage = 100
	cfg.AILevel = "advanced"
	cfg.CommChance = 0
	e := newTestEngine(cfg)
	require.NoError(t, e.Start(vengeanceScenario()))

	e.Update()
	snap := e.Update()
	assert.Equal(t, 1, snap.Metrics.FriendlyLosses)
	assert.False(t, snap.Settings.VengeanceActive)
}

func TestCommunicationFlavour(t *testing.T) {
	cfg := testConfig()
	cfg.CommChance = 1
	cfg.AILevel = "adaptive"
	e := newTestEngine(cfg)
	require.NoError(t, e.Start(&core.Scenario{
		ID: "comms",
		Friendly: []core.UnitSpec{
			unitAt("F1", core.KindInterceptor, 100, 700),
			unitAt("F2", core.KindInterceptor, 200, 700),
		},
		Enemy: []core.UnitSpec{unitAt("E-AA1", core.KindAirToAir, 1100, 100)},
	}))

	snap := e.Update()
	assert.Equal(t, 1, countEvents(snap, core.EventCommLink))
	assert.True(t, hasLog(snap, "shared target data with"))

	require.NoError(t, e.SetAILevel("basic"))
	for i := 0; i < 40; i++ {
		snap = e.Update()
	}
	assert.Zero(t, countEvents(snap, core.EventCommLink), "comm links expire and stop under basic")
}

func TestSetSpeedMultiplier(t *testing.T) {
	e := newTestEngine(testConfig())

	assert.Equal(t, MinSpeedMultiplier, e.SetSpeedMultiplier(0))
	assert.Equal(t, MinSpeedMultiplier, e.SetSpeedMultiplier(-3))
	assert.Equal(t, 2.0, e.SetSpeedMultiplier(2))

	require.NoError(t, e.Start(duelScenario()))
	snap := e.Update()
	assert.InDelta(t, 2*tick, snap.SimulationState.Time, 1e-12)
	assert.Equal(t, 2.0, snap.Settings.SpeedMultiplier)
}

func TestSetAILevel(t *testing.T) {
	e := newTestEngine(testConfig())

	require.NoError(t, e.SetAILevel("Advanced"))
	assert.Equal(t, tactics.TierAdvanced, e.AILevel())

	err := e.SetAILevel("omniscient")
	assert.ErrorIs(t, err, ErrUnknownAILevel)
	assert.Equal(t, tactics.TierAdvanced, e.AILevel())
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	e := newTestEngine(testConfig(), WithRecorder(rec))
	require.NoError(t, e.Start(duelScenario()))
	e.Update()

	e.Reset()
	assert.Equal(t, core.StatusIdle, e.Status())
	require.NoError(t, e.Start(duelScenario()))
	assert.Equal(t, core.StatusRunning, e.Status())
}

func TestVisualEventsDecayWhilePaused(t *testing.T) {
	e := newTestEngine(testConfig())
	require.NoError(t, e.Start(duelScenario()))

	snap := e.Update()
	require.NotEmpty(t, snap.VisualEvents)
	require.NoError(t, e.Pause())

	for i := 0; i < 20; i++ {
		snap = e.Update()
	}
	assert.Empty(t, snap.VisualEvents, "weapon fire lasts a quarter second")
	for _, ev := range snap.VisualEvents {
		assert.Greater(t, ev.TTL, 0.0)
	}
}

func TestSnapshotAnalysisAndLogTail(t *testing.T) {
	cfg := testConfig()
	cfg.LogTail = 1
	e := newTestEngine(cfg)
	require.NoError(t, e.Start(duelScenario()))

	snap := e.Update()
	require.Len(t, snap.EventLog, 1)
	assert.Equal(t, "Simulation started: Duel", snap.EventLog[0].Message)

	require.Len(t, snap.Analysis.CoordinationTargets, 1)
	ct := snap.Analysis.CoordinationTargets[0]
	assert.Equal(t, "F1", ct.SourceID)
	assert.Equal(t, "E-GA1", ct.TargetID)
	assert.Equal(t, []core.StatusCount{{Status: core.StatusEngaging, Count: 1}}, snap.Analysis.SwarmState)
}

func TestResultRecord(t *testing.T) {
	rec := &fakeRecorder{}
	e := newTestEngine(testConfig(), WithRecorder(rec))
	require.NoError(t, e.Start(duelScenario()))
	for i := 0; i < 60; i++ {
		e.Update()
	}
	e.Reset()

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), r.Timestamp)
	assert.Equal(t, "duel", r.ScenarioID)
	assert.InDelta(t, 1.0, r.SimTimeSec, 1e-9)
	assert.Equal(t, 1, r.AssetsSaved)
	assert.Equal(t, "basic", r.AILevel)
}
