package engine

import (
	"fmt"
	"math"

	"github.com/vajra-sim/vajra/internal/combat"
	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/internal/tactics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Update advances the world by one tick when running and returns the
// current snapshot in every state.
func (e *Engine) Update() core.Snapshot {
	dt := e.effectiveDelta()
	if e.status == core.StatusRunning {
		e.step(dt)
	}
	return e.snapshot(dt)
}

func (e *Engine) effectiveDelta() float64 {
	return e.cfg.TickInterval() * e.speed
}

func (e *Engine) step(dt float64) {
	e.elapsed += dt
	e.ticks++

	e.tickVengeance(dt)
	e.communicate()
	e.applyDamage()

	units, assets := e.index()
	e.decide()
	e.metrics.PercentUnattendedHostiles = e.unattendedPercent()
	e.move(dt, units, assets)
	e.fire(units, assets)

	if e.terminated() {
		e.status = core.StatusFinished
		e.logger.Info("Simulation finished",
			"scenario", e.scenarioID,
			"sim_time", e.elapsed,
			"neutralizations", e.metrics.Neutralizations,
			"friendly_losses", e.metrics.FriendlyLosses,
		)
		e.logEvent("Simulation finished.")
		e.record()
	}
}

func (e *Engine) tickVengeance(dt float64) {
	if !e.vengeanceActive {
		return
	}
	e.vengeanceTimer -= dt
	if e.vengeanceTimer <= 0 {
		e.vengeanceActive = false
		e.vengeanceTimer = 0
		e.logEvent("Vengeance buff worn off.")
	}
}

// communicate occasionally links two friendlies in range. It only produces
// a log line and a visual event.
func (e *Engine) communicate() {
	if !e.tier.Coordinated() || len(e.friendlies) == 0 {
		return
	}
	if e.rng.Float64() >= e.cfg.CommChance {
		return
	}

	source := e.friendlies[e.rng.Intn(len(e.friendlies))]
	var nearby []*core.Unit
	for _, f := range e.friendlies {
		if f.ID != source.ID && physics.Distance(source.Position, f.Position) <= e.cfg.CommunicationRange {
			nearby = append(nearby, f)
		}
	}
	if len(nearby) == 0 {
		return
	}
	target := nearby[e.rng.Intn(len(nearby))]

	e.logEvent(fmt.Sprintf("%s shared target data with %s", source.ID, target.ID))
	e.emit(core.EventCommLink, source.Position, &target.Position, core.TeamFriendly, core.CommLinkTTL)
}

func (e *Engine) applyDamage() {
	if !e.combat.HasPending() {
		return
	}

	out := e.combat.Apply(e.allUnits(), e.assets)
	for _, c := range out.Casualties {
		e.emit(core.EventNeutralization, c.Position, nil, c.Team, core.NeutralizationTTL)
		switch c.Team {
		case core.TeamAsset:
			e.logEvent(c.ID + " destroyed!")
		case core.TeamFriendly:
			e.logEvent(c.ID + " neutralized!")
			if !e.vengeanceActive && !e.tier.Coordinated() {
				e.vengeanceActive = true
				e.vengeanceTimer = e.cfg.VengeanceDuration
				e.logEvent("Vengeance protocol activated!")
			}
		default:
			e.logEvent(c.ID + " neutralized!")
			e.interceptTimes = append(e.interceptTimes, e.elapsed)
		}
	}

	e.metrics.FriendlyLosses += out.FriendlyLosses
	e.metrics.Neutralizations += out.Neutralizations
	e.metrics.AssetsStanding -= out.AssetsLost

	e.friendlies = combat.RemoveDestroyed(e.friendlies)
	e.enemies = combat.RemoveDestroyed(e.enemies)
}

// index maps live unit and standing asset ids for target resolution.
func (e *Engine) index() (map[string]*core.Unit, map[string]*core.Asset) {
	units := make(map[string]*core.Unit, len(e.friendlies)+len(e.enemies))
	for _, u := range e.friendlies {
		units[u.ID] = u
	}
	for _, u := range e.enemies {
		units[u.ID] = u
	}
	assets := make(map[string]*core.Asset, len(e.assets))
	for _, a := range e.assets {
		if a.Alive() {
			assets[a.ID] = a
		}
	}
	return units, assets
}

func (e *Engine) standingAssets() []*core.Asset {
	standing := make([]*core.Asset, 0, len(e.assets))
	for _, a := range e.assets {
		if a.Alive() {
			standing = append(standing, a)
		}
	}
	return standing
}

func (e *Engine) decide() {
	w := tactics.World{
		Friendlies: e.friendlies,
		Enemies:    e.enemies,
		Assets:     e.standingAssets(),
	}
	params := tactics.Params{
		FriendlySpeed:    e.cfg.FriendlySpeed,
		ThreateningRange: e.cfg.ThreateningRange,
		Guardians:        e.cfg.Guardians,
	}

	merge(e.friendlies, tactics.Friendly(e.tier, w, params))
	merge(e.enemies, tactics.Enemy(w))
}

func merge(units []*core.Unit, d tactics.Decisions) {
	for _, u := range units {
		if dec, ok := d[u.ID]; ok {
			u.Status = dec.Status
			u.TargetID = dec.TargetID
		}
	}
}

func (e *Engine) unattendedPercent() float64 {
	if len(e.enemies) == 0 {
		return 0
	}
	targeted := make(map[string]struct{}, len(e.friendlies))
	for _, f := range e.friendlies {
		if f.TargetID != "" {
			targeted[f.TargetID] = struct{}{}
		}
	}
	unattended := 0
	for _, en := range e.enemies {
		if _, ok := targeted[en.ID]; !ok {
			unattended++
		}
	}
	return float64(unattended) / float64(len(e.enemies)) * 100
}

// resolve returns the position and velocity of a target id. Assets resolve
// with zero velocity.
func resolve(id string, units map[string]*core.Unit, assets map[string]*core.Asset) (core.Position, core.Position, bool) {
	if id == "" {
		return core.Position{}, core.Position{}, false
	}
	if u, ok := units[id]; ok {
		return u.Position, u.Velocity, true
	}
	if a, ok := assets[id]; ok {
		return a.Position, core.Position{}, true
	}
	return core.Position{}, core.Position{}, false
}

func (e *Engine) safePoint() core.Position {
	return core.Position{X: e.cfg.WorldWidth / 2, Y: e.cfg.WorldHeight - 50}
}

func (e *Engine) move(dt float64, units map[string]*core.Unit, assets map[string]*core.Asset) {
	for _, u := range e.allUnits() {
		speed := e.cfg.EnemySpeed
		if u.Team == core.TeamFriendly {
			speed = e.cfg.FriendlySpeed
		}

		if u.Status == core.StatusRetreating {
			u.Position, u.Velocity = physics.MoveTowards(u.Position, e.safePoint(), speed, dt)
			continue
		}

		if u.Status.Armed() {
			if pos, vel, ok := resolve(u.TargetID, units, assets); ok {
				aim := physics.InterceptPoint(u.Position, pos, vel, speed)
				u.Position, u.Velocity = physics.MoveTowards(u.Position, aim, speed, dt)
				continue
			}
		}
		u.Velocity = core.Position{}
	}
}

func (e *Engine) fire(units map[string]*core.Unit, assets map[string]*core.Asset) {
	lookup := func(id string) (core.Position, bool) {
		pos, _, ok := resolve(id, units, assets)
		return pos, ok
	}
	for _, s := range e.combat.Fire(e.elapsed, e.allUnits(), lookup) {
		to := s.To
		e.emit(core.EventWeaponFire, s.From, &to, s.Team, core.WeaponFireTTL)
	}
}

func (e *Engine) terminated() bool {
	if len(e.enemies) == 0 || len(e.friendlies) == 0 {
		return true
	}
	// Unlike a plain "all assets down" check, an asset-less scenario does
	// not finish on its first tick.
	if len(e.assets) == 0 {
		return false
	}
	for _, a := range e.assets {
		if a.Alive() {
			return false
		}
	}
	return true
}

func (e *Engine) allUnits() []*core.Unit {
	all := make([]*core.Unit, 0, len(e.friendlies)+len(e.enemies))
	all = append(all, e.friendlies...)
	return append(all, e.enemies...)
}

func (e *Engine) emit(kind core.VisualEventKind, from core.Position, to *core.Position, team core.Team, ttl float64) {
	e.events = append(e.events, core.VisualEvent{
		ID:             e.newID(),
		Kind:           kind,
		Position:       from,
		TargetPosition: to,
		Team:           team,
		TTL:            ttl,
	})
}

func (e *Engine) avgInterceptTime() float64 {
	if len(e.interceptTimes) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range e.interceptTimes {
		sum += t
	}
	return sum / float64(len(e.interceptTimes))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
