// Package combat tracks weapon cooldowns and queued damage. Damage queued
// by Fire only lands on the next call to Apply.
package combat

import (
	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Config holds weapon parameters shared by every unit.
type Config struct {
	FiringRange float64
	Cooldown    float64
	Damage      int
}

// Lookup resolves a target id to its current position.
type Lookup func(id string) (core.Position, bool)

// Shot is one weapon discharge.
type Shot struct {
	ShooterID string
	TargetID  string
	Team      core.Team
	From      core.Position
	To        core.Position
	Damage    int
}

// Casualty is a unit or asset destroyed by applied damage.
type Casualty struct {
	ID       string
	Team     core.Team
	Position core.Position
}

// Outcome summarises one damage application pass.
type Outcome struct {
	Casualties      []Casualty
	FriendlyLosses  int
	Neutralizations int
	AssetsLost      int
}

// Resolver owns the cooldown table and the pending damage queue.
type Resolver struct {
	cfg      Config
	lastFire map[string]float64
	pending  map[string][]int
	order    []string
}

// NewResolver creates a resolver with empty cooldown and damage tables.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		cfg:      cfg,
		lastFire: make(map[string]float64),
		pending:  make(map[string][]int),
	}
}

// Reset clears cooldowns and pending damage.
func (r *Resolver) Reset() {
	clear(r.lastFire)
	clear(r.pending)
	r.order = r.order[:0]
}

// Ready reports whether the unit's weapon has cooled down at time now.
// A unit that has never fired is always ready.
func (r *Resolver) Ready(unitID string, now float64) bool {
	last, fired := r.lastFire[unitID]
	return !fired || now-last > r.cfg.Cooldown
}

// Fire evaluates every unit's fire condition at simulation time now,
// queues damage for each shot and returns the shots in unit order.
func (r *Resolver) Fire(now float64, units []*core.Unit, resolve Lookup) []Shot {
	var shots []Shot
	for _, u := range units {
		if !u.Status.Armed() || u.TargetID == "" || !r.Ready(u.ID, now) {
			continue
		}
		targetPos, ok := resolve(u.TargetID)
		if !ok || physics.Distance(u.Position, targetPos) > r.cfg.FiringRange {
			continue
		}

		r.queue(u.TargetID, r.cfg.Damage)
		r.lastFire[u.ID] = now
		shots = append(shots, Shot{
			ShooterID: u.ID,
			TargetID:  u.TargetID,
			Team:      u.Team,
			From:      u.Position,
			To:        targetPos,
			Damage:    r.cfg.Damage,
		})
	}
	return shots
}

func (r *Resolver) queue(targetID string, amount int) {
	if _, ok := r.pending[targetID]; !ok {
		r.order = append(r.order, targetID)
	}
	r.pending[targetID] = append(r.pending[targetID], amount)
}

// PendingDamage returns the total damage queued against id.
func (r *Resolver) PendingDamage(id string) int {
	total := 0
	for _, d := range r.pending[id] {
		total += d
	}
	return total
}

// HasPending reports whether any damage is queued.
func (r *Resolver) HasPending() bool {
	return len(r.order) > 0
}

// Apply subtracts all queued damage from the targets that still stand and
// reports those that drop to zero health, in the order they were first
// targeted. Damage against ids that no longer resolve is discarded. The
// queue is always empty afterwards.
func (r *Resolver) Apply(units []*core.Unit, assets []*core.Asset) Outcome {
	var out Outcome
	if !r.HasPending() {
		return out
	}

	unitIdx := make(map[string]*core.Unit, len(units))
	for _, u := range units {
		unitIdx[u.ID] = u
	}
	assetIdx := make(map[string]*core.Asset, len(assets))
	for _, a := range assets {
		assetIdx[a.ID] = a
	}

	for _, id := range r.order {
		total := r.PendingDamage(id)
		if u, ok := unitIdx[id]; ok && u.Alive() {
			u.Health -= total
			if !u.Alive() {
				out.Casualties = append(out.Casualties, Casualty{ID: u.ID, Team: u.Team, Position: u.Position})
				if u.Team == core.TeamFriendly {
					out.FriendlyLosses++
				} else {
					out.Neutralizations++
				}
			}
			continue
		}
		if a, ok := assetIdx[id]; ok && a.Alive() {
			a.Health -= total
			if !a.Alive() {
				out.Casualties = append(out.Casualties, Casualty{ID: a.ID, Team: core.TeamAsset, Position: a.Position})
				out.AssetsLost++
			}
		}
	}

	clear(r.pending)
	r.order = r.order[:0]
	return out
}

// RemoveDestroyed drops units with no health left, preserving order.
func RemoveDestroyed(units []*core.Unit) []*core.Unit {
	kept := units[:0]
	for _, u := range units {
		if u.Alive() {
			kept = append(kept, u)
		}
	}
	clear(units[len(kept):])
	return kept
}
