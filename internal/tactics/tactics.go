// Package tactics computes per-tick behavioral decisions for both teams.
// Policies are pure functions of the world they are given.
package tactics

import (
	"math"
	"strings"

	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Tier selects the friendly decision policy.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierNormal   Tier = "normal"
	TierAdvanced Tier = "advanced"
	TierAdaptive Tier = "adaptive"
)

// Tiers lists every valid tier in increasing sophistication.
var Tiers = []Tier{TierBasic, TierNormal, TierAdvanced, TierAdaptive}

// ParseTier maps a level name to a Tier. Unknown names fall back to
// TierNormal; ok reports whether the name was recognised.
func ParseTier(level string) (tier Tier, ok bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(level))) {
	case TierBasic:
		return TierBasic, true
	case TierNormal:
		return TierNormal, true
	case TierAdvanced:
		return TierAdvanced, true
	case TierAdaptive:
		return TierAdaptive, true
	default:
		return TierNormal, false
	}
}

// Coordinated reports whether the tier runs the guardian/hunter policy.
func (t Tier) Coordinated() bool {
	return t == TierAdvanced || t == TierAdaptive
}

// Decision is the status and optional target for one unit.
type Decision struct {
	Status   core.Status
	TargetID string
}

// Decisions maps unit id to its decision for the tick.
type Decisions map[string]Decision

// World is the read-only view a policy decides on. Assets should only hold
// assets that are still standing.
type World struct {
	Friendlies []*core.Unit
	Enemies    []*core.Unit
	Assets     []*core.Asset
}

// Params carries the tuning constants the policies read.
type Params struct {
	FriendlySpeed    float64
	ThreateningRange float64
	Guardians        int
}

// GuardianZoneRadius is the protection radius around each asset.
func (p Params) GuardianZoneRadius() float64 {
	return p.ThreateningRange * 1.5
}

func patrolAll(units []*core.Unit) Decisions {
	d := make(Decisions, len(units))
	for _, u := range units {
		d[u.ID] = Decision{Status: core.StatusPatrolling}
	}
	return d
}

// nearestUnit returns the first unit at minimum distance from p, or nil.
func nearestUnit(p core.Position, units []*core.Unit) *core.Unit {
	var best *core.Unit
	bestDist := math.Inf(1)
	for _, u := range units {
		if d := physics.Distance(p, u.Position); d < bestDist {
			best, bestDist = u, d
		}
	}
	return best
}

// nearestAsset returns the first asset at minimum distance from p, or nil.
func nearestAsset(p core.Position, assets []*core.Asset) *core.Asset {
	var best *core.Asset
	bestDist := math.Inf(1)
	for _, a := range assets {
		if d := physics.Distance(p, a.Position); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// distanceToNearestAsset is +Inf when there are no assets.
func distanceToNearestAsset(p core.Position, assets []*core.Asset) float64 {
	best := math.Inf(1)
	for _, a := range assets {
		best = math.Min(best, physics.Distance(p, a.Position))
	}
	return best
}
