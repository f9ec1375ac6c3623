package tactics

import (
	"math"
	"slices"

	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Friendly returns one decision per friendly unit under the given tier.
func Friendly(tier Tier, w World, p Params) Decisions {
	if len(w.Enemies) == 0 {
		return patrolAll(w.Friendlies)
	}
	switch tier {
	case TierBasic:
		return basic(w)
	case TierAdvanced, TierAdaptive:
		return coordinated(w, p)
	default:
		return normal(w)
	}
}

// basic engages the nearest enemy, independently per friendly.
func basic(w World) Decisions {
	d := make(Decisions, len(w.Friendlies))
	for _, f := range w.Friendlies {
		target := nearestUnit(f.Position, w.Enemies)
		d[f.ID] = Decision{Status: core.StatusEngaging, TargetID: target.ID}
	}
	return d
}

// normal ranks by distance, then lets ground attackers closest to an asset
// jump the queue.
func normal(w World) Decisions {
	d := make(Decisions, len(w.Friendlies))
	for _, f := range w.Friendlies {
		threats := slices.Clone(w.Enemies)
		slices.SortStableFunc(threats, func(a, b *core.Unit) int {
			return cmpFloat(physics.Distance(f.Position, a.Position), physics.Distance(f.Position, b.Position))
		})
		if len(w.Assets) > 0 {
			slices.SortStableFunc(threats, func(a, b *core.Unit) int {
				return cmpFloat(assetProximity(a, w.Assets), assetProximity(b, w.Assets))
			})
		}
		d[f.ID] = Decision{Status: core.StatusEngaging, TargetID: threats[0].ID}
	}
	return d
}

func assetProximity(e *core.Unit, assets []*core.Asset) float64 {
	if e.Kind != core.KindGroundAttack {
		return math.Inf(1)
	}
	return distanceToNearestAsset(e.Position, assets)
}

// coordinated splits friendlies into guardians, which hold the asset zone,
// and hunters, which are greedily assigned to the highest scoring threats.
func coordinated(w World, p Params) Decisions {
	d := make(Decisions, len(w.Friendlies))

	byAsset := slices.Clone(w.Friendlies)
	slices.SortStableFunc(byAsset, func(a, b *core.Unit) int {
		return cmpFloat(distanceToNearestAsset(a.Position, w.Assets), distanceToNearestAsset(b.Position, w.Assets))
	})
	n := min(p.Guardians, len(byAsset))
	guardians, hunters := byAsset[:n], byAsset[n:]

	radius := p.GuardianZoneRadius()
	var inZone []*core.Unit
	for _, e := range w.Enemies {
		if distanceToNearestAsset(e.Position, w.Assets) < radius {
			inZone = append(inZone, e)
		}
	}

	for _, g := range guardians {
		if len(inZone) == 0 {
			d[g.ID] = Decision{Status: core.StatusPatrolling}
			continue
		}
		threat := nearestUnit(g.Position, inZone)
		d[g.ID] = Decision{Status: core.StatusIntercepting, TargetID: threat.ID}
	}

	threats := slices.Clone(w.Enemies)
	slices.SortStableFunc(threats, func(a, b *core.Unit) int {
		return cmpFloat(ThreatScore(b, w.Assets), ThreatScore(a, w.Assets))
	})

	available := slices.Clone(hunters)
	for _, threat := range threats {
		if len(available) == 0 {
			break
		}
		best, bestTime := 0, math.Inf(1)
		for i, h := range available {
			tti := physics.TimeToIntercept(h.Position, threat.Position, threat.Velocity, p.FriendlySpeed)
			if tti < bestTime {
				best, bestTime = i, tti
			}
		}
		d[available[best].ID] = Decision{Status: core.StatusEngaging, TargetID: threat.ID}
		available = slices.Delete(available, best, best+1)
	}

	for _, f := range w.Friendlies {
		if _, ok := d[f.ID]; !ok {
			d[f.ID] = Decision{Status: core.StatusPatrolling}
		}
	}
	return d
}

// ThreatScore ranks an enemy for hunter assignment. Ground attackers score
// by inverse distance to the nearest asset, everything else scores 1.
// Damaged enemies count double.
func ThreatScore(e *core.Unit, assets []*core.Asset) float64 {
	score := 1.0
	if e.Kind == core.KindGroundAttack && len(assets) > 0 {
		score = 1000 / (distanceToNearestAsset(e.Position, assets) + 1)
	}
	if e.Health < core.MaxHealth {
		score *= 2
	}
	return score
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
