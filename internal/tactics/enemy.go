package tactics

import (
	"slices"

	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Enemy returns one decision per enemy unit. Half the enemies focus the
// friendly nearest to any asset; the rest go for assets or the closest
// friendly.
func Enemy(w World) Decisions {
	if len(w.Friendlies) == 0 && len(w.Assets) == 0 {
		return patrolAll(w.Enemies)
	}

	d := make(Decisions, len(w.Enemies))

	if len(w.Friendlies) > 0 && len(w.Assets) > 0 {
		primary := w.Friendlies[0]
		bestDist := distanceToNearestAsset(primary.Position, w.Assets)
		for _, f := range w.Friendlies[1:] {
			if dist := distanceToNearestAsset(f.Position, w.Assets); dist < bestDist {
				primary, bestDist = f, dist
			}
		}

		byPrimary := slices.Clone(w.Enemies)
		slices.SortStableFunc(byPrimary, func(a, b *core.Unit) int {
			return cmpFloat(physics.Distance(a.Position, primary.Position), physics.Distance(b.Position, primary.Position))
		})
		for _, e := range byPrimary[:len(w.Enemies)/2] {
			d[e.ID] = Decision{Status: core.StatusEngaging, TargetID: primary.ID}
		}
	}

	for _, e := range w.Enemies {
		if _, assigned := d[e.ID]; assigned {
			continue
		}
		switch {
		case e.Kind == core.KindGroundAttack && len(w.Assets) > 0:
			d[e.ID] = Decision{Status: core.StatusEngaging, TargetID: nearestAsset(e.Position, w.Assets).ID}
		case len(w.Friendlies) > 0:
			d[e.ID] = Decision{Status: core.StatusEngaging, TargetID: nearestUnit(e.Position, w.Friendlies).ID}
		default:
			d[e.ID] = Decision{Status: core.StatusPatrolling}
		}
	}
	return d
}
