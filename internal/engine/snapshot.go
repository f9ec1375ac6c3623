package engine

import (
	"slices"
	"strings"

	"github.com/vajra-sim/vajra/internal/physics"
	"github.com/vajra-sim/vajra/pkg/core"
)

// snapshot decays visual events by dt, prunes the expired ones and builds
// the outbound view. It runs in every state.
func (e *Engine) snapshot(dt float64) core.Snapshot {
	live := e.events[:0]
	for _, ev := range e.events {
		ev.TTL -= dt
		if ev.TTL > 0 {
			live = append(live, ev)
		}
	}
	clear(e.events[len(live):])
	e.events = live

	e.metrics.AvgInterceptionTime = e.avgInterceptTime()

	units := make([]core.Unit, 0, len(e.friendlies)+len(e.enemies))
	for _, u := range e.allUnits() {
		units = append(units, *u)
	}
	assets := make([]core.Asset, 0, len(e.assets))
	for _, a := range e.assets {
		assets = append(assets, *a)
	}

	tail := e.cfg.LogTail
	if tail <= 0 || tail > len(e.log) {
		tail = len(e.log)
	}

	return core.Snapshot{
		SimulationState: core.SimulationState{Status: e.status, Time: e.elapsed},
		Units:           units,
		Assets:          assets,
		VisualEvents:    slices.Clone(e.events),
		Metrics:         e.metrics,
		EventLog:        slices.Clone(e.log[len(e.log)-tail:]),
		Analysis:        e.analysis(),
		Settings: core.Settings{
			SpeedMultiplier: e.speed,
			AILevel:         string(e.tier),
			VengeanceActive: e.vengeanceActive,
		},
	}
}

func (e *Engine) analysis() core.Analysis {
	units, _ := e.index()

	targets := make([]core.CoordinationTarget, 0, len(e.friendlies))
	counts := make(map[core.Status]int)
	for _, f := range e.friendlies {
		counts[f.Status]++
		target, ok := units[f.TargetID]
		if f.TargetID == "" || !ok {
			continue
		}
		targets = append(targets, core.CoordinationTarget{
			SourceID: f.ID,
			TargetID: f.TargetID,
			Distance: int(physics.Distance(f.Position, target.Position)),
		})
	}

	swarm := make([]core.StatusCount, 0, len(counts))
	for status, n := range counts {
		swarm = append(swarm, core.StatusCount{Status: status, Count: n})
	}
	slices.SortFunc(swarm, func(a, b core.StatusCount) int {
		return strings.Compare(string(a.Status), string(b.Status))
	})

	return core.Analysis{CoordinationTargets: targets, SwarmState: swarm}
}
