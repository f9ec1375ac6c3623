// Package physics implements the stateless motion geometry of the world:
// distances, straight-line movement and lead-pursuit interception.
package physics

import (
	"math"

	"github.com/vajra-sim/vajra/pkg/core"
)

const (
	// ArrivalEpsilon is the distance under which a unit counts as arrived.
	ArrivalEpsilon = 1.0
	// degenerateEpsilon bounds |a| below which the intercept quadratic is
	// treated as unsolvable.
	degenerateEpsilon = 1e-6
	// minInterceptTime discards roots that are effectively "now".
	minInterceptTime = 0.01
)

// Distance returns the Euclidean distance between a and b.
func Distance(a, b core.Position) float64 {
	return b.Sub(a).Len()
}

// MoveTowards advances current toward target at speed for dt seconds.
// The returned velocity is the commanded velocity even when the step is
// clamped to land exactly on target.
func MoveTowards(current, target core.Position, speed, dt float64) (core.Position, core.Position) {
	direction := target.Sub(current)
	remaining := direction.Len()
	if remaining < ArrivalEpsilon {
		return current, core.Position{}
	}

	velocity := direction.Scale(speed / remaining)
	step := velocity.Scale(dt)
	if step.Len() > remaining {
		return target, velocity
	}
	return current.Add(step), velocity
}

// InterceptPoint predicts where a pursuer at interceptorSpeed can meet a
// target moving at constant targetVel. Unsolvable geometry falls back to the
// target's current position.
func InterceptPoint(interceptorPos, targetPos, targetVel core.Position, interceptorSpeed float64) core.Position {
	t, ok := solveIntercept(interceptorPos, targetPos, targetVel, interceptorSpeed)
	if !ok {
		return targetPos
	}
	return targetPos.Add(targetVel.Scale(t))
}

// TimeToIntercept returns the earliest valid intercept time, or +Inf when
// the pursuer can never reach the target.
func TimeToIntercept(interceptorPos, targetPos, targetVel core.Position, interceptorSpeed float64) float64 {
	t, ok := solveIntercept(interceptorPos, targetPos, targetVel, interceptorSpeed)
	if !ok {
		return math.Inf(1)
	}
	return t
}

// solveIntercept solves a·t² + b·t + c = 0 with
// a = |v|² - s², b = 2·v·r, c = |r|² and returns the smallest root
// strictly above minInterceptTime.
func solveIntercept(interceptorPos, targetPos, targetVel core.Position, speed float64) (float64, bool) {
	rel := targetPos.Sub(interceptorPos)
	a := targetVel.Dot(targetVel) - speed*speed
	b := 2 * targetVel.Dot(rel)
	c := rel.Dot(rel)

	disc := b*b - 4*a*c
	if disc < 0 || math.Abs(a) < degenerateEpsilon {
		return 0, false
	}

	sq := math.Sqrt(disc)
	best := math.Inf(1)
	for _, t := range [2]float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)} {
		if t > minInterceptTime && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}
