// pkg/core/unit.go
package core

import "math"

// MaxHealth is the health every unit and asset starts with.
const MaxHealth = 100

// Position is a point or vector in world units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + o.
func (p Position) Add(o Position) Position { return Position{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub returns p - o.
func (p Position) Sub(o Position) Position { return Position{X: p.X - o.X, Y: p.Y - o.Y} }

// Scale returns p * k.
func (p Position) Scale(k float64) Position { return Position{X: p.X * k, Y: p.Y * k} }

// Dot returns the dot product of p and o.
func (p Position) Dot(o Position) float64 { return p.X*o.X + p.Y*o.Y }

// Len returns the Euclidean norm of p.
func (p Position) Len() float64 { return math.Hypot(p.X, p.Y) }

// Team identifies the side a unit fights for.
type Team string

const (
	TeamFriendly Team = "friendly"
	TeamEnemy    Team = "enemy"
	// TeamAsset tags visual events raised by ground assets.
	TeamAsset Team = "asset"
)

// Kind is the airframe type of a unit.
type Kind string

const (
	KindInterceptor  Kind = "interceptor"
	KindGroundAttack Kind = "ground_attack"
	KindAirToAir     Kind = "air_to_air"
)

// Status is the behavioral state the tactical layer assigns each tick.
type Status string

const (
	StatusPatrolling   Status = "patrolling"
	StatusEngaging     Status = "engaging"
	StatusIntercepting Status = "intercepting"
	StatusRetreating   Status = "retreating"
)

// Armed reports whether a unit in this status may fire on its target.
func (s Status) Armed() bool {
	return s == StatusEngaging || s == StatusIntercepting
}

// Unit is a mobile combatant. TargetID is empty when the unit has no target.
type Unit struct {
	ID       string   `json:"id"`
	Team     Team     `json:"team"`
	Kind     Kind     `json:"type"`
	Position Position `json:"position"`
	Velocity Position `json:"velocity"`
	Status   Status   `json:"status"`
	Health   int      `json:"health"`
	TargetID string   `json:"target_id,omitempty"`
}

// Alive reports whether the unit still has health left.
func (u *Unit) Alive() bool { return u.Health > 0 }

// Asset is a static ground objective.
type Asset struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Health   int      `json:"health"`
}

// Alive reports whether the asset still stands.
func (a *Asset) Alive() bool { return a.Health > 0 }
