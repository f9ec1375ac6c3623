// pkg/core/events.go
package core

// VisualEventKind enumerates the ephemeral effects the engine emits.
type VisualEventKind string

const (
	EventNeutralization VisualEventKind = "neutralization"
	EventWeaponFire     VisualEventKind = "weapon_fire"
	EventCommLink       VisualEventKind = "comm_link"
)

// Lifetimes of each visual event kind, in simulation seconds.
const (
	WeaponFireTTL     = 0.25
	NeutralizationTTL = 1.5
	CommLinkTTL       = 0.5
)

// VisualEvent is a short-lived effect for renderers. TargetPosition is nil
// for events without a second endpoint.
type VisualEvent struct {
	ID             string          `json:"id"`
	Kind           VisualEventKind `json:"type"`
	Position       Position        `json:"position"`
	TargetPosition *Position       `json:"target_position,omitempty"`
	Team           Team            `json:"team"`
	TTL            float64         `json:"ttl"`
}

// LogEntry is one line of the engine's event log. Time is simulation seconds
// rounded to one decimal.
type LogEntry struct {
	Time    float64 `json:"time"`
	Message string  `json:"message"`
}
