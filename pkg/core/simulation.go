// pkg/core/simulation.go
package core

// SimulationStatus is the lifecycle state of an engine.
type SimulationStatus string

const (
	StatusIdle     SimulationStatus = "idle"
	StatusRunning  SimulationStatus = "running"
	StatusPaused   SimulationStatus = "paused"
	StatusFinished SimulationStatus = "finished"
)

// Metrics are the running engagement statistics.
type Metrics struct {
	// AssetsSaved is the asset count at load; it does not change mid-run.
	AssetsSaved               int     `json:"assets_saved"`
	AssetsStanding            int     `json:"assets_standing"`
	Neutralizations           int     `json:"neutralizations"`
	FriendlyLosses            int     `json:"friendly_losses"`
	AvgInterceptionTime       float64 `json:"avg_interception_time"`
	PercentUnattendedHostiles float64 `json:"percent_unattended_hostiles"`
}

// SimulationState is the status header of a snapshot.
type SimulationState struct {
	Status SimulationStatus `json:"status"`
	Time   float64          `json:"time"`
}

// CoordinationTarget pairs a friendly with its current target.
type CoordinationTarget struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Distance int    `json:"distance"`
}

// StatusCount is the number of friendlies in a given status.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Analysis summarises friendly coordination for dashboards.
type Analysis struct {
	CoordinationTargets []CoordinationTarget `json:"coordination_targets"`
	SwarmState          []StatusCount        `json:"swarm_state"`
}

// Settings echoes the runtime-tunable engine settings.
type Settings struct {
	SpeedMultiplier float64 `json:"speed_multiplier"`
	AILevel         string  `json:"ai_level"`
	VengeanceActive bool    `json:"vengeance_active"`
}

// Snapshot is the full world view emitted after every update.
type Snapshot struct {
	SimulationState SimulationState `json:"simulation_state"`
	Units           []Unit          `json:"drones"`
	Assets          []Asset         `json:"assets"`
	VisualEvents    []VisualEvent   `json:"visual_events"`
	Metrics         Metrics         `json:"metrics"`
	EventLog        []LogEntry      `json:"event_log"`
	Analysis        Analysis        `json:"analysis"`
	Settings        Settings        `json:"settings"`
}
