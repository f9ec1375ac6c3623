// pkg/core/scenario.go
package core

import "time"

// UnitSpec is the initial layout of one unit.
type UnitSpec struct {
	ID       string   `json:"id" yaml:"id"`
	Team     Team     `json:"team" yaml:"team"`
	Kind     Kind     `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
}

// AssetSpec is the initial layout of one asset.
type AssetSpec struct {
	ID       string   `json:"id" yaml:"id"`
	Position Position `json:"position" yaml:"position"`
}

// Scenario is a fully laid out battle ready to load into an engine.
type Scenario struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Friendly []UnitSpec  `json:"friendly_drones"`
	Enemy    []UnitSpec  `json:"enemy_drones"`
	Assets   []AssetSpec `json:"assets"`
}

// Empty reports whether the scenario has no units at all.
func (s *Scenario) Empty() bool {
	return s == nil || (len(s.Friendly) == 0 && len(s.Enemy) == 0)
}

// ScenarioInfo is a catalogue entry.
type ScenarioInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResultRecord is the flat summary persisted when a run ends or is reset.
type ResultRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	ScenarioID       string    `json:"scenario_id"`
	SimTimeSec       float64   `json:"sim_time_sec"`
	Neutralizations  int       `json:"neutralizations"`
	FriendlyLosses   int       `json:"friendly_losses"`
	AssetsSaved      int       `json:"assets_saved"`
	AvgInterceptTime float64   `json:"avg_intercept_time"`
	AILevel          string    `json:"ai_level"`
	SpeedMultiplier  float64   `json:"speed_multiplier"`
}
