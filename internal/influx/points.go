package influx

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vajra-sim/vajra/pkg/core"
)

// PerformanceSample is one engine's state at a monitor tick.
type PerformanceSample struct {
	SessionID  string
	ScenarioID string
	Status     string
	Ticks      uint64
	SimTime    float64
	TickMs     float64
	Friendlies int
	Enemies    int
	Events     int
	Time       time.Time
}

// ResultPoint builds the "result" measurement for r.
func ResultPoint(r *core.ResultRecord) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"result",
		map[string]string{
			"scenario_id": r.ScenarioID,
			"ai_level":    r.AILevel,
		},
		map[string]interface{}{
			"sim_time_sec":       r.SimTimeSec,
			"neutralizations":    r.Neutralizations,
			"friendly_losses":    r.FriendlyLosses,
			"assets_saved":       r.AssetsSaved,
			"avg_intercept_time": r.AvgInterceptTime,
			"speed_multiplier":   r.SpeedMultiplier,
		},
		r.Timestamp,
	)
}

// PerformancePoint builds the "engine" measurement for s.
func PerformancePoint(s PerformanceSample) *influxdb2_write.Point {
	at := s.Time
	if at.IsZero() {
		at = time.Now()
	}
	tags := map[string]string{
		"session": s.SessionID,
		"status":  s.Status,
	}
	if s.ScenarioID != "" {
		tags["scenario_id"] = s.ScenarioID
	}
	return influxdb2.NewPoint(
		"engine",
		tags,
		map[string]interface{}{
			"ticks":      int64(s.Ticks),
			"sim_time":   s.SimTime,
			"tick_ms":    s.TickMs,
			"friendlies": s.Friendlies,
			"enemies":    s.Enemies,
			"events":     s.Events,
		},
		at,
	)
}
