// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/vajra-sim/vajra/internal/model"
	"github.com/vajra-sim/vajra/pkg/core"
)

func settingsToJSON(r core.ResultRecord) datatypes.JSON {
	data, err := json.Marshal(model.ResultSettings{
		AILevel:         r.AILevel,
		SpeedMultiplier: r.SpeedMultiplier,
	})
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToResult converts a core.ResultRecord to a GORM model.SimulationResult.
func CoreToResult(r core.ResultRecord) model.SimulationResult {
	return model.SimulationResult{
		Timestamp:        r.Timestamp,
		ScenarioID:       r.ScenarioID,
		SimTimeSec:       r.SimTimeSec,
		Neutralizations:  r.Neutralizations,
		FriendlyLosses:   r.FriendlyLosses,
		AssetsSaved:      r.AssetsSaved,
		AvgInterceptTime: r.AvgInterceptTime,
		Settings:         settingsToJSON(r),
	}
}

// ResultToCore converts a GORM model.SimulationResult to a core.ResultRecord.
// Unreadable settings leave AILevel and SpeedMultiplier zero.
func ResultToCore(m model.SimulationResult) core.ResultRecord {
	r := core.ResultRecord{
		Timestamp:        m.Timestamp,
		ScenarioID:       m.ScenarioID,
		SimTimeSec:       m.SimTimeSec,
		Neutralizations:  m.Neutralizations,
		FriendlyLosses:   m.FriendlyLosses,
		AssetsSaved:      m.AssetsSaved,
		AvgInterceptTime: m.AvgInterceptTime,
	}
	var s model.ResultSettings
	if len(m.Settings) > 0 && json.Unmarshal(m.Settings, &s) == nil {
		r.AILevel = s.AILevel
		r.SpeedMultiplier = s.SpeedMultiplier
	}
	return r
}

// ResultsToCore converts a slice of GORM results.
func ResultsToCore(ms []model.SimulationResult) []core.ResultRecord {
	out := make([]core.ResultRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, ResultToCore(m))
	}
	return out
}
