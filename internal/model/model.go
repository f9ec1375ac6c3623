package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServerInfo{},
	&SimulationResult{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the instance that owns the database.
type ServerInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
	SchemaLevel  int    `json:"schemaLevel"`
}

// TableName overrides the table name
func (*ServerInfo) TableName() string {
	return "server_infos"
}

////////////////////////
// RESULT MODELS
////////////////////////

// SimulationResult is one finished or reset run.
type SimulationResult struct {
	ID               uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt        time.Time      `json:"createdAt"`
	Timestamp        time.Time      `json:"timestamp" gorm:"index:idx_result_time"`
	ScenarioID       string         `json:"scenarioId" gorm:"size:64;index:idx_result_scenario"`
	SimTimeSec       float64        `json:"simTimeSec"`
	Neutralizations  int            `json:"neutralizations"`
	FriendlyLosses   int            `json:"friendlyLosses"`
	AssetsSaved      int            `json:"assetsSaved"`
	AvgInterceptTime float64        `json:"avgInterceptTime"`
	Settings         datatypes.JSON `json:"settings"`
}

// TableName overrides the table name
func (*SimulationResult) TableName() string {
	return "simulation_results"
}

// ResultSettings is the JSON document stored in SimulationResult.Settings.
type ResultSettings struct {
	AILevel         string  `json:"ai_level"`
	SpeedMultiplier float64 `json:"speed_multiplier"`
}
