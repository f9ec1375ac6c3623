package streaming

import "github.com/vajra-sim/vajra/pkg/core"

// Command name constants matching the websocket protocol.
const (
	CommandStart      = "start"
	CommandPause      = "pause"
	CommandResume     = "resume"
	CommandReset      = "reset"
	CommandSetSpeed   = "set_speed"
	CommandSetAILevel = "set_ai_level"
)

// Commands lists every command a client may send.
var Commands = []string{
	CommandStart,
	CommandPause,
	CommandResume,
	CommandReset,
	CommandSetSpeed,
	CommandSetAILevel,
}

// Command is a client message on the simulation socket. Optional fields are
// pointers so absent and zero can be told apart.
type Command struct {
	Command     string   `json:"command"`
	ScenarioID  string   `json:"scenario_id,omitempty"`
	NumFriendly *int     `json:"num_friendly,omitempty"`
	NumEnemy    *int     `json:"num_enemy,omitempty"`
	Multiplier  *float64 `json:"multiplier,omitempty"`
	Level       string   `json:"level,omitempty"`
}

// Custom reports whether a start command asks for a custom battle.
func (c Command) Custom() bool {
	return c.NumFriendly != nil && c.NumEnemy != nil
}

// Snapshot is the per-tick server message.
type Snapshot = core.Snapshot

// WorldInfo answers GET /config/world.
type WorldInfo struct {
	Width  float64 `json:"world_width"`
	Height float64 `json:"world_height"`
}

// SpeedRequest is the body of POST /config/speed.
type SpeedRequest struct {
	Multiplier *float64 `json:"multiplier"`
}

// AILevelRequest is the body of POST /config/ai_level.
type AILevelRequest struct {
	Level string `json:"level"`
}

// StatusResponse is the generic JSON reply of the config endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
