package streaming

import (
	"encoding/json"

	"github.com/vajra-sim/vajra/pkg/core"
)

// Message types exchanged with a remote result collector.
const (
	TypeHello  = "hello"
	TypeResult = "result"
	TypeAck    = "ack"
)

// Envelope wraps every message sent to a collector. ID is echoed back in
// the matching AckMessage.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage confirms an envelope. A non-empty Error means the collector
// rejected it.
type AckMessage struct {
	Type  string `json:"type"`
	For   string `json:"for"`
	Error string `json:"error,omitempty"`
}

// HelloPayload identifies the sending instance. It is sent on every
// (re)connect.
type HelloPayload struct {
	Instance string `json:"instance"`
}

// ResultPayload carries one finished run.
type ResultPayload = core.ResultRecord
