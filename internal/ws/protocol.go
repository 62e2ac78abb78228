package ws

import "github.com/mi-lab/backend/internal/session"

type MessageType string

const (
	// MsgSnapshot carries the full current session view. Sent once on
	// connect and then on every broadcast tick.
	MsgSnapshot MessageType = "snapshot"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// SnapshotPayload mirrors what the polling endpoints serve: the same
// degrade-to-default document reads, pushed instead of pulled.
type SnapshotPayload struct {
	Status   session.Status   `json:"status"`
	Feedback session.Feedback `json:"feedback"`
}
