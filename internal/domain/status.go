package domain

type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageInfo    MessageKind = "info"
	MessageSafe    MessageKind = "safe"
	MessageWarning MessageKind = "warning"
	MessageDanger  MessageKind = "danger"
)

// StatusMessage is the single user-visible status line of a session.
type StatusMessage struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}
