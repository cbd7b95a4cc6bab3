// Package protocol defines the frames exchanged over the realtime chat
// socket. Inbound user messages and outbound replies are raw text frames;
// init and error control frames are JSON.
package protocol

// Control frame types from server to client
const (
	TypeInit  = "init"
	TypeError = "error"
)

// InitFrame is sent once after a connection is bound to a conversation.
type InitFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Topic          string `json:"topic,omitempty"`
}

// ErrorFrame is sent best-effort before an abnormal close. Message is
// always a generic fixed string; fault detail stays server-side.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GenericErrorMessage is the client-visible text for internal faults.
const GenericErrorMessage = "Unexpected server error."
