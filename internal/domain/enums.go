package domain

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Valid reports whether s is a known sender role.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAgent
}
