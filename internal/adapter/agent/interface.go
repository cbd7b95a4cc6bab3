// Package agent provides an abstraction over the external text-generation
// capability that produces assistant replies.
package agent

import "context"

// Turn is one prior exchange entry handed to the generator as context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator defines the opaque generation capability. Implementations may
// fail with any error; callers are expected to absorb failures rather
// than propagate them to the transport layer.
type Generator interface {
	// Generate produces a reply to message given the prior turn history.
	Generate(ctx context.Context, conversationID string, history []Turn, message string) (string, error)
}

// Ensure Client implements Generator interface.
var _ Generator = (*Client)(nil)
