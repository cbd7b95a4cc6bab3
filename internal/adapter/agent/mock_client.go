package agent

import (
	"context"
	"fmt"
)

// MockGenerator is a mock implementation of Generator for testing and
// offline development.
type MockGenerator struct{}

// NewMockGenerator creates a new mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Ensure MockGenerator implements Generator interface.
var _ Generator = (*MockGenerator)(nil)

// Generate returns a deterministic reply based on the input.
func (m *MockGenerator) Generate(ctx context.Context, conversationID string, history []Turn, message string) (string, error) {
	if len(history) > 0 {
		return fmt.Sprintf("[MOCK] Received %q (with %d prior turns). This is a mock response.", truncate(message, 100), len(history)), nil
	}
	return fmt.Sprintf("[MOCK] Received %q. This is a mock response.", truncate(message, 100)), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
