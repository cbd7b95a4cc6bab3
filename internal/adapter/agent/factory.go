package agent

import (
	"log"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "AGENTICK_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewGenerator creates a generator based on the AGENTICK_MODE environment
// variable. If AGENTICK_MODE=MOCK, returns a MockGenerator; otherwise
// returns a real Client.
func NewGenerator(baseURL, apiKey, model string, timeout time.Duration) Generator {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("AGENTICK_MODE=MOCK detected, using mock generator")
		return NewMockGenerator()
	}

	return NewClient(baseURL, apiKey, model, timeout)
}
