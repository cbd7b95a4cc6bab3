// Package policy decides conversation access with an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.conversation_access.allow"),
		rego.Module("conversation_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Allow reports whether userID may access a conversation owned by ownerID.
// Callers must surface a deny the same way as a missing conversation so
// existence is never leaked.
func (e *Engine) Allow(ctx context.Context, userID, ownerID string) (bool, error) {
	input := map[string]interface{}{
		"user_id":  userID,
		"owner_id": ownerID,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// DefaultPolicy is the default access policy: a conversation is visible
// only to its owner.
const DefaultPolicy = `
package conversation_access

default allow = false

allow {
	input.user_id == input.owner_id
	input.user_id != ""
}
`
