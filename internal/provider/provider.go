// Package provider defines the LLM client interface and an
// OpenAI-compatible implementation. The rest of the system talks to the
// model exclusively through the Provider interface so the classifier,
// planner, and dispatcher can be tested against fakes.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
