// Package ai defines the LLM collaborator port and an HTTP client that
// speaks the OpenAI-compatible chat completions API, which local model
// servers also expose. The collaborator is optional at runtime: every call
// site degrades to deterministic behavior when it is unavailable.
package ai

import (
	"context"
	"encoding/json"
)

// Options are per-call generation parameters.
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// Collaborator is the AI capability the routing engine consumes.
type Collaborator interface {
	// Available reports whether the collaborator can serve calls right
	// now. Callers must tolerate false and fall back.
	Available(ctx context.Context) bool

	// GenerateText produces a free-form reply for the prompt.
	GenerateText(ctx context.Context, prompt, system string, opts Options) (string, error)

	// GenerateStructured produces a JSON document for the prompt, used for
	// order/product extraction from free text.
	GenerateStructured(ctx context.Context, prompt, system string, opts Options) (json.RawMessage, error)
}
