// Package interview drives mock interview sessions against a hosted model and
// grades the finished transcript.
package interview

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"github.com/ashureev/mockdy/internal/domain"
)

// Turn is one prior exchange replayed to the model.
type Turn struct {
	Role domain.Role
	Text string
}

// ChatRequest is one conversational turn: the persona, everything said so far,
// and the new user message.
type ChatRequest struct {
	SystemInstruction string
	History           []Turn
	Message           string
}

// Model is the hosted language model boundary.
type Model interface {
	// Stream yields reply text deltas. Stopping the iteration abandons the call.
	Stream(ctx context.Context, req ChatRequest) iter.Seq2[string, error]

	// GenerateJSON returns a single response constrained to schema.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}
