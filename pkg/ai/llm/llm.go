// Package llm defines the contracts for the hosted language endpoints the
// coaching core consumes: persona response generation during a live session
// and feedback generation at session end. Both are opaque remote calls with
// no core-level retry.
package llm

import (
	"context"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
)

// LLM-specific error variables for backward compatibility
var (
	// ErrRecoverable indicates a temporary generation failure that may
	// succeed if retried. Examples: rate limiting, timeout.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent generation failure.
	// Examples: invalid API key, content policy violation.
	ErrFatal = ai.ErrFatal
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single turn in the conversation history sent to the
// generation endpoint.
type Message struct {
	Role    MessageRole
	Content string
}

// Difficulty selects how hard the AI persona pushes back.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Generator produces the persona's next line from conversation history.
type Generator interface {
	// GenerateResponse returns the persona's reply text.
	GenerateResponse(ctx context.Context, history []Message, difficulty Difficulty) (string, error)
}

// Feedback is the end-of-session coaching result.
type Feedback struct {
	Strengths    []string
	Improvements []string
}

// FeedbackGenerator produces coaching feedback from a completed transcript
// and the script the user practiced against. Invoked only at session end;
// failures are logged and otherwise ignored.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, transcript, script string) (Feedback, error)
}
