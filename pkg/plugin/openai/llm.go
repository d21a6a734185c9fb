package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
)

// Generator produces prospect replies using OpenAI chat completions.
type Generator struct {
	client *openai.Client
	model  string
}

// newGenerator creates a Generator from plugin configuration.
func newGenerator(cfg map[string]any) (any, error) {
	apiKey, err := apiKeyFrom(cfg)
	if err != nil {
		return nil, err
	}

	model, ok := cfg["model"].(string)
	if !ok || model == "" {
		model = openai.GPT4oMini
	}

	return &Generator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// GenerateResponse returns the persona's next line given the conversation
// so far.
func (g *Generator) GenerateResponse(ctx context.Context, history []llm.Message, difficulty llm.Difficulty) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: personaPrompt(difficulty),
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0.8,
	})
	if err != nil {
		return "", ai.NewRecoverableError(err, "chat completion request failed")
	}
	if len(resp.Choices) == 0 {
		return "", ai.NewRecoverableError(nil, "no chat completion choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// personaPrompt builds the system prompt for the prospect persona. Harder
// difficulties push back more before conceding anything.
func personaPrompt(difficulty llm.Difficulty) string {
	var temperament string
	switch difficulty {
	case llm.DifficultyEasy:
		temperament = "You are friendly and open. Raise at most one mild objection, then let the conversation move forward."
	case llm.DifficultyHard:
		temperament = "You are skeptical and short on time. Raise pointed objections about price, timing, and your current provider, and concede nothing until the caller earns it."
	default:
		temperament = "You are polite but guarded. Raise realistic objections and expect the caller to address them before you engage further."
	}

	return "You are playing a sales prospect on a phone call so the caller can practice their pitch. " +
		temperament +
		" Stay in character, keep replies under three sentences, and speak naturally as one conversational turn."
}

// FeedbackGenerator produces end-of-session coaching feedback.
type FeedbackGenerator struct {
	client *openai.Client
	model  string
}

// newFeedbackGenerator creates a FeedbackGenerator from plugin configuration.
func newFeedbackGenerator(cfg map[string]any) (any, error) {
	apiKey, err := apiKeyFrom(cfg)
	if err != nil {
		return nil, err
	}

	model, ok := cfg["model"].(string)
	if !ok || model == "" {
		model = openai.GPT4oMini
	}

	return &FeedbackGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

const feedbackPrompt = `You are a sales coach reviewing a practice call transcript.
Compare what the caller said against the script they practiced.
Respond with only a JSON object of the form
{"strengths": ["..."], "improvements": ["..."]}
with two to four short items in each list.`

// GenerateFeedback asks the model to review the transcript against the
// practiced script.
func (f *FeedbackGenerator) GenerateFeedback(ctx context.Context, transcript, script string) (llm.Feedback, error) {
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: feedbackPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Script:\n%s\n\nTranscript:\n%s", script, transcript),
			},
		},
		MaxTokens: 400,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return llm.Feedback{}, ai.NewRecoverableError(err, "feedback request failed")
	}
	if len(resp.Choices) == 0 {
		return llm.Feedback{}, ai.NewRecoverableError(nil, "no feedback choices returned")
	}

	var parsed struct {
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return llm.Feedback{}, ai.NewFatalError(err, "malformed feedback payload")
	}

	return llm.Feedback{
		Strengths:    parsed.Strengths,
		Improvements: parsed.Improvements,
	}, nil
}
