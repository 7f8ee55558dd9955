// Package narrate generates a short example sentence for a recognized word
// using the OpenAI chat completion API.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wordreel/wordreel/internal/pipeline"
)

const narrativePrompt = "Create at most 8 words sentence where someone would use the word '%s' " +
	"in a situation. The situation should be in %s. Only provide the situation in the " +
	"language %s given, no additional information or context."

// Narrator produces learning sentences via OpenAI chat completions.
type Narrator struct {
	client *openai.Client
	model  string
}

// New creates a Narrator using the given OpenAI client and chat model.
func New(client *openai.Client, model string) *Narrator {
	return &Narrator{client: client, model: model}
}

// Narrate asks the chat model for a short situational sentence using subject
// in the target language. A blank completion is reported as
// pipeline.ErrEmptyResponse so the caller can distinguish it from transport
// failures.
func (n *Narrator) Narrate(ctx context.Context, subject, language string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(narrativePrompt, subject, language, language),
			},
		},
		MaxTokens:   100,
		Temperature: 0.7,
	}

	resp, err := n.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &pipeline.StageError{
			Stage: pipeline.StageNarrative,
			Err:   classifyOpenAIError("chat completion", err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &pipeline.StageError{Stage: pipeline.StageNarrative, Err: pipeline.ErrEmptyResponse}
	}
	narrative := strings.TrimSpace(resp.Choices[0].Message.Content)
	if narrative == "" {
		return "", &pipeline.StageError{Stage: pipeline.StageNarrative, Err: pipeline.ErrEmptyResponse}
	}

	log.Info().
		Str("subject", subject).
		Str("language", language).
		Str("narrative", narrative).
		Msg("Narrative generated")
	return narrative, nil
}

// classifyOpenAIError marks rate limits and server-side failures as
// transient so the caller can retry them.
func classifyOpenAIError(op string, err error) error {
	wrapped := fmt.Errorf("openai %s failed: %w", op, err)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return pipeline.Transient(wrapped)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 {
			return pipeline.Transient(wrapped)
		}
	}
	return wrapped
}
