// Package recognize identifies the dominant subject of a photo using the
// Gemini vision API.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/wordreel/wordreel/internal/jsonutil"
	"github.com/wordreel/wordreel/internal/pipeline"
)

const recognitionPrompt = `Identify the objects in this image. Respond with a JSON array of ` +
	`candidate objects ordered from most to least prominent, where each element is ` +
	`{"name": "<singular English noun>", "score": <confidence 0.0-1.0>}. ` +
	`Respond with the JSON array only, no additional text.`

// candidate is one detected object in the model's response, ordered by
// prominence.
type candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Recognizer asks Gemini what the dominant subject of an image is.
type Recognizer struct {
	client *genai.Client
	model  string
}

// New creates a Recognizer backed by the given Gemini client.
func New(client *genai.Client, model string) *Recognizer {
	return &Recognizer{client: client, model: model}
}

// Recognize sends the image to Gemini and returns the most prominent detected
// subject. When the model detects nothing, the subject is reported as
// "Unknown" with Found set to false rather than failing the request.
func (r *Recognizer) Recognize(ctx context.Context, image []byte) (pipeline.RecognizedSubject, error) {
	mimeType := http.DetectContentType(image)
	log.Debug().
		Str("mime", mimeType).
		Int("bytes", len(image)).
		Msg("Sending image to Gemini for recognition")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: recognitionPrompt},
		},
	}}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return pipeline.RecognizedSubject{}, &pipeline.StageError{
			Stage: pipeline.StageRecognition,
			Err:   classifyGeminiError(err),
		}
	}

	subject, err := parseCandidates(resp.Text())
	if err != nil {
		return pipeline.RecognizedSubject{}, &pipeline.StageError{
			Stage: pipeline.StageRecognition,
			Err:   err,
		}
	}

	if !subject.Found {
		log.Warn().Msg("Gemini detected no objects in image, labeling as Unknown")
	} else {
		log.Info().Str("subject", subject.Label).Msg("Subject recognized")
	}
	return subject, nil
}

// parseCandidates extracts the top detection from the model's JSON reply.
// An empty reply or an empty candidate list is not an error: the photo simply
// has no recognizable subject.
func parseCandidates(raw string) (pipeline.RecognizedSubject, error) {
	if strings.TrimSpace(raw) == "" {
		return pipeline.RecognizedSubject{Label: "Unknown", Found: false}, nil
	}

	candidates, err := jsonutil.ParseJSON[[]candidate](raw)
	if err != nil {
		return pipeline.RecognizedSubject{}, fmt.Errorf("failed to parse recognition response: %w", err)
	}

	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name != "" {
			return pipeline.RecognizedSubject{Label: name, Found: true}, nil
		}
	}
	return pipeline.RecognizedSubject{Label: "Unknown", Found: false}, nil
}

// classifyGeminiError marks rate limits and server-side failures as transient
// so the caller can retry them.
func classifyGeminiError(err error) error {
	wrapped := fmt.Errorf("gemini recognition request failed: %w", err)

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return pipeline.Transient(wrapped)
		}
	}
	return wrapped
}
