package synth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wordreel/wordreel/internal/media"
	"github.com/wordreel/wordreel/internal/pipeline"
)

// Synthesizer runs a speech Provider and measures the produced narration.
type Synthesizer struct {
	provider Provider
	probe    func(ctx context.Context, path string) (time.Duration, error)
}

// New creates a Synthesizer around the given provider.
func New(provider Provider) *Synthesizer {
	return &Synthesizer{provider: provider, probe: media.ProbeDuration}
}

// Synthesize writes the narration for text to outputFile and probes its
// duration, which downstream composition uses as the exact video length.
func (s *Synthesizer) Synthesize(ctx context.Context, text, locale, outputFile string) (pipeline.AudioArtifact, error) {
	if err := s.provider.GenerateAudio(ctx, text, locale, outputFile); err != nil {
		return pipeline.AudioArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageSynthesis,
			Err:   classifySpeechError(err),
		}
	}

	info, err := os.Stat(outputFile)
	if err != nil {
		return pipeline.AudioArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageSynthesis,
			Err:   fmt.Errorf("narration file missing after synthesis: %w", err),
		}
	}
	if info.Size() == 0 {
		return pipeline.AudioArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageSynthesis,
			Err:   fmt.Errorf("narration file %s is empty", outputFile),
		}
	}

	duration, err := s.probe(ctx, outputFile)
	if err != nil {
		return pipeline.AudioArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageSynthesis,
			Err:   fmt.Errorf("failed to probe narration duration: %w", err),
		}
	}

	log.Info().
		Str("provider", s.provider.Name()).
		Str("locale", locale).
		Dur("duration", duration).
		Int64("bytes", info.Size()).
		Msg("Narration synthesized")

	return pipeline.AudioArtifact{
		Path:        outputFile,
		ContentType: "audio/mpeg",
		Duration:    duration,
	}, nil
}

// classifySpeechError marks rate limits and server-side API failures as
// transient so the caller can retry them.
func classifySpeechError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return pipeline.Transient(err)
		}
	}
	return err
}
