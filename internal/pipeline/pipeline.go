package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/wordreel/wordreel/internal/artifact"
	"github.com/wordreel/wordreel/internal/metrics"
)

// Options tunes the Coordinator's resilience and language behavior.
type Options struct {
	// Locales maps language names to speech synthesis locales.
	Locales map[string]string
	// DefaultLanguage is used when the request language has no locale entry.
	DefaultLanguage string

	// StageTimeout bounds each remote stage call. ComposeTimeout bounds the
	// local ffmpeg work, which is slower than the API round trips.
	StageTimeout   time.Duration
	ComposeTimeout time.Duration

	// RetryAttempts is the number of additional tries after a transient
	// failure. RetryBaseDelay is doubled on each retry.
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Result is the outcome of a completed pipeline run.
type Result struct {
	VideoURL  string
	Key       string
	Subject   RecognizedSubject
	Narrative string
	Duration  time.Duration
}

// Coordinator drives one request through all five stages in order. Stage
// clients are injected so tests can substitute fakes for the external
// services.
type Coordinator struct {
	recognizer  Recognizer
	narrator    Narrator
	synthesizer Synthesizer
	composer    Composer
	publisher   Publisher
	store       *artifact.Store
	opts        Options
	breakers    map[Stage]*gobreaker.CircuitBreaker
}

// NewCoordinator wires the five stage clients and the artifact store
// together. Remote stages get a circuit breaker each; composition is local
// and runs unguarded.
func NewCoordinator(recognizer Recognizer, narrator Narrator, synthesizer Synthesizer, composer Composer, publisher Publisher, store *artifact.Store, opts Options) *Coordinator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 90 * time.Second
	}
	if opts.ComposeTimeout <= 0 {
		opts.ComposeTimeout = 5 * time.Minute
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "Mandarin"
	}

	breakers := make(map[Stage]*gobreaker.CircuitBreaker)
	for _, stage := range []Stage{StageRecognition, StageNarrative, StageSynthesis, StagePublication} {
		breakers[stage] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    string(stage),
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("stage", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		})
	}

	return &Coordinator{
		recognizer:  recognizer,
		narrator:    narrator,
		synthesizer: synthesizer,
		composer:    composer,
		publisher:   publisher,
		store:       store,
		opts:        opts,
		breakers:    breakers,
	}
}

// Run executes the full pipeline for one request. The request's artifact
// workspace is removed before returning, success or failure. The returned
// error, when non-nil, is always a *StageError except for workspace setup
// problems.
func (c *Coordinator) Run(ctx context.Context, req *GenerationRequest) (Result, error) {
	start := time.Now()
	logger := log.With().Str("request_id", req.ID).Str("language", req.Language).Logger()
	logger.Info().Str("image", req.ImageName).Int("bytes", len(req.Image)).Msg("Request accepted")
	c.logState(req.ID, StateAccepted)

	ws, err := c.store.NewWorkspace(req.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to prepare workspace: %w", err)
	}
	defer func() {
		ws.Cleanup()
		c.logState(req.ID, StateCleaned)
	}()

	imagePath, err := ws.SaveImage(req.Image, strings.ToLower(filepath.Ext(req.ImageName)))
	if err != nil {
		c.logState(req.ID, StateFailed)
		return Result{}, fmt.Errorf("failed to store upload: %w", err)
	}

	c.logState(req.ID, StateRecognizing)
	subject, err := runStage(ctx, c, StageRecognition, c.opts.StageTimeout, func(ctx context.Context) (RecognizedSubject, error) {
		return c.recognizer.Recognize(ctx, req.Image)
	})
	if err != nil {
		return Result{}, c.fail(req.ID, err)
	}

	c.logState(req.ID, StateNarrating)
	narrative, err := runStage(ctx, c, StageNarrative, c.opts.StageTimeout, func(ctx context.Context) (string, error) {
		return c.narrator.Narrate(ctx, subject.Label, req.Language)
	})
	if err != nil {
		return Result{}, c.fail(req.ID, err)
	}

	c.logState(req.ID, StateSynthesizing)
	locale := c.locale(req.Language)
	audio, err := runStage(ctx, c, StageSynthesis, c.opts.StageTimeout, func(ctx context.Context) (AudioArtifact, error) {
		return c.synthesizer.Synthesize(ctx, narrative, locale, ws.AudioPath())
	})
	if err != nil {
		return Result{}, c.fail(req.ID, err)
	}

	c.logState(req.ID, StateComposing)
	video, err := runStage(ctx, c, StageComposition, c.opts.ComposeTimeout, func(ctx context.Context) (VideoArtifact, error) {
		return c.composer.Compose(ctx, imagePath, narrative, audio, ws.VideoPath())
	})
	if err != nil {
		return Result{}, c.fail(req.ID, err)
	}

	c.logState(req.ID, StatePublishing)
	published, err := runStage(ctx, c, StagePublication, c.opts.StageTimeout, func(ctx context.Context) (PublishedResult, error) {
		return c.publisher.Publish(ctx, video, req.KeyHint())
	})
	if err != nil {
		return Result{}, c.fail(req.ID, err)
	}

	c.logState(req.ID, StateCompleted)
	elapsed := time.Since(start)
	logger.Info().
		Str("url", published.URL).
		Str("subject", subject.Label).
		Dur("elapsed", elapsed).
		Msg("Request completed")

	metrics.New("WordReel").
		Dimension("Outcome", "success").
		Metric("PipelineDuration", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("Completed").
		Property("request_id", req.ID).
		Flush()

	return Result{
		VideoURL:  published.URL,
		Key:       published.Key,
		Subject:   subject,
		Narrative: narrative,
		Duration:  elapsed,
	}, nil
}

// fail records the failed terminal state and emits a failure metric keyed by
// the stage that broke.
func (c *Coordinator) fail(requestID string, err error) error {
	c.logState(requestID, StateFailed)
	metrics.New("WordReel").
		Dimension("Stage", string(FailedStage(err))).
		Count("Failed").
		Property("request_id", requestID).
		Flush()
	return err
}

func (c *Coordinator) logState(requestID string, state State) {
	log.Debug().Str("request_id", requestID).Str("state", string(state)).Msg("State transition")
}

// locale resolves a language name to a synthesis locale, falling back to the
// default language's locale when the name is unknown.
func (c *Coordinator) locale(language string) string {
	if locale, ok := c.opts.Locales[language]; ok {
		return locale
	}
	fallback := c.opts.Locales[c.opts.DefaultLanguage]
	if fallback == "" {
		fallback = "zh-CN"
	}
	log.Warn().
		Str("language", language).
		Str("fallback", fallback).
		Msg("No locale configured for language, using default")
	return fallback
}

// runStage executes one stage with a bounded timeout, a circuit breaker for
// remote stages, and retries on transient failures. Timing is emitted as an
// EMF metric whether the stage succeeds or not.
func runStage[T any](ctx context.Context, c *Coordinator, stage Stage, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := c.opts.RetryAttempts + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.opts.RetryBaseDelay << (attempt - 1)
			log.Warn().
				Str("stage", string(stage)).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying stage after transient failure")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())}
			}
		}

		result, err := c.executeOnce(ctx, stage, timeout, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
		if err == nil {
			return result.(T), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())}
		}
		if !IsTransient(err) {
			break
		}
	}

	if FailedStage(lastErr) == "" {
		lastErr = &StageError{Stage: stage, Err: lastErr}
	}
	return zero, lastErr
}

// executeOnce runs a single stage attempt under its timeout and breaker.
func (c *Coordinator) executeOnce(ctx context.Context, stage Stage, timeout time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var result any
	var err error
	if breaker, ok := c.breakers[stage]; ok {
		result, err = breaker.Execute(func() (any, error) {
			return fn(stageCtx)
		})
	} else {
		result, err = fn(stageCtx)
	}
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.New("WordReel").
		Dimension("Stage", string(stage)).
		Metric("StageDuration", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Property("outcome", outcome).
		Flush()

	return result, err
}
