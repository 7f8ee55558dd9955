package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Stage identifies one pipeline stage for state tracking and error attribution.
type Stage string

const (
	StageRecognition Stage = "recognition"
	StageNarrative   Stage = "narrative"
	StageSynthesis   Stage = "synthesis"
	StageComposition Stage = "composition"
	StagePublication Stage = "publication"
)

// State is the Coordinator's position in the per-request state machine.
type State string

const (
	StateAccepted     State = "accepted"
	StateRecognizing  State = "recognizing"
	StateNarrating    State = "narrating"
	StateSynthesizing State = "synthesizing"
	StateComposing    State = "composing"
	StatePublishing   State = "publishing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCleaned      State = "cleaned"
)

// ErrEmptyResponse reports that the narrative service returned an empty or
// whitespace-only completion.
var ErrEmptyResponse = errors.New("empty completion from narrative service")

// ErrCancelled reports that the request was cancelled or timed out before
// the pipeline reached a terminal state.
var ErrCancelled = errors.New("request cancelled")

// StageError attributes a failure to the stage that produced it. Every stage
// error is caught exactly once by the Coordinator and wrapped into one of
// these before it reaches the caller.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage an error is attributed to, or "" when the
// error is not a stage failure.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// transientError marks a stage failure as worth retrying (timeouts, 429s,
// 5xx responses). Stages wrap such failures with Transient; everything else
// is treated as permanent.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable by the Coordinator's retry policy.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
// Deadline expiry and network timeouts are transient even when the stage
// did not mark them.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
