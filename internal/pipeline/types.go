// Package pipeline drives the generation pipeline: recognition, narration,
// speech synthesis, video composition, and publication, in that order, for
// one request at a time. The Coordinator owns stage sequencing, per-stage
// error containment, and artifact cleanup.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// GenerationRequest is one accepted user submission. It is immutable once
// built and owned exclusively by a single pipeline run.
type GenerationRequest struct {
	ID        string // server-generated, unique per request
	Image     []byte // raw upload bytes
	ImageName string // sanitized base name of the upload, extension included
	Language  string // target language name, e.g. "Mandarin"
}

// KeyHint returns the naming hint used for the published object: the
// upload's base name without its extension.
func (r *GenerationRequest) KeyHint() string {
	return strings.TrimSuffix(r.ImageName, filepath.Ext(r.ImageName))
}

// RecognizedSubject is the outcome of the recognition stage. Found is false
// when the recognizer saw no objects and the sentinel label is in use; that
// is a degraded success, not an error.
type RecognizedSubject struct {
	Label string
	Found bool
}

// AudioArtifact is synthesized speech written to a per-request temp file.
type AudioArtifact struct {
	Path        string
	ContentType string
	Duration    time.Duration
}

// VideoArtifact is the rendered captioned clip.
type VideoArtifact struct {
	Path     string
	Width    int
	Height   int
	Duration time.Duration
}

// PublishedResult is the durable, publicly readable location of the video.
type PublishedResult struct {
	URL string
	Key string
}

// Recognizer names the most prominent object in an image, or reports the
// sentinel "Unknown" subject when nothing is recognized.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (RecognizedSubject, error)
}

// Narrator produces a short example sentence using the subject word in the
// target language.
type Narrator interface {
	Narrate(ctx context.Context, subject, language string) (string, error)
}

// Synthesizer converts text to speech in the given locale and writes the
// encoded audio to outputFile. Ownership of the file transfers to the caller.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, locale, outputFile string) (AudioArtifact, error)
}

// Composer renders the captioned clip over the background image, attaches
// the audio track, and writes the result to outputFile. The output duration
// equals the audio duration exactly.
type Composer interface {
	Compose(ctx context.Context, backgroundPath, caption string, audio AudioArtifact, outputFile string) (VideoArtifact, error)
}

// Publisher uploads a finished video under a key derived from keyHint and
// returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, video VideoArtifact, keyHint string) (PublishedResult, error)
}
