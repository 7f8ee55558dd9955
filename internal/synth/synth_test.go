package synth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wordreel/wordreel/internal/pipeline"
)

// fakeProvider writes fixed bytes to the output file, or fails.
type fakeProvider struct {
	data []byte
	err  error
}

func (f *fakeProvider) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputFile, f.data, 0o644)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable() error { return nil }

func newTestSynthesizer(p Provider, d time.Duration, probeErr error) *Synthesizer {
	s := New(p)
	s.probe = func(ctx context.Context, path string) (time.Duration, error) {
		return d, probeErr
	}
	return s
}

func TestSynthesize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "narration.mp3")
	s := newTestSynthesizer(&fakeProvider{data: []byte("mp3-bytes")}, 4175*time.Millisecond, nil)

	audio, err := s.Synthesize(context.Background(), "short sentence", "zh-CN", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio.Path != out {
		t.Errorf("Path = %q, want %q", audio.Path, out)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %q, want audio/mpeg", audio.ContentType)
	}
	if audio.Duration != 4175*time.Millisecond {
		t.Errorf("Duration = %v, want 4.175s", audio.Duration)
	}
}

func TestSynthesizeProviderFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "narration.mp3")
	s := newTestSynthesizer(&fakeProvider{err: fmt.Errorf("voice unavailable")}, 0, nil)

	_, err := s.Synthesize(context.Background(), "short sentence", "en-US", out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if pipeline.FailedStage(err) != pipeline.StageSynthesis {
		t.Errorf("stage = %q, want %q", pipeline.FailedStage(err), pipeline.StageSynthesis)
	}
	if pipeline.IsTransient(err) {
		t.Error("plain provider error should not be transient")
	}
}

func TestSynthesizeRateLimitIsTransient(t *testing.T) {
	out := filepath.Join(t.TempDir(), "narration.mp3")
	apiErr := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	s := newTestSynthesizer(&fakeProvider{err: fmt.Errorf("OpenAI TTS API error: %w", apiErr)}, 0, nil)

	_, err := s.Synthesize(context.Background(), "short sentence", "en-US", out)
	if !pipeline.IsTransient(err) {
		t.Errorf("error %v should be transient", err)
	}
}

func TestSynthesizeEmptyOutputRejected(t *testing.T) {
	out := filepath.Join(t.TempDir(), "narration.mp3")
	s := newTestSynthesizer(&fakeProvider{data: nil}, time.Second, nil)

	_, err := s.Synthesize(context.Background(), "short sentence", "en-US", out)
	if err == nil {
		t.Fatal("expected error for empty narration file")
	}
}

func TestSynthesizeProbeFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "narration.mp3")
	s := newTestSynthesizer(&fakeProvider{data: []byte("mp3-bytes")}, 0, errors.New("ffprobe exploded"))

	_, err := s.Synthesize(context.Background(), "short sentence", "en-US", out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if pipeline.FailedStage(err) != pipeline.StageSynthesis {
		t.Errorf("stage = %q, want %q", pipeline.FailedStage(err), pipeline.StageSynthesis)
	}
}

func TestESpeakVoiceMapping(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"zh-CN", "zh"},
		{"en-US", "en"},
		{"bg-BG", "bg"},
		{"de", "de"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := espeakVoice(tt.locale); got != tt.want {
			t.Errorf("espeakVoice(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(&Config{Provider: "openai"}, ""); err == nil {
		t.Error("openai provider without key should fail")
	}
	if _, err := NewProvider(&Config{Provider: "sing-it-yourself"}, "k"); err == nil {
		t.Error("unknown provider should fail")
	}

	p, err := NewProvider(&Config{Provider: "openai", OpenAIModel: "tts-1", OpenAIVoice: "alloy", OpenAISpeed: 1}, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q, want openai", p.Name())
	}
}
