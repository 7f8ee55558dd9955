package synth

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wordreel/wordreel/internal/media"
)

// ESpeakProvider implements Provider using the local espeak-ng engine. It
// needs no API key, which makes it useful for offline and test deployments.
type ESpeakProvider struct {
	speed int // words per minute
}

// NewESpeakProvider creates an espeak-ng provider with a speed tuned for
// language learners.
func NewESpeakProvider() *ESpeakProvider {
	return &ESpeakProvider{speed: 140}
}

// GenerateAudio renders text with espeak-ng as WAV and converts it to MP3
// with ffmpeg, since espeak-ng cannot emit MP3 directly.
func (p *ESpeakProvider) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	wavFile := strings.TrimSuffix(outputFile, ".mp3") + ".wav"

	args := []string{
		"-v", espeakVoice(locale),
		"-s", fmt.Sprintf("%d", p.speed),
		"-w", wavFile,
		text,
	}
	cmd := exec.CommandContext(ctx, "espeak-ng", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak-ng failed: %w\nOutput: %s", err, string(output))
	}

	if err := media.RunFFmpeg(ctx, "-y", "-i", wavFile, "-codec:a", "libmp3lame", "-qscale:a", "4", outputFile); err != nil {
		return fmt.Errorf("failed to convert espeak output to mp3: %w", err)
	}

	log.Debug().Str("voice", espeakVoice(locale)).Str("file", outputFile).Msg("espeak narration generated")
	return nil
}

func (p *ESpeakProvider) Name() string {
	return "espeak-ng"
}

// IsAvailable checks that both espeak-ng and ffmpeg are installed.
func (p *ESpeakProvider) IsAvailable() error {
	if _, err := exec.LookPath("espeak-ng"); err != nil {
		return fmt.Errorf("espeak-ng not found in PATH: %w", err)
	}
	return media.CheckFFmpegAvailable()
}

// espeakVoice maps a BCP 47 locale to an espeak-ng voice code. espeak uses
// bare language subtags ("zh", "bg"), so the region is dropped.
func espeakVoice(locale string) string {
	lang, _, found := strings.Cut(locale, "-")
	if !found {
		lang = locale
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en"
	}
	return lang
}
