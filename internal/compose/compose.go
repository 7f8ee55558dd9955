package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wordreel/wordreel/internal/media"
	"github.com/wordreel/wordreel/internal/pipeline"
)

const (
	frameRate  = 24
	frameCount = 100
)

// Composer builds the final learning video from the source photo, the
// caption sentence, and the narration audio.
type Composer struct {
	fontPath string
}

// New creates a Composer. fontPath may be empty, in which case captions are
// rendered with the built-in bitmap face.
func New(fontPath string) *Composer {
	return &Composer{fontPath: fontPath}
}

// Compose renders the caption frame, encodes a silent clip from it, and
// muxes in the narration. The output duration equals the narration duration.
// Intermediate files live next to outputFile and are removed before
// returning. On failure a partial outputFile is removed as well.
func (c *Composer) Compose(ctx context.Context, backgroundPath, caption string, audio pipeline.AudioArtifact, outputFile string) (pipeline.VideoArtifact, error) {
	if audio.Duration <= 0 {
		return pipeline.VideoArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageComposition,
			Err:   fmt.Errorf("narration duration must be positive, got %v", audio.Duration),
		}
	}

	workDir := filepath.Dir(outputFile)
	framePath := filepath.Join(workDir, "frame.png")
	basePath := filepath.Join(workDir, "base.mp4")
	defer os.Remove(framePath)
	defer os.Remove(basePath)

	if err := RenderFrame(backgroundPath, caption, c.fontPath, framePath); err != nil {
		return pipeline.VideoArtifact{}, &pipeline.StageError{Stage: pipeline.StageComposition, Err: err}
	}

	// Silent base clip from the single frame.
	if err := media.RunFFmpeg(ctx,
		"-y",
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", frameRate),
		"-i", framePath,
		"-frames:v", fmt.Sprintf("%d", frameCount),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		basePath,
	); err != nil {
		return pipeline.VideoArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageComposition,
			Err:   fmt.Errorf("failed to encode base clip: %w", err),
		}
	}

	// Mux the narration, looping the clip and cutting at the narration end
	// so video and audio lengths match exactly.
	if err := media.RunFFmpeg(ctx,
		"-y",
		"-stream_loop", "-1",
		"-i", basePath,
		"-i", audio.Path,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-t", fmt.Sprintf("%.3f", audio.Duration.Seconds()),
		outputFile,
	); err != nil {
		os.Remove(outputFile)
		return pipeline.VideoArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageComposition,
			Err:   fmt.Errorf("failed to mux narration: %w", err),
		}
	}

	info, err := os.Stat(outputFile)
	if err != nil || info.Size() == 0 {
		os.Remove(outputFile)
		return pipeline.VideoArtifact{}, &pipeline.StageError{
			Stage: pipeline.StageComposition,
			Err:   fmt.Errorf("composed video missing or empty: %v", err),
		}
	}

	log.Info().
		Str("video", filepath.Base(outputFile)).
		Str("caption", truncateCaption(caption)).
		Dur("duration", audio.Duration).
		Int64("bytes", info.Size()).
		Msg("Video composed")

	return pipeline.VideoArtifact{
		Path:     outputFile,
		Width:    FrameWidth,
		Height:   FrameHeight,
		Duration: audio.Duration,
	}, nil
}

func truncateCaption(caption string) string {
	if len(caption) <= 60 {
		return caption
	}
	return strings.TrimSpace(caption[:60]) + "..."
}
