// Package media wraps the ffmpeg tool family for the encoding and probing
// the pipeline cannot do in pure Go.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CheckFFmpegAvailable checks if ffmpeg is available in the system PATH.
// Called at startup to validate video composition capability.
func CheckFFmpegAvailable() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: video composition is unavailable. Install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffmpeg found")
	return nil
}

// CheckFFprobeAvailable checks if ffprobe is available in the system PATH.
// Called at startup to validate audio/video duration probing capability.
func CheckFFprobeAvailable() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH: media duration probing is unavailable. Install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffprobe found")
	return nil
}

// probeOutput mirrors the subset of ffprobe's JSON output the pipeline reads.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the duration of an audio or video file by asking
// ffprobe for the container format metadata.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return 0, fmt.Errorf("ffprobe failed: %w: %s", err, string(exitErr.Stderr))
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", path)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration %q: %w", probe.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %.3fs for %s", seconds, path)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// RunFFmpeg executes ffmpeg with the given arguments, honoring ctx for
// cancellation. Combined output is returned in the error on failure.
func RunFFmpeg(ctx context.Context, args ...string) error {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	log.Debug().Strs("args", args).Msg("Running ffmpeg")

	start := time.Now()
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("ffmpeg complete")
	return nil
}
