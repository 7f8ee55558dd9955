// Package artifact manages the temporary files one pipeline run creates:
// the uploaded image copy, the synthesized audio, and the rendered video.
// Every workspace is keyed by request ID so concurrent runs can never
// touch each other's files.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Store creates per-request workspaces under a common root directory.
type Store struct {
	root string
}

// NewStore prepares the artifact root. The directory is created if missing.
func NewStore(root string) (*Store, error) {
	dir := filepath.Join(root, "wordreel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the artifact root directory.
func (s *Store) Root() string {
	return s.root
}

// NewWorkspace creates the directory for one request's artifacts.
func (s *Store) NewWorkspace(requestID string) (*Workspace, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request ID is required")
	}
	dir := filepath.Join(s.root, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir, requestID: requestID}, nil
}

// Workspace holds the artifact paths for a single pipeline run. All paths
// live inside one request-scoped directory removed by Cleanup.
type Workspace struct {
	dir       string
	requestID string
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// ImagePath returns the path for the uploaded image copy. ext includes the
// leading dot, e.g. ".jpg".
func (w *Workspace) ImagePath(ext string) string {
	return filepath.Join(w.dir, "source"+ext)
}

// AudioPath returns the path for the synthesized narration audio.
func (w *Workspace) AudioPath() string {
	return filepath.Join(w.dir, "narration.mp3")
}

// VideoPath returns the path for the final rendered video.
func (w *Workspace) VideoPath() string {
	return filepath.Join(w.dir, "learning.mp4")
}

// SaveImage writes the upload bytes into the workspace and returns the path.
func (w *Workspace) SaveImage(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data is empty")
	}
	path := w.ImagePath(ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image copy: %w", err)
	}
	return path, nil
}

// Cleanup removes the workspace and everything in it. Failures are logged
// and swallowed: cleanup problems must never become a request's result.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Warn().Err(err).
			Str("request_id", w.requestID).
			Str("dir", w.dir).
			Msg("Failed to remove artifact workspace")
		return
	}
	log.Debug().
		Str("request_id", w.requestID).
		Str("dir", w.dir).
		Msg("Artifact workspace removed")
}
