package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wordreel/wordreel/internal/config"
	"github.com/wordreel/wordreel/internal/media"
	"github.com/wordreel/wordreel/internal/pipeline"
)

// allowedExtensions are the upload formats the composer can decode.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

const invalidFormatMessage = "Invalid image format. Only jpg, jpeg, and png are allowed."

// Runner is the part of the pipeline coordinator the handlers use. Tests
// substitute a stub.
type Runner interface {
	Run(ctx context.Context, req *pipeline.GenerationRequest) (pipeline.Result, error)
}

type server struct {
	runner         Runner
	maxUploadBytes int64
	requestTimeout time.Duration
	defaultLang    string
}

func newServer(runner Runner, cfg *config.Config) *server {
	return &server{
		runner:         runner,
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
		defaultLang:    config.DefaultLanguage,
	}
}

// handleGenerate accepts a multipart photo upload and responds with the
// public URL of the generated learning video.
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	imageName := filepath.Base(header.Filename)
	if imageName == "" || imageName == "." || containsPathTraversal(header.Filename) {
		httpError(w, http.StatusBadRequest, "invalid image filename")
		return
	}
	ext := strings.ToLower(filepath.Ext(imageName))
	if !allowedExtensions[ext] {
		httpError(w, http.StatusBadRequest, invalidFormatMessage)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read image upload")
		return
	}
	if len(data) == 0 {
		httpError(w, http.StatusBadRequest, "image upload is empty")
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = s.defaultLang
	}

	req := &pipeline.GenerationRequest{
		ID:        uuid.NewString(),
		Image:     data,
		ImageName: imageName,
		Language:  language,
	}

	logUploadMetadata(req.ID, data)

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		log.Error().Err(err).
			Str("request_id", req.ID).
			Str("stage", string(pipeline.FailedStage(err))).
			Msg("Generation failed")
		httpError(w, http.StatusInternalServerError, errorMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"videoPath": result.VideoURL})
}

// handleHealthz reports liveness and the availability of the local encoding
// tools. A missing tool degrades the status but still answers 200 so load
// balancers can tell "up but impaired" from "down".
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ffmpegOK := media.CheckFFmpegAvailable() == nil
	ffprobeOK := media.CheckFFprobeAvailable() == nil

	status := "ok"
	if !ffmpegOK || !ffprobeOK {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"ffmpeg":  ffmpegOK,
		"ffprobe": ffprobeOK,
	})
}

// logUploadMetadata logs camera EXIF data when the upload carries any. This
// is best effort only; uploads without metadata are common.
func logUploadMetadata(requestID string, data []byte) {
	meta, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Str("request_id", requestID).Msg("Upload has no readable EXIF metadata")
		return
	}
	log.Debug().
		Str("request_id", requestID).
		Str("make", meta.Make).
		Str("model", meta.Model).
		Time("taken", meta.DateTimeOriginal()).
		Msg("Upload EXIF metadata")
}

// errorMessage maps a pipeline failure to the client-facing message. The
// detailed cause stays in the logs.
func errorMessage(err error) string {
	if errors.Is(err, pipeline.ErrEmptyResponse) {
		return "The narrative service returned an empty response"
	}
	if errors.Is(err, pipeline.ErrCancelled) {
		return "Request timed out before the video was ready"
	}

	switch pipeline.FailedStage(err) {
	case pipeline.StageRecognition:
		return "Failed to recognize the image subject"
	case pipeline.StageNarrative:
		return "Failed to generate the example sentence"
	case pipeline.StageSynthesis:
		return "Failed to synthesize the narration audio"
	case pipeline.StageComposition:
		return "Failed to compose the video"
	case pipeline.StagePublication:
		return "Failed to publish the video"
	default:
		return "Video generation failed"
	}
}
