// Command wordreel-server runs the HTTP service that turns an uploaded photo
// into a short vocabulary learning video.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/wordreel/wordreel/internal/artifact"
	"github.com/wordreel/wordreel/internal/auth"
	"github.com/wordreel/wordreel/internal/compose"
	"github.com/wordreel/wordreel/internal/config"
	"github.com/wordreel/wordreel/internal/logging"
	"github.com/wordreel/wordreel/internal/media"
	"github.com/wordreel/wordreel/internal/narrate"
	"github.com/wordreel/wordreel/internal/pipeline"
	"github.com/wordreel/wordreel/internal/publish"
	"github.com/wordreel/wordreel/internal/recognize"
	"github.com/wordreel/wordreel/internal/synth"
)

// CLI flags
var (
	cfgFile  string
	portFlag int
)

var rootCmd = &cobra.Command{
	Use:   "wordreel-server",
	Short: "HTTP service that turns photos into vocabulary learning videos",
	Long: `WordReel accepts a photo upload, recognizes its subject, writes a short
example sentence in the target language, narrates it, and publishes a
captioned video of the result.

Examples:
  wordreel-server
  wordreel-server --port 9000
  wordreel-server --config ./wordreel.yaml`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.wordreel.yaml)")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	config.Init(cfgFile)
	cfg := config.Load()
	if portFlag != 0 {
		cfg.Port = portFlag
	}

	if err := media.CheckFFmpegAvailable(); err != nil {
		log.Fatal().Err(err).Msg("ffmpeg is required")
	}
	if err := media.CheckFFprobeAvailable(); err != nil {
		log.Fatal().Err(err).Msg("ffprobe is required")
	}

	ctx := context.Background()
	coordinator, err := buildCoordinator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	server := newServer(coordinator, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/generate", server.handleGenerate)
	mux.HandleFunc("/healthz", server.handleHealthz)

	handler := gzhttp.GzipHandler(withLogging(withCORS(mux)))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("wordreel-server").
		Config("port", strconv.Itoa(cfg.Port)).
		Config("bucket", cfg.Bucket).
		Config("region", cfg.Region).
		Config("recognition_model", cfg.GeminiModel).
		Config("narrative_model", cfg.NarrativeModel).
		Config("tts_provider", cfg.TTSProvider).
		Feature("ffmpeg", media.CheckFFmpegAvailable() == nil).
		Feature("ffprobe", media.CheckFFprobeAvailable() == nil).
		Log()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// buildCoordinator constructs the five stage clients and wires them into the
// pipeline coordinator.
func buildCoordinator(ctx context.Context, cfg *config.Config) (*pipeline.Coordinator, error) {
	geminiKey, err := auth.GeminiAPIKey()
	if err != nil {
		return nil, fmt.Errorf("gemini credentials: %w", err)
	}
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	openAIKey, err := auth.OpenAIAPIKey()
	if err != nil {
		return nil, fmt.Errorf("openai credentials: %w", err)
	}

	provider, err := synth.NewProvider(&synth.Config{
		Provider:    cfg.TTSProvider,
		OpenAIModel: cfg.TTSModel,
		OpenAIVoice: cfg.TTSVoice,
		OpenAISpeed: cfg.TTSSpeed,
	}, openAIKey)
	if err != nil {
		return nil, fmt.Errorf("speech provider: %w", err)
	}
	if err := provider.IsAvailable(); err != nil {
		return nil, fmt.Errorf("speech provider unavailable: %w", err)
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	store, err := artifact.NewStore(cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	return pipeline.NewCoordinator(
		recognize.New(geminiClient, cfg.GeminiModel),
		narrate.New(openai.NewClient(openAIKey), cfg.NarrativeModel),
		synth.New(provider),
		compose.New(cfg.FontPath),
		publish.New(s3Client, cfg.Bucket, cfg.Region, cfg.URLBase),
		store,
		pipeline.Options{
			Locales:         cfg.Locales,
			DefaultLanguage: config.DefaultLanguage,
			StageTimeout:    cfg.StageTimeout,
			ComposeTimeout:  cfg.ComposeTimeout,
			RetryAttempts:   cfg.RetryAttempts,
			RetryBaseDelay:  cfg.RetryBaseDelay,
		},
	), nil
}
