// Package config loads server configuration from flags, a config file, and
// environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultLanguage is used when a request does not name a target language.
const DefaultLanguage = "Mandarin"

// defaultLocales maps target language names to speech synthesis locales.
// The table is overridable via the languages section of the config file.
var defaultLocales = map[string]string{
	"Mandarin":  "zh-CN",
	"English":   "en-US",
	"Spanish":   "es-ES",
	"French":    "fr-FR",
	"German":    "de-DE",
	"Japanese":  "ja-JP",
	"Bulgarian": "bg-BG",
}

// Config holds all server configuration after flag/file/env resolution.
type Config struct {
	Port    int
	WorkDir string // root directory for per-request artifact workspaces

	// Publication
	Bucket  string
	Region  string
	URLBase string // optional override for the public URL prefix (e.g. a CDN)

	// Models
	GeminiModel    string // recognition
	NarrativeModel string // sentence generation
	TTSProvider    string // "openai" or "espeak"
	TTSModel       string
	TTSVoice       string
	TTSSpeed       float64

	// Composition
	FontPath string

	// Limits and resilience
	MaxUploadBytes int64
	RequestTimeout time.Duration
	StageTimeout   time.Duration
	ComposeTimeout time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration

	// Language table
	Locales map[string]string
}

// Init initializes viper: config file discovery plus WORDREEL_* env overrides.
// Call once at startup before Load.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wordreel")
	}

	viper.SetEnvPrefix("WORDREEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// Load resolves the full configuration, applying defaults for anything the
// config file and environment leave unset.
func Load() *Config {
	setDefaults()

	cfg := &Config{
		Port:           viper.GetInt("server.port"),
		WorkDir:        viper.GetString("server.work_dir"),
		Bucket:         viper.GetString("storage.bucket"),
		Region:         viper.GetString("storage.region"),
		URLBase:        viper.GetString("storage.url_base"),
		GeminiModel:    viper.GetString("recognition.model"),
		NarrativeModel: viper.GetString("narrative.model"),
		TTSProvider:    viper.GetString("audio.provider"),
		TTSModel:       viper.GetString("audio.model"),
		TTSVoice:       viper.GetString("audio.voice"),
		TTSSpeed:       viper.GetFloat64("audio.speed"),
		FontPath:       viper.GetString("video.font"),
		MaxUploadBytes: viper.GetInt64("server.max_upload_bytes"),
		RequestTimeout: viper.GetDuration("server.request_timeout"),
		StageTimeout:   viper.GetDuration("pipeline.stage_timeout"),
		ComposeTimeout: viper.GetDuration("pipeline.compose_timeout"),
		RetryAttempts:  viper.GetInt("pipeline.retry_attempts"),
		RetryBaseDelay: viper.GetDuration("pipeline.retry_base_delay"),
		Locales:        make(map[string]string, len(defaultLocales)),
	}

	for lang, locale := range defaultLocales {
		cfg.Locales[lang] = locale
	}
	for lang, locale := range viper.GetStringMapString("languages") {
		// Viper lowercases map keys; restore title case for lookup consistency.
		cfg.Locales[titleCase(lang)] = locale
	}

	return cfg
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.work_dir", os.TempDir())
	viper.SetDefault("server.max_upload_bytes", int64(16<<20))
	viper.SetDefault("server.request_timeout", 10*time.Minute)
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("recognition.model", "gemini-2.5-flash")
	viper.SetDefault("narrative.model", "gpt-4o-mini")
	viper.SetDefault("audio.provider", "openai")
	viper.SetDefault("audio.model", "gpt-4o-mini-tts")
	viper.SetDefault("audio.voice", "alloy")
	viper.SetDefault("audio.speed", 1.0)
	viper.SetDefault("video.font", "font.otf")
	viper.SetDefault("pipeline.stage_timeout", 90*time.Second)
	viper.SetDefault("pipeline.compose_timeout", 5*time.Minute)
	viper.SetDefault("pipeline.retry_attempts", 2)
	viper.SetDefault("pipeline.retry_base_delay", time.Second)
}

// Locale returns the speech locale for a target language name, falling back
// to the default language's locale for names outside the table. The fallback
// is a degraded path, not an error: narration still happens in the requested
// language, only the voice locale hint loses precision.
func (c *Config) Locale(language string) string {
	if locale, ok := c.Locales[language]; ok {
		return locale
	}
	log.Warn().Str("language", language).Msg("No locale mapping for language, using default")
	return c.Locales[DefaultLanguage]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
