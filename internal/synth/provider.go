// Package synth turns a narrative sentence into a narration audio file using
// a pluggable text-to-speech provider.
package synth

import (
	"context"
	"fmt"
)

// Provider is a text-to-speech backend. Implementations write the narration
// for text, spoken in the given BCP 47 locale, to outputFile.
type Provider interface {
	GenerateAudio(ctx context.Context, text, locale, outputFile string) error

	// Name returns the provider name.
	Name() string

	// IsAvailable checks if the provider is properly configured and available.
	IsAvailable() error
}

// Config holds common configuration for speech providers.
type Config struct {
	Provider string // "openai" or "espeak"

	// OpenAI-specific settings
	OpenAIModel string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAIVoice string  // "alloy", "echo", "nova", ...
	OpenAISpeed float64 // 0.25 to 4.0
}

// DefaultProviderConfig returns the default speech configuration.
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:    "openai",
		OpenAIModel: "gpt-4o-mini-tts",
		OpenAIVoice: "alloy",
		OpenAISpeed: 1.0,
	}
}

// NewProvider creates the speech provider named by config.Provider.
func NewProvider(config *Config, openAIKey string) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	switch config.Provider {
	case "openai":
		if openAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required for the openai speech provider")
		}
		return NewOpenAIProvider(config, openAIKey), nil

	case "espeak":
		return NewESpeakProvider(), nil

	default:
		return nil, fmt.Errorf("unknown speech provider: %s", config.Provider)
	}
}
