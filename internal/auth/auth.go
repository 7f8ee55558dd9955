// Package auth resolves credentials for the external services the pipeline
// depends on. Keys are never logged.
package auth

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// GeminiAPIKey retrieves the Gemini API key.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. gemini.api_key in the config file
func GeminiAPIKey() (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using Gemini API key from environment variable")
		return key, nil
	}
	if key := viper.GetString("gemini.api_key"); key != "" {
		log.Debug().Msg("Using Gemini API key from config file")
		return key, nil
	}
	return "", fmt.Errorf("Gemini API key not found. Set GEMINI_API_KEY or gemini.api_key in the config file")
}

// OpenAIAPIKey retrieves the OpenAI API key used for narration and speech.
// Priority order:
//  1. OPENAI_API_KEY environment variable
//  2. openai.api_key in the config file
func OpenAIAPIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		log.Debug().Msg("Using OpenAI API key from environment variable")
		return key, nil
	}
	if key := viper.GetString("openai.api_key"); key != "" {
		log.Debug().Msg("Using OpenAI API key from config file")
		return key, nil
	}
	return "", fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY or openai.api_key in the config file")
}
