package synth

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI speech API.
type OpenAIProvider struct {
	client *openai.Client
	config *Config
}

// NewOpenAIProvider creates an OpenAI TTS provider.
func NewOpenAIProvider(config *Config, apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		config: config,
	}
}

// GenerateAudio synthesizes text as MP3 narration in outputFile. The locale
// is passed to the model as a speaking instruction so accented languages are
// pronounced natively rather than read as English.
func (p *OpenAIProvider) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.OpenAIModel),
		Input:          text,
		Voice:          openai.SpeechVoice(p.config.OpenAIVoice),
		Speed:          p.config.OpenAISpeed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	// Voice instructions are only honored by the gpt-4o-mini-tts family.
	if p.config.OpenAIModel == "gpt-4o-mini-tts" {
		req.Instructions = fmt.Sprintf(
			"Speak the text in the language of locale %s with native pronunciation. "+
				"Speak slowly and clearly for language learners.", locale)
	}

	log.Debug().
		Str("model", p.config.OpenAIModel).
		Str("voice", p.config.OpenAIVoice).
		Str("locale", locale).
		Msg("Requesting speech synthesis from OpenAI")

	response, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		return fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, response)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("no audio data received from OpenAI")
	}

	return nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) IsAvailable() error {
	// A live check would spend credits. Having a client is enough here.
	if p.client == nil {
		return fmt.Errorf("OpenAI client not configured")
	}
	return nil
}
