package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Port)
	}
	if cfg.TTSProvider != "openai" {
		t.Errorf("expected default TTS provider openai, got %s", cfg.TTSProvider)
	}
	if cfg.TTSVoice != "alloy" {
		t.Errorf("expected default voice alloy, got %s", cfg.TTSVoice)
	}
	if cfg.RetryAttempts != 2 {
		t.Errorf("expected 2 retry attempts, got %d", cfg.RetryAttempts)
	}
	if cfg.RequestTimeout != 10*time.Minute {
		t.Errorf("expected 10m request timeout, got %v", cfg.RequestTimeout)
	}
}

func TestLocale_KnownLanguages(t *testing.T) {
	viper.Reset()
	cfg := Load()

	tests := []struct {
		language string
		locale   string
	}{
		{"Mandarin", "zh-CN"},
		{"English", "en-US"},
		{"Bulgarian", "bg-BG"},
		{"Japanese", "ja-JP"},
	}

	for _, tt := range tests {
		if got := cfg.Locale(tt.language); got != tt.locale {
			t.Errorf("Locale(%q) = %q, want %q", tt.language, got, tt.locale)
		}
	}
}

func TestLocale_UnknownFallsBackToDefault(t *testing.T) {
	viper.Reset()
	cfg := Load()

	if got := cfg.Locale("Klingon"); got != "zh-CN" {
		t.Errorf("expected fallback to the default language locale zh-CN, got %q", got)
	}
}

func TestLoad_ConfigFileOverridesLocaleTable(t *testing.T) {
	viper.Reset()
	viper.Set("languages", map[string]string{"mandarin": "cmn-Hans-CN"})
	defer viper.Reset()

	cfg := Load()
	if got := cfg.Locale("Mandarin"); got != "cmn-Hans-CN" {
		t.Errorf("expected config override cmn-Hans-CN, got %q", got)
	}
}
