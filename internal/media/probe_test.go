package media

import (
	"encoding/json"
	"testing"
)

func TestProbeOutputParsing(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		duration string
	}{
		{
			name:     "typical output",
			raw:      `{"format": {"filename": "narration.mp3", "duration": "4.175000", "format_name": "mp3"}}`,
			duration: "4.175000",
		},
		{
			name:     "missing duration",
			raw:      `{"format": {"filename": "narration.mp3", "format_name": "mp3"}}`,
			duration: "",
		},
		{
			name:     "empty format",
			raw:      `{"format": {}}`,
			duration: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var probe probeOutput
			if err := json.Unmarshal([]byte(tt.raw), &probe); err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if probe.Format.Duration != tt.duration {
				t.Errorf("duration = %q, want %q", probe.Format.Duration, tt.duration)
			}
		})
	}
}
