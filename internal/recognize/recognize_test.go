package recognize

import (
	"testing"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLabel string
		wantFound bool
		wantErr   bool
	}{
		{
			name:      "single candidate",
			raw:       `[{"name": "bicycle", "score": 0.97}]`,
			wantLabel: "bicycle",
			wantFound: true,
		},
		{
			name:      "first candidate wins",
			raw:       `[{"name": "dog", "score": 0.91}, {"name": "ball", "score": 0.44}]`,
			wantLabel: "dog",
			wantFound: true,
		},
		{
			name:      "markdown fenced response",
			raw:       "```json\n[{\"name\": \"teapot\", \"score\": 0.88}]\n```",
			wantLabel: "teapot",
			wantFound: true,
		},
		{
			name:      "prose around the array",
			raw:       `Here are the objects: [{"name": "lamp", "score": 0.8}] Hope that helps!`,
			wantLabel: "lamp",
			wantFound: true,
		},
		{
			name:      "empty array",
			raw:       `[]`,
			wantLabel: "Unknown",
			wantFound: false,
		},
		{
			name:      "empty response",
			raw:       "",
			wantLabel: "Unknown",
			wantFound: false,
		},
		{
			name:      "whitespace response",
			raw:       "   \n\t ",
			wantLabel: "Unknown",
			wantFound: false,
		},
		{
			name:      "blank candidate names skipped",
			raw:       `[{"name": "  ", "score": 0.5}, {"name": "chair", "score": 0.4}]`,
			wantLabel: "chair",
			wantFound: true,
		},
		{
			name:      "all candidates blank",
			raw:       `[{"name": "", "score": 0.5}]`,
			wantLabel: "Unknown",
			wantFound: false,
		},
		{
			name:    "malformed json",
			raw:     `[{"name": "dog"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := parseCandidates(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if subject.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", subject.Label, tt.wantLabel)
			}
			if subject.Found != tt.wantFound {
				t.Errorf("Found = %v, want %v", subject.Found, tt.wantFound)
			}
		})
	}
}
