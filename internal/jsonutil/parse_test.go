package jsonutil

import "testing"

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"leading whitespace", "  ```json\n{}\n```  ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}

	got, err := ParseJSON[[]item]("Sure! ```json\n[{\"name\": \"cat\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "cat" {
		t.Errorf("got %+v, want one item named cat", got)
	}

	if _, err := ParseJSON[[]item]("no json here at all"); err == nil {
		t.Error("expected error for response without JSON")
	}
}
