package schema

import (
	"errors"
	"testing"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		model    string
	}{
		{"gpt-4o-mini", "gpt", "4o-mini"},
		{"google-gemini-2.0-flash", "google", "gemini-2.0-flash"},
		{"ollama-llama3.1", "ollama", "llama3.1"},
		{"ollama-llama3.1-8b", "ollama", "llama3.1-8b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := ParseModelID(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id.Provider != tt.provider || id.Model != tt.model {
				t.Errorf("got %+v, want provider=%q model=%q", id, tt.provider, tt.model)
			}
			if id.String() != tt.in {
				t.Errorf("String() = %q, want %q", id.String(), tt.in)
			}
		})
	}
}

func TestParseModelID_Unknown(t *testing.T) {
	for _, in := range []string{"unknown-x", "claude-3-sonnet", "gpt", ""} {
		if _, err := ParseModelID(in); !errors.Is(err, ErrUnknownAgent) {
			t.Errorf("ParseModelID(%q) err = %v, want ErrUnknownAgent", in, err)
		}
	}
}
