package request

import "testing"

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"api.tavily.com", "tavily"},
		{"tavily.com", "tavily"},
		{"generativelanguage.googleapis.com", "gemini"},
		{"aiplatform.googleapis.com", "gemini"},
		{"other.com", "other.com"},
	}

	for _, tt := range tests {
		got := normalizeProvider(tt.host)
		if got != tt.expected {
			t.Errorf("normalizeProvider(%q) = %q; want %q", tt.host, got, tt.expected)
		}
	}
}
