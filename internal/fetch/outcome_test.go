package fetch

import (
	"testing"
	"time"
)

func TestOutcomeDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want string
	}{
		{"success", Outcome{URL: "https://a", Kind: Success, Text: "x"}, ""},
		{"timeout", Outcome{URL: "https://a", Kind: Timeout, Reason: ReasonTimedOut, Limit: 10 * time.Second},
			"⚠️ Request timed out for https://a after 10 seconds ⏳"},
		{"empty body", Outcome{URL: "https://a", Kind: NetworkError, Reason: ReasonNoBody},
			"⚠️ Could not download content from https://a 🚫"},
		{"extraction", Outcome{URL: "https://a", Kind: ExtractionError, Reason: ReasonNoText},
			"⚠️ Could not extract text from https://a 🚫"},
		{"other", Outcome{URL: "https://a", Kind: NetworkError, Reason: "HTTP 404"},
			"⚠️ Error fetching content from https://a: HTTP 404"},
	}
	for _, tt := range tests {
		if got := tt.out.Diagnostic(); got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
