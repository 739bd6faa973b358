package services

import (
	"strings"
	"testing"
)

func TestRenderOutreachHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantContain string
		wantAbsent  string
	}{
		{
			name:        "plain text passes through",
			body:        "Hello from Ariyana Convention Centre",
			wantContain: "Hello from Ariyana Convention Centre",
		},
		{
			name:        "markup in the body is escaped",
			body:        `<script>alert("x")</script>`,
			wantContain: "&lt;script&gt;",
			wantAbsent:  "<script>",
		},
		{
			name:        "ampersands and quotes are escaped",
			body:        `Meet & Greet "2026"`,
			wantContain: "Meet &amp; Greet &#34;2026&#34;",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := renderOutreachHTML(tt.body)
			if !strings.HasPrefix(got, "<div ") || !strings.HasSuffix(got, "</div>") {
				t.Fatalf("renderOutreachHTML() not wrapped in div: %q", got)
			}
			if !strings.Contains(got, tt.wantContain) {
				t.Errorf("renderOutreachHTML() = %q, want it to contain %q", got, tt.wantContain)
			}
			if tt.wantAbsent != "" && strings.Contains(got, tt.wantAbsent) {
				t.Errorf("renderOutreachHTML() = %q, must not contain %q", got, tt.wantAbsent)
			}
		})
	}
}

func TestExtractMessageID(t *testing.T) {
	t.Parallel()

	if got := extractMessageID(map[string][]string{"X-Message-Id": {"abc123"}}); got != "abc123" {
		t.Errorf("extractMessageID() = %q, want %q", got, "abc123")
	}
	if got := extractMessageID(map[string][]string{"Content-Type": {"text/plain"}}); got != "" {
		t.Errorf("extractMessageID() = %q, want empty", got)
	}
}
