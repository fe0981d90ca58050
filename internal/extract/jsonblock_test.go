package extract

import (
	"errors"
	"testing"
)

func TestLocateJSON(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{
			name:  "fenced",
			reply: "Result:\n```json\n{\"a\": 1}\n```\n",
			want:  `{"a": 1}`,
		},
		{
			name:  "fence wins over earlier object",
			reply: "Example {\"x\": 0}\n\n```JSON\n{\"a\": {\"b\": 2}}\n```",
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "stray brace before object",
			reply: "```go\nfunc f() {}\n```\n{\"a\": true}",
			want:  "{}",
		},
		{
			name:  "single-line fence after stray brace",
			reply: "Here is the result, with {placeholders} noted. ```json {\"metadata\": {\"title\": \"Fleet\"}, \"sections\": []} ```",
			want:  `{"metadata": {"title": "Fleet"}, "sections": []}`,
		},
		{
			name:  "single-line fence uppercase",
			reply: "{ ```JSON {\"a\": 1}```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare object",
			reply: "prefix {\"a\": [1, 2]} suffix }",
			want:  `{"a": [1, 2]}`,
		},
		{
			name:  "braces in strings",
			reply: `{"text": "use { and } freely", "q": "say \"}\""}`,
			want:  `{"text": "use { and } freely", "q": "say \"}\""}`,
		},
		{
			name:    "no object",
			reply:   "nothing here",
			wantErr: errNoObject,
		},
		{
			name:    "unbalanced",
			reply:   `{"a": {"b": 1}`,
			wantErr: errUnbalanced,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := locateJSON(tt.reply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v (%q)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if s, cut := truncateRunes("héllo", 10); cut || s != "héllo" {
		t.Errorf("unexpected truncation %q %v", s, cut)
	}
	if s, cut := truncateRunes("héllo", 2); !cut || s != "hé" {
		t.Errorf("expected \"hé\", got %q %v", s, cut)
	}
	if s, cut := truncateRunes("héllo", 5); cut || s != "héllo" {
		t.Errorf("exact length must not cut, got %q %v", s, cut)
	}
}

func TestFallbackNoChunks(t *testing.T) {
	if _, err := Fallback("rfp.pdf", nil); !errors.Is(err, ErrFallback) {
		t.Fatalf("expected ErrFallback, got %v", err)
	}
}
