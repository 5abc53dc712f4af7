package redact

import (
	"strings"
	"testing"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		leaked   string
		contains string
	}{
		{
			name:     "bearer header",
			in:       "request failed: Authorization: Bearer eyJhbGciOi.abc.def",
			leaked:   "eyJhbGciOi",
			contains: "Bearer <redacted>",
		},
		{
			name:     "form encoded secret",
			in:       "grant_type=client_credentials&client_id=cid&client_secret=s3cr3t",
			leaked:   "s3cr3t",
			contains: "client_id=cid",
		},
		{
			name:     "json access token",
			in:       `{"access_token":"tok123","token_type":"bearer"}`,
			leaked:   "tok123",
			contains: "token_type",
		},
		{
			name:     "nothing to redact",
			in:       "  plain message  ",
			contains: "plain message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Secrets(tt.in)
			if tt.leaked != "" && strings.Contains(got, tt.leaked) {
				t.Errorf("Secrets() = %q, still contains %q", got, tt.leaked)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Secrets() = %q, want it to contain %q", got, tt.contains)
			}
		})
	}
}

func TestSecrets_Empty(t *testing.T) {
	if got := Secrets(""); got != "" {
		t.Errorf("Secrets(\"\") = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate() = %q", got)
	}
}
