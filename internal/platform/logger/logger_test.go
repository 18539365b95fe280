package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"authorization", "Bearer abc",
		"api_key", "sk-123",
		"total_tokens", 42,
		"sub", "user-1",
		"path", "docs/a.md",
	})
	if got[1] != "[REDACTED]" || got[3] != "[REDACTED]" {
		t.Fatalf("secrets not redacted: %v", got)
	}
	if got[5] != 42 {
		t.Fatalf("total_tokens should pass through: got=%v", got[5])
	}
	if s, _ := got[7].(string); len(s) != len("hash:")+12 {
		t.Fatalf("sub should be hashed: got=%v", got[7])
	}
	if got[9] != "docs/a.md" {
		t.Fatalf("path should pass through: got=%v", got[9])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"k", "v", "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Fatalf("unexpected: %v", got)
	}
}
