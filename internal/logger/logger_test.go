package logger

import "testing"

func TestRedactMasksSensitiveKeys(t *testing.T) {
	out := redact([]interface{}{"email", "a@b.c", "password", "hunter2", "accessToken", "abc", "dangling"})
	if len(out) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(out))
	}
	if out[1] != "a@b.c" {
		t.Fatalf("expected email untouched, got %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Fatalf("expected password and token redacted, got %v %v", out[3], out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("expected trailing key kept, got %v", out[6])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", ""} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		log.With("component", "test").Debug("ok")
	}
}
