package environment_test

import (
	"testing"
	"time"

	"github.com/companion-labs/companion/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("COMPANION_TEST_STR", "hello")

	if got := environment.StringOr("COMPANION_TEST_STR", "fallback"); got != "hello" {
		t.Errorf("set variable: got %q, want %q", got, "hello")
	}
	if got := environment.StringOr("COMPANION_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("unset variable: got %q, want %q", got, "fallback")
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("COMPANION_TEST_REQ", "value")

	v, err := environment.RequiredString("COMPANION_TEST_REQ")
	if err != nil {
		t.Fatalf("RequiredString on set variable: %v", err)
	}
	if v != "value" {
		t.Errorf("got %q, want %q", v, "value")
	}

	if _, err := environment.RequiredString("COMPANION_TEST_REQ_UNSET"); err == nil {
		t.Error("RequiredString on unset variable: expected error, got nil")
	}
}

func TestIntOr(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback int
		want     int
	}{
		{"valid", "42", 7, 42},
		{"empty", "", 7, 7},
		{"garbage", "not-a-number", 7, 7},
		{"negative", "-3", 7, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COMPANION_TEST_INT", tt.value)
			if got := environment.IntOr("COMPANION_TEST_INT", tt.fallback); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFloat64Or(t *testing.T) {
	t.Setenv("COMPANION_TEST_FLOAT", "0.7")

	if got := environment.Float64Or("COMPANION_TEST_FLOAT", 1.0); got != 0.7 {
		t.Errorf("got %v, want 0.7", got)
	}

	t.Setenv("COMPANION_TEST_FLOAT", "warm")
	if got := environment.Float64Or("COMPANION_TEST_FLOAT", 1.0); got != 1.0 {
		t.Errorf("unparseable value: got %v, want fallback 1.0", got)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("COMPANION_TEST_DUR", "1500ms")

	if got := environment.DurationOr("COMPANION_TEST_DUR", time.Second); got != 1500*time.Millisecond {
		t.Errorf("got %v, want 1.5s", got)
	}

	t.Setenv("COMPANION_TEST_DUR", "soon")
	if got := environment.DurationOr("COMPANION_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("unparseable value: got %v, want fallback 1s", got)
	}
}
