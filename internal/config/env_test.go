package config

import (
	"testing"
	"time"
)

func TestBoolEnvOrDefault(t *testing.T) {
	t.Setenv("BOOL_TEST", "")
	if got := boolEnvOrDefault("BOOL_TEST", true); !got {
		t.Fatalf("expected default true when unset")
	}

	cases := []struct {
		val      string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"no", false},
		{"maybe", true}, // falls back to default on unknown
	}

	for _, tc := range cases {
		t.Setenv("BOOL_TEST", tc.val)
		if got := boolEnvOrDefault("BOOL_TEST", true); got != tc.expected {
			t.Fatalf("expected %v for %s, got %v", tc.expected, tc.val, got)
		}
	}
}

func TestDurationEnvOrDefault(t *testing.T) {
	cases := map[string]time.Duration{
		"":       time.Second,
		"250ms":  250 * time.Millisecond,
		"-1s":    time.Second,
		"0s":     time.Second,
		"sooner": time.Second,
	}
	for raw, want := range cases {
		t.Setenv("DURATION_TEST", raw)
		if got := durationEnvOrDefault("DURATION_TEST", time.Second); got != want {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}
}

func TestListEnvOrDefault(t *testing.T) {
	t.Setenv("LIST_TEST", "")
	if got := listEnvOrDefault("LIST_TEST", "a, b"); len(got) != 2 || got[1] != "b" {
		t.Fatalf("expected default list, got %v", got)
	}

	t.Setenv("LIST_TEST", " http://a.example , ,http://b.example,")
	got := listEnvOrDefault("LIST_TEST", "")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("expected trimmed non-empty entries, got %v", got)
	}
}
