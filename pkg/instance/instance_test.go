package instance

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/env"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv(env.Prefix+"_"+instanceIDKey, "api-7")
	t.Setenv(instanceIDKey, "pod-3")
	if got := ID(); got != "api-7" {
		t.Fatalf("expected prefixed instance id, got %q", got)
	}

	t.Setenv(env.Prefix+"_"+instanceIDKey, "")
	if got := ID(); got != "pod-3" {
		t.Fatalf("expected bare instance id, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv(env.Prefix+"_"+instanceIDKey, "")
	t.Setenv(instanceIDKey, "")
	if got := ID(); got == "" {
		t.Fatal("expected a non-empty fallback id")
	}
}
