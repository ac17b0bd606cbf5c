package utils

import (
	"strings"
	"testing"
)

func TestGetGravatarURL(t *testing.T) {
	url := GetGravatarURL("Owner@Example.COM", 0)

	if !strings.HasPrefix(url, "https://www.gravatar.com/avatar/") {
		t.Fatalf("unexpected URL prefix: %s", url)
	}
	if !strings.Contains(url, "s=200") {
		t.Fatalf("expected default size 200, got %s", url)
	}
	if url != GetGravatarURL("  owner@example.com", 200) {
		t.Fatalf("expected hashing to normalize case and whitespace")
	}
}
