package idgen

import (
	"strings"
	"testing"
)

func TestNewULID(t *testing.T) {
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 500; i++ {
		id := NewULID(PrefixConversation)
		if !strings.HasPrefix(id, "conv_") {
			t.Fatalf("expected conv_ prefix, got %s", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		if prev != "" && id <= prev {
			t.Fatalf("ids not monotonic: %s after %s", id, prev)
		}
		seen[id] = struct{}{}
		prev = id
	}
}

func TestNewUUID(t *testing.T) {
	a := NewUUID(PrefixMessage)
	b := NewUUID(PrefixMessage)
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if !HasPrefix(a, PrefixMessage) {
		t.Errorf("expected msg_ prefix, got %s", a)
	}
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		value  string
		prefix string
		want   bool
	}{
		{"art_01hx", PrefixArtifact, true},
		{"art_", PrefixArtifact, false},
		{"conv_01hx", PrefixArtifact, false},
		{"", PrefixArtifact, false},
	}
	for _, tt := range tests {
		if got := HasPrefix(tt.value, tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.value, tt.prefix, got, tt.want)
		}
	}
}
