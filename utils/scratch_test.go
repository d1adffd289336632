package utils

import (
	"strings"
	"testing"
)

func TestScratchNameShape(t *testing.T) {
	name := ScratchName("wm-src", ".mp4")
	if !strings.HasPrefix(name, "wm-src_") {
		t.Errorf("name %q missing prefix", name)
	}
	if !strings.HasSuffix(name, ".mp4") {
		t.Errorf("name %q missing extension", name)
	}
}

func TestScratchNameUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name := ScratchName("job", ".png")
		if seen[name] {
			t.Fatalf("duplicate scratch name %q", name)
		}
		seen[name] = true
	}
}
