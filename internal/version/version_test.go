package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestShort_UsesLinkedVersion(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.3"
	if got := Short(); got != "v1.2.3" {
		t.Errorf("Short() = %q, want %q", got, "v1.2.3")
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, "hakagen ") {
		t.Errorf("Info() = %q, want hakagen prefix", info)
	}
	if !strings.Contains(info, runtime.Version()) {
		t.Errorf("Info() = %q, missing go version", info)
	}
}

func TestMap(t *testing.T) {
	m := Map()
	for _, key := range []string{"version", "git_commit", "build_date", "go_version"} {
		if m[key] == "" {
			t.Errorf("Map()[%q] is empty", key)
		}
	}
}
