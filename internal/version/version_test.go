package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestGetUsesOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Get(1)
	if info.Version != "1.2.3" || info.GitCommit != "abc123def456" || info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Fatalf("expected ldflags values, got %+v", info)
	}
	if info.Schema != 1 || !strings.HasPrefix(info.GoVersion, "go") {
		t.Fatalf("unexpected schema or go version in %+v", info)
	}
}

func TestColored(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	cases := []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "dev", "1.2"}
	for _, v := range cases {
		if got := Colored(v); got != v {
			t.Fatalf("expected %q without colour, got %q", v, got)
		}
	}

	color.NoColor = false
	if got := Colored("1.2.3-dev"); got == "1.2.3-dev" || !strings.HasSuffix(got, "-dev") {
		t.Fatalf("expected coloured parts with a plain suffix, got %q", got)
	}
}
