package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if strings.Contains(Version, "\x1b[") {
		t.Error("Version itself must stay free of ANSI escapes")
	}
}

func TestLine(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	Version = "1.2.3"
	GitCommit = "abc123"
	BuildDate = "2024-01-15T10:30:00Z"

	if got := Line(false); got != "jsxhost 1.2.3 (abc123) built 2024-01-15T10:30:00Z" {
		t.Errorf("Line(false) = %q", got)
	}

	GitCommit, BuildDate = "", ""
	if got := Line(false); got != "jsxhost 1.2.3" {
		t.Errorf("optional fields should be omitted, got %q", got)
	}
}

func TestColored(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = origVersion, origNoColor })

	color.NoColor = false
	Version = "2.0.1-rc.1"
	got := Colored()
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc.1") {
		t.Errorf("unexpected colored version %q", got)
	}

	Version = "nightly"
	if Colored() != "nightly" {
		t.Errorf("non-semver versions are returned as is, got %q", Colored())
	}
}
