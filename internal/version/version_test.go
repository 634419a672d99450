package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	t.Helper()
	v, bt, gc, gv := Version, BuildTime, GitCommit, GoVersion
	t.Cleanup(func() {
		Version, BuildTime, GitCommit, GoVersion = v, bt, gc, gv
	})
}

func TestSetInfo(t *testing.T) {
	restore(t)

	SetInfo("1.0.0", "2026-01-01T00:00:00Z", "abc123", "go1.26")

	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", BuildTime)
	assert.Equal(t, "abc123", GitCommit)
	assert.Equal(t, "go1.26", GoVersion)
}

func TestSetInfoEmptyValues(t *testing.T) {
	restore(t)
	Version = "0.9.0"

	SetInfo("", "", "", "")

	assert.Equal(t, "0.9.0", Version)
}

func TestFormatting(t *testing.T) {
	restore(t)
	SetInfo("1.2.3", "today", "deadbeef", "go1.26")

	assert.Equal(t, "ghbackup/1.2.3", UserAgent())
	assert.Contains(t, FormatStartupMessage(), "Version: 1.2.3")
	assert.Equal(t, "ghbackup 1.2.3\ncommit: deadbeef\nbuilt: today\ngo: go1.26", String())
}
