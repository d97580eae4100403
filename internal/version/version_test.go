package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, sha, bt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = v, sha, bt })

	assert.Equal(t, "rcss.agent dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-10-19"
	assert.Equal(t, "rcss.agent 1.2.0 (abc123, built 2026-10-19)", String())
}
