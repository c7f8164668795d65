package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionVariables(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, BuildTime)

	assert.NotEmpty(t, GitCommit)
	if GitCommit != "unknown" {
		assert.GreaterOrEqual(t, len(GitCommit), 7, "GitCommit should be 'unknown' or a git hash")
	}
}
