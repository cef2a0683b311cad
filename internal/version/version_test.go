package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetadataIsInitialized(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, BuildTime)
	assert.NotEmpty(t, GitCommit)
}
