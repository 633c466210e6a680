package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_ContainsBuildFields(t *testing.T) {
	s := String()
	assert.Contains(t, s, "lexrag")
	assert.Contains(t, s, Version)
	assert.Contains(t, s, Commit)
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}
