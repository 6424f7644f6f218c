package version_test

import (
	"runtime"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/jsonbundler/pkg/version"
)

func setVersion(t *testing.T) {
	t.Helper()
	origV, origB, origC := version.Version, version.BuildTime, version.Commit
	t.Cleanup(func() { version.Version, version.BuildTime, version.Commit = origV, origB, origC })

	version.Version = "1.2.3"
	version.BuildTime = "2026-01-02T00:00:00Z"
	version.Commit = "deadbeef"
}

func TestGet(t *testing.T) {
	setVersion(t)

	info := version.Get()
	require.Equal(t, "1.2.3", info.Version)
	require.Equal(t, "deadbeef", info.Commit)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.NotEmpty(t, info.GoVersion)

	assert.Equal(t, "1.2.3", version.Short())
	assert.Contains(t, version.Full(), "jsonbundler 1.2.3 (commit: deadbeef, built: 2026-01-02T00:00:00Z")
}

func TestInfo_JSON(t *testing.T) {
	setVersion(t)

	data, err := version.Get().JSON()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.2.3", decoded["version"])
	assert.Equal(t, "2026-01-02T00:00:00Z", decoded["build_time"])
	assert.Contains(t, decoded, "platform")
}
