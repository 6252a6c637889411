package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromBuildInfo(t *testing.T) {
	info := Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, Info{Version: "v1.2.3", GitCommit: "abc123", BuildDate: "2026-01-02T03:04:05Z"}, info)
}

func TestFillFromBuildInfo_KeepsLinkerValues(t *testing.T) {
	info := Info{Version: "v2.0.0", GitCommit: "fedcba", BuildDate: "today"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})

	assert.Equal(t, "v2.0.0", info.Version)
	assert.Equal(t, "fedcba", info.GitCommit)
	assert.Equal(t, "today", info.BuildDate)
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, GoVersion, info.GoVersion)
}
