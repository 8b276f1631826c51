// SPDX-License-Identifier: MIT
package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setFlags(t *testing.T, name, time, commit, version string) {
	t.Helper()
	saved := [4]string{buildName, buildTime, buildCommit, buildVersion}
	savedInfo := info
	t.Cleanup(func() {
		buildName, buildTime, buildCommit, buildVersion = saved[0], saved[1], saved[2], saved[3]
		info = savedInfo
	})

	info = defaultInfo()
	buildName, buildTime, buildCommit, buildVersion = name, time, commit, version
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		flags      [4]string
		wantErrMsg string
	}{
		{"missing name", [4]string{"", "2025-04-13", "abcdef1", "v1.0.0"}, "BuildName is required"},
		{"missing time", [4]string{"shaderfx", "", "abcdef1", "v1.0.0"}, "BuildTime is required"},
		{"missing commit", [4]string{"shaderfx", "2025-04-13", "", "v1.0.0"}, "BuildCommit is required"},
		{"missing version", [4]string{"shaderfx", "2025-04-13", "abcdef1", ""}, "BuildVersion is required"},
		{"complete", [4]string{"shaderfx", "2025-04-13", "abcdef1", "v1.0.0"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(t, tt.flags[0], tt.flags[1], tt.flags[2], tt.flags[3])

			err := Initialize()
			if tt.wantErrMsg != "" {
				require.ErrorIs(t, err, ErrDevelopmentBuild)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Equal(t, defaultInfo(), Get(), "placeholders stay on failure")
				return
			}

			require.NoError(t, err)
			got := Get()
			assert.Equal(t, "shaderfx", got.Name)
			assert.Equal(t, "2025-04-13", got.Time)
			assert.Equal(t, "abcdef1", got.Commit)
			assert.Equal(t, "v1.0.0", got.Version)
			assert.Equal(t, defaultDescription, got.Description)
		})
	}
}

func TestInfoString(t *testing.T) {
	i := Info{Name: "shaderfx", Version: "v0.3.0", Commit: "abc", Time: "today"}
	assert.Equal(t, "shaderfx v0.3.0 (commit abc, built today)", i.String())
}
