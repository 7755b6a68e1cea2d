package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogDir(t *testing.T) {
	logDir, err := GetLogDir()
	require.NoError(t, err)
	require.NotEmpty(t, logDir)

	assert.Contains(t, logDir, "softfinder")
	assert.True(t, filepath.IsAbs(logDir))
}

func TestGetWindowsLogDir(t *testing.T) {
	t.Run("with LOCALAPPDATA", func(t *testing.T) {
		testPath := filepath.Join("C:", "Users", "testuser", "AppData", "Local")
		t.Setenv("LOCALAPPDATA", testPath)

		logDir, err := getWindowsLogDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(testPath, "softfinder", "logs"), logDir)
	})

	t.Run("with USERPROFILE fallback", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		testUserProfile := filepath.Join("C:", "Users", "testuser")
		t.Setenv("USERPROFILE", testUserProfile)

		logDir, err := getWindowsLogDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(testUserProfile, "AppData", "Local", "softfinder", "logs"), logDir)
	})

	t.Run("fallback to default", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("USERPROFILE", "")

		logDir, err := getWindowsLogDir()
		require.NoError(t, err)
		assert.Contains(t, logDir, "softfinder")
	})
}

func TestGetMacOSLogDir(t *testing.T) {
	logDir, err := getMacOSLogDir()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(logDir, filepath.Join("Library", "Logs", "softfinder")))
}

func TestGetUnixLogDir(t *testing.T) {
	t.Run("with XDG_STATE_HOME", func(t *testing.T) {
		stateDir := t.TempDir()
		t.Setenv("XDG_STATE_HOME", stateDir)

		logDir, err := getUnixLogDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(stateDir, "softfinder", "logs"), logDir)
	})

	t.Run("without XDG_STATE_HOME", func(t *testing.T) {
		t.Setenv("XDG_STATE_HOME", "")

		logDir, err := getUnixLogDir()
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(logDir, filepath.Join(".local", "state", "softfinder", "logs")))
	})
}

func TestGetLogFilePathWithDir(t *testing.T) {
	tempDir := t.TempDir()
	customDir := filepath.Join(tempDir, "custom", "logs")

	path, err := GetLogFilePathWithDir(customDir, "main.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(customDir, "main.log"), path)

	info, err := os.Stat(customDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetLogFilePathWithDir_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	path, err := GetLogFilePathWithDir("~/sf-logs", "main.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sf-logs", "main.log"), path)
}
