package cmdrunner

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell")
	}
}

func TestExec_Output(t *testing.T) {
	skipOnWindows(t)

	out, err := Exec{}.Output(context.Background(), "sh", "-c", "printf 'vlc|3.0.20\n'")
	require.NoError(t, err)
	assert.Equal(t, "vlc|3.0.20\n", string(out))
}

func TestExec_ExitError(t *testing.T) {
	skipOnWindows(t)

	_, err := Exec{}.Output(context.Background(), "sh", "-c", "echo first >&2; echo 'access denied' >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "access denied", exitErr.Stderr)
	assert.Contains(t, exitErr.Combined, "first")
}

func TestExec_Timeout(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Exec{}.Output(ctx, "sh", "-c", "exec sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExec_MissingBinary(t *testing.T) {
	_, err := Exec{}.Output(context.Background(), "softfinder-definitely-missing-binary")
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestFunc(t *testing.T) {
	var gotName string
	var gotArgs []string
	r := Func(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte("ok"), nil
	})

	out, err := r.Output(context.Background(), "choco", "search", "vlc")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, "choco", gotName)
	assert.Equal(t, []string{"search", "vlc"}, gotArgs)
}
