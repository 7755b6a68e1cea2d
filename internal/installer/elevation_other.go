//go:build !unix && !windows

package installer

// IsElevated always reports false on platforms without a privilege model.
func IsElevated() bool {
	return false
}
