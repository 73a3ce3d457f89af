//go:build windows

package hook

// Default returns the Run key backend.
func Default() Hook {
	return NewRunKey()
}
