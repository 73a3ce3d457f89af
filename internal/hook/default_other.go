//go:build !windows

package hook

import "runtime"

// Default returns the backend for the running platform.
func Default() Hook {
	if runtime.GOOS == "darwin" {
		return NewLaunchAgent("")
	}
	return NewXDG("")
}
