//go:build !darwin && !linux

package atlasengine

import "fmt"

// totalSystemRAM is unsupported on this platform; DetectDeviceCapabilities
// falls back to conservative defaults.
func totalSystemRAM() (uint64, error) {
	return 0, fmt.Errorf("atlasengine: unsupported platform for RAM detection")
}
