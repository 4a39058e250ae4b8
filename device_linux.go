//go:build linux

package atlasengine

import "syscall"

// totalSystemRAM returns the total physical RAM in bytes on Linux, grounded
// on geotiff2pmtiles/internal/tile/sysinfo_linux.go.
func totalSystemRAM() (uint64, error) {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return 0, err
	}
	return info.Totalram * uint64(info.Unit), nil
}
