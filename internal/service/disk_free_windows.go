//go:build windows

package service

import (
	"golang.org/x/sys/windows"
)

// diskSpace returns free and total bytes on the volume holding path.
func diskSpace(path string) (free, total int64) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0
	}

	var freeBytes, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return 0, 0
	}
	return int64(freeBytes), int64(totalBytes)
}
