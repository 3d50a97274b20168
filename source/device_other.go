//go:build !linux

package source

import "os"

func deviceSectorSizes(f *os.File) (logical, physical int64, err error) {
	return defaultSectorSize, defaultSectorSize, nil
}
