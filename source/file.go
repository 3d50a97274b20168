package source

import (
	"fmt"
	"os"
)

// Open opens the file or block device at path for read-only access and
// returns it as a Source. The path must exist at the time of the call.
func Open(path string) (Source, error) {
	if path == "" {
		return nil, fmt.Errorf("must pass a path to an image file or device")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("image %s does not exist", path)
	}
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s read-only: %w", path, err)
	}
	return FromFile(f)
}

// SectorSizes reports the logical and physical sector size of the device
// backing path, when it is a block device. Regular files report the
// platform default of (512, 512).
func SectorSizes(path string) (logical, physical int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	if info.Mode()&os.ModeDevice == 0 {
		return defaultSectorSize, defaultSectorSize, nil
	}
	return deviceSectorSizes(f)
}

const defaultSectorSize = 512
