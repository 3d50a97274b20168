//go:build linux

package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ioctl request numbers for querying block device sector sizes, lifted from
// <linux/fs.h>.
const (
	blkSSZGet = 0x1268
	blkBSZGet = 0x80081270
)

func deviceSectorSizes(f *os.File) (logical, physical int64, err error) {
	fd := int(f.Fd())
	l, err := unix.IoctlGetInt(fd, blkSSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get logical sector size: %w", err)
	}
	p, err := unix.IoctlGetInt(fd, blkBSZGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get physical sector size: %w", err)
	}
	return int64(l), int64(p), nil
}
