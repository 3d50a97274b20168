package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat IMAGE PATH",
	Short: "Print inode metadata for a path",
	Args:  cobra.ExactArgs(2),
	RunE:  runStat,
}

func runStat(_ *cobra.Command, args []string) error {
	vol, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer vol.Close()

	fpath := args[1]
	entry, err := vol.FileEntryByPath(fpath)
	if err != nil {
		return fmt.Errorf("%s: %w", fpath, err)
	}

	inode := entry.Inode()

	fmt.Printf("File: %s\t%s\n", fpath, fileTypeLabel(inode.FileType))
	fmt.Printf("Size: %d\n", entry.Size())
	fmt.Printf("Inode: %d\n", entry.InodeNumber())
	fmt.Printf("Links: %d\n", inode.Links)
	fmt.Printf("Mode: %#o (%s)\n", inode.Mode&0o7777, inode.FileMode())
	fmt.Printf("Uid: %d  Gid: %d\n", inode.Owner, inode.Group)
	fmt.Printf("Access: %s\n", inode.AccessTime())
	fmt.Printf("Modify: %s\n", inode.ModifyTime())
	fmt.Printf("Change: %s\n", inode.ChangeTime())
	if inode.HasCreateTime {
		fmt.Printf("Create: %s\n", inode.CreateTime())
	}
	fmt.Printf("Extents: %d\n", entry.NumExtents())

	if names := entry.ExtendedAttributeNames(); len(names) > 0 {
		fmt.Println("Extended attributes:")
		for _, n := range names {
			fmt.Printf("  %s\n", n)
		}
	}
	return nil
}
