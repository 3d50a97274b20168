package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	lsLong bool
	lsAll  bool
)

var lsCmd = &cobra.Command{
	Use:   "ls IMAGE [PATH]",
	Short: "List a directory's entries",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLS,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show inode number and type per entry")
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "include entries beginning with '.'")
}

func runLS(_ *cobra.Command, args []string) error {
	fpath := "/"
	if len(args) > 1 {
		fpath = args[1]
	}

	vol, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer vol.Close()

	entry, err := vol.FileEntryByPath(fpath)
	if err != nil {
		return fmt.Errorf("%s: %w", fpath, err)
	}
	if !entry.IsDir() {
		fmt.Println(entry.Name())
		return nil
	}

	children, err := entry.ReadDir()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, child := range children {
		if !lsAll && strings.HasPrefix(child.Name, ".") {
			continue
		}
		if !lsLong {
			fmt.Fprintln(tw, child.Name)
			continue
		}

		ft, err := vol.EntryFileType(child)
		if err != nil {
			return fmt.Errorf("%s: %w", child.Name, err)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", child.Inode, fileTypeLabel(ft), child.Name)
	}
	return tw.Flush()
}
