package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat IMAGE PATH...",
	Short: "Write file contents to stdout",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCat,
}

func runCat(_ *cobra.Command, args []string) error {
	vol, err := openVolume(args[0])
	if err != nil {
		return err
	}
	defer vol.Close()

	for _, fpath := range args[1:] {
		entry, err := vol.FileEntryByPath(fpath)
		if err != nil {
			return fmt.Errorf("%s: %w", fpath, err)
		}
		if entry.IsDir() {
			return fmt.Errorf("%s: is a directory", fpath)
		}

		r := io.NewSectionReader(entry, 0, int64(entry.Size()))
		if _, err := io.Copy(os.Stdout, r); err != nil {
			return fmt.Errorf("%s: %w", fpath, err)
		}
	}
	return nil
}
