// Package cmd implements extls's cobra command tree, grounded on
// direktiv-vorteil's cmd/vorteil/imageutil command style: one subcommand
// per verb, each opening the image fresh and closing it before returning.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/extfsro/ext/ext"
	"github.com/extfsro/ext/source"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "extls",
	Short: "Inspect ext2/ext3/ext4 volume images read-only",
}

// Execute runs the command tree; main's sole entry point.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log soft-fail diagnostics to stderr")
	rootCmd.AddCommand(lsCmd, statCmd, catCmd, extractCmd)
}

// openVolume opens img read-only and returns a ready Volume; callers are
// responsible for calling Close.
func openVolume(img string) (*ext.Volume, error) {
	src, err := source.Open(img)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	if !verbose {
		log.SetLevel(logrus.ErrorLevel)
	}

	vol, err := ext.Open(src, ext.OpenOptions{Log: log})
	if err != nil {
		src.Close()
		return nil, err
	}
	return vol, nil
}
