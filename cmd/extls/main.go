// Command extls is a small read-only inspector for ext2/ext3/ext4 volume
// images, built on top of the ext package.
package main

import (
	"fmt"
	"os"

	"github.com/extfsro/ext/cmd/extls/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "extls:", err)
		os.Exit(1)
	}
}
