package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "psid64",
	Short: "Convert PSID/RSID tunes into standalone C64 programs",
	Long: `psid64 turns a PSID or RSID SID tune into a self-contained C64 .prg:
a relocated player driver, the tune itself, and an information screen,
wrapped in a small bootstrapper.`,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
