// xepm list [path]
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xephyr-stats/xepm/internal/msg"
	"github.com/xephyr-stats/xepm/internal/scanner"
)

func doList(cmd *cobra.Command, args []string) {
	s, err := scanner.NewScannerInDirectory(targetArg(args))
	if err != nil {
		msg.Fatal("%v", err)
	}
	packages, err := s.Load()
	if err != nil {
		msg.Fatal("%v", err)
	}
	s.PrintSummary(packages)
}

var listCmd = &cobra.Command{
	Use:   "list [target path]",
	Short: "List packages without touching CMakeLists.txt",
	Args:  cobra.MaximumNArgs(1),
	Run:   doList,
}

func init() {
	// xepm list subcommand
	rootCmd.AddCommand(listCmd)
}
