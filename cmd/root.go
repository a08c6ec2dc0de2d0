// xepm [path], xepm scan [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xephyr-stats/xepm/internal/msg"
	"github.com/xephyr-stats/xepm/internal/scanner"
)

var (
	flagDiff   bool
	flagMark   bool
	flagNaming EnumValue = NewEnumValue(scanner.NamingEntry, map[string]string{
		scanner.NamingEntry:   "Name executables <package>_<entry point> (default)",
		scanner.NamingPackage: "Name executables after their package (collides on multiple entry points)",
	})
)

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func doScan(cmd *cobra.Command, args []string) {
	s, err := scanner.NewScannerInDirectory(targetArg(args))
	if err != nil {
		msg.Fatal("%v", err)
	}
	if flagNaming.Value() == scanner.NamingPackage {
		msg.Warn("--naming %s gives every executable of a package the same target name", scanner.NamingPackage)
	}
	err = s.Run(scanner.Options{
		Naming: flagNaming.Value(),
		Diff:   flagDiff,
		Mark:   flagMark,
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xepm [target path]",
	Short: "Xephyr package manager",
	Long: `Xephyr package manager. Finds every info.json below the target path,
prints the packages it describes and appends their library and executable
targets to the CMakeLists.txt in the target path.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doScan,
}

var scanCmd = &cobra.Command{
	Use:   "scan [target path]",
	Short: "Scan for packages and append their targets",
	Long:  `Scan for packages and append their targets to CMakeLists.txt. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doScan,
}

func init() {
	addScanFlags(rootCmd)

	// xepm scan subcommand
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(&flagNaming, "naming", "n", "Executable target naming, one of "+flagNaming.HelpString())
	cmd.Flags().BoolVar(&flagDiff, "diff", false, "Show what would be appended without writing it")
	cmd.Flags().BoolVar(&flagMark, "mark", false, "Wrap the appended directives in tagged begin/end comments")
	cmd.RegisterFlagCompletionFunc("naming", flagNaming.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
