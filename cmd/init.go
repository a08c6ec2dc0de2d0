// xepm init [name], xepm new [path]
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xephyr-stats/xepm/internal/manifest"
	"github.com/xephyr-stats/xepm/internal/msg"
)

var (
	library     bool
	pkgVersion  string
	pkgRequires []string
)

func writefile(content string, elem ...string) error {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("create file %s: %w", path, err)
		}
		fmt.Fprintf(msg.Out, "%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
	return nil
}

func mkdir(elem ...string) error {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "xepm"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn creates a package skeleton in an existing directory. Existing files are left alone.
func initIn(dir, name string, lib bool) error {
	if name == "" || strings.ContainsAny(name, " \t/\\") {
		return fmt.Errorf("invalid package name %q", name)
	}

	if _, err := os.Stat(filepath.Join(dir, manifest.DescriptorFilename)); errors.Is(err, os.ErrNotExist) {
		deps := pkgRequires
		if deps == nil {
			deps = []string{}
		}
		desc := manifest.Descriptor{Name: name, Version: pkgVersion, Dependencies: deps}
		if err := desc.Save(dir); err != nil {
			return fmt.Errorf("create file %s: %w", manifest.DescriptorFilename, err)
		}
		fmt.Fprintf(msg.Out, "%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(filepath.Join(dir, manifest.DescriptorFilename)))
	}

	if err := mkdir(dir, "src"); err != nil {
		return err
	}

	guard := strings.ToUpper(name) + "_H"
	if err := writefile(`#ifndef `+guard+`
#define `+guard+`

void `+name+`_hello();

#endif
`, dir, "src", name+".h"); err != nil {
		return err
	}

	if err := writefile(`#include <iostream>
#include "`+name+`.h"

void `+name+`_hello() {
    std::cout << "Hello from `+name+`!" << std::endl;
}
`, dir, "src", name+".cxx"); err != nil {
		return err
	}

	if !lib {
		if err := writefile(`#include "`+name+`.h"

int main() {
    `+name+`_hello();
    return 0;
}
`, dir, "run_main.cxx"); err != nil {
			return err
		}
	}

	programName := getProgramName()
	fmt.Fprintf(msg.Out, "You can now do %s to add its targets to CMakeLists.txt, or %s to check it was found.\n",
		color.HiCyanString(programName), color.HiCyanString(programName+" list"))
	return nil
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new package in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := initIn(".", args[0], library); err != nil {
			msg.Fatal("%v", err)
		}
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new package in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := mkdir(args[0]); err != nil {
			msg.Fatal("%v", err)
		}
		if err := initIn(args[0], filepath.Base(args[0]), library); err != nil {
			msg.Fatal("%v", err)
		}
	},
}

func addInitFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&library, "lib", "l", false, "Create a library only, without an entry point")
	cmd.Flags().StringVar(&pkgVersion, "pkg-version", "0.1.0", "Version written to info.json")
	cmd.Flags().StringSliceVarP(&pkgRequires, "require", "r", nil, "Dependency written to info.json (repeatable)")
}

func init() {
	// xepm init subcommand
	rootCmd.AddCommand(initCmd)
	addInitFlags(initCmd)

	// xepm new subcommand
	rootCmd.AddCommand(newCmd)
	addInitFlags(newCmd)
}
