package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "coursetrack", displayVersion(version))
	},
}

// displayVersion canonicalizes release versions ("1.2" is "v1.2.0"). Dev
// builds fall back to the module version recorded by the toolchain.
func displayVersion(v string) string {
	if v == "(devel)" {
		if info, ok := debug.ReadBuildInfo(); ok && semver.IsValid(info.Main.Version) {
			return info.Main.Version
		}
		return v
	}
	if !semver.IsValid(v) && semver.IsValid("v"+v) {
		v = "v" + v
	}
	if c := semver.Canonical(v); c != "" {
		return c
	}
	return v
}
