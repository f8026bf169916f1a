package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/output"
	"github.com/prospectlens/prospectlens/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: "Print version information. Use --extended for build, runtime and Gofulmen details, " +
		"or -o json for the same document /version serves.",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := handlers.CurrentVersion()

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			body, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			return emit(cmd, string(body))
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", config.AppName, info.App.Version)
		if extended {
			fmt.Fprintf(&b, "Commit:   %s\n", info.App.Commit)
			fmt.Fprintf(&b, "Built:    %s\n", info.App.BuildDate)
			fmt.Fprintf(&b, "Go:       %s\n", info.App.GoVersion)
			fmt.Fprintf(&b, "Platform: %s\n", info.Runtime.Platform)
			fmt.Fprintf(&b, "Gofulmen: %s\n", info.Dependencies.Gofulmen)
			fmt.Fprintf(&b, "Crucible: %s\n", info.Dependencies.Crucible)
		}
		return emit(cmd, b.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show build, runtime and dependency versions")
}
