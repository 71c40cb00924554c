package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/policyvm/internal/app/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.OutputFormat == "json" {
			printJSON(version.GetBuildInfo())
			return nil
		}
		pterm.Println(version.GetFullVersion())
		return nil
	},
}
