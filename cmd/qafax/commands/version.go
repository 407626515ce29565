package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qafax/qafax/display"
	"github.com/qafax/qafax/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show qafax version information",
	Long:  `Display version, build time, commit hash, and platform information for the qafax binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		if display.ShouldOutputJSON(cmd) {
			display.OutputJSON(info)
			return
		}
		fmt.Println(info.String())
		fmt.Printf("Platform: %s\n", info.Platform)
		fmt.Printf("Go: %s\n", info.GoVersion)
	},
}
