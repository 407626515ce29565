package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/display"
	"github.com/qafax/qafax/fax"
)

// ProfilesCmd represents the profiles command
var ProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available fax capability profiles",
	Long: `List the fax capability profiles found under the configured QA
config root, with their negotiable parameters and content hashes.

Examples:
  qafax profiles
  qafax profiles --json`,
	RunE: runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	service := config.NewService(cfg.Configs.Root)
	names, err := service.ListProfiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		pterm.Info.Printf("No profiles found under %s\n", cfg.Configs.Root)
		return nil
	}

	var profiles []*fax.Profile
	for _, name := range names {
		loaded, err := service.LoadProfile(name)
		if err != nil {
			return err
		}
		profile, err := fax.ParseProfile(loaded.Payload, loaded.SHA256)
		if err != nil {
			return err
		}
		profiles = append(profiles, profile)
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(profiles)
	}

	data := pterm.TableData{{"Name", "Standard", "Max bps", "Steps", "ECM", "Hash"}}
	for _, profile := range profiles {
		ecm := "off"
		if profile.ECMEnabled {
			ecm = pterm.Sprintf("%dB", profile.ECMBlockBytes)
		}
		data = append(data, []string{
			profile.Name,
			profile.Standard,
			pterm.Sprintf("%d", profile.MaxBitrate),
			pterm.Sprintf("%d", len(profile.BitrateSteps)),
			ecm,
			profile.ConfigSHA256[:8],
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil
}
