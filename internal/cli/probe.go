package cli

import (
	"os"
	"time"

	"github.com/llegapo/scraper/internal/utils/output"
	"github.com/llegapo/scraper/pkg/models"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [test|debug]",
	Short: "Check that a browser can start and reach the site",
	Long: `test starts a browser and loads the user agent echo page.
debug runs every diagnostic check and reports each outcome.`,
	Example: `  # Full diagnostic report
  llegapo probe

  # Quick launch and navigation check
  llegapo probe test`,
	ValidArgs: []string{"test", "debug"},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	prober := GetApp(cmd).Prober

	if len(args) == 1 && args[0] == "test" {
		report, err := prober.Test(cmd.Context())
		if err != nil {
			_ = output.WriteJSON(os.Stdout, models.Envelope{Success: false, Error: err.Error()})
			return err
		}
		return output.WriteJSON(os.Stdout, models.Envelope{Success: true, Data: report, Timestamp: time.Now().UnixMilli()})
	}

	report := prober.Debug(cmd.Context())
	return output.WriteJSON(os.Stdout, models.Envelope{Success: true, Data: report, Timestamp: time.Now().UnixMilli()})
}
