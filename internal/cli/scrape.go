package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/llegapo/scraper/internal/app"
	"github.com/llegapo/scraper/internal/extract"
	"github.com/llegapo/scraper/internal/scrape"
	"github.com/llegapo/scraper/internal/ui"
	"github.com/llegapo/scraper/internal/utils/output"
	"github.com/llegapo/scraper/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	outputPath string
	freshRun   bool
)

var scrapeCmd = &cobra.Command{
	Use:       "scrape <deviations|metro-status|tarifas>",
	Short:     "Scrape one source and print the result",
	Long:      `Runs a single scrape with a fresh browser and prints the JSON envelope the API would return.`,
	ValidArgs: []string{scrape.SourceDeviations, scrape.SourceMetroStatus, scrape.SourceTarifas},
	Example: `  # Print current deviations
  llegapo scrape deviations

  # Save the metro status table as CSV
  llegapo scrape metro-status --output lineas.csv`,
	Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "File path to save output (supports .json, .csv)")
	scrapeCmd.Flags().BoolVar(&freshRun, "fresh", false, "Bypass the result cache")
}

// scraped is the type-erased outcome of a run
type scraped struct {
	Data   interface{}
	Report extract.Report
	URL    string
	Cached bool
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	start := time.Now()

	res, err := runSource(cmd.Context(), a, args[0], scrape.RunOptions{Fresh: freshRun})
	if err != nil {
		_ = output.WriteJSON(os.Stdout, models.Envelope{Success: false, Error: err.Error()})
		return err
	}

	env := models.Envelope{
		Success:   true,
		Data:      res.Data,
		Timestamp: time.Now().UnixMilli(),
		Debug: &models.Debug{
			Found:     res.Report.Found,
			Processed: res.Report.Processed,
			Dropped:   res.Report.Dropped,
			Cached:    res.Cached,
		},
	}

	printSummary(args[0], res, time.Since(start))

	if outputPath != "" {
		return saveOutput(env, outputPath)
	}
	return output.WriteJSON(os.Stdout, env)
}

func runSource(ctx context.Context, a *app.Application, name string, ro scrape.RunOptions) (scraped, error) {
	switch name {
	case scrape.SourceDeviations:
		return erase(scrape.Run(ctx, a.Runner, a.Sources.Deviations, ro))
	case scrape.SourceMetroStatus:
		return erase(scrape.Run(ctx, a.Runner, a.Sources.MetroStatus, ro))
	case scrape.SourceTarifas:
		return erase(scrape.Run(ctx, a.Runner, a.Sources.Tarifas, ro))
	}
	return scraped{}, fmt.Errorf("unknown source %q", name)
}

func erase[T any](res scrape.Result[T], err error) (scraped, error) {
	if err != nil {
		return scraped{}, err
	}
	return scraped{Data: res.Data, Report: res.Report, URL: res.URL, Cached: res.Cached}, nil
}

func saveOutput(env models.Envelope, path string) error {
	var err error
	if strings.HasSuffix(path, ".csv") {
		var table output.Table
		table, err = output.TableOf(env.Data)
		if err == nil {
			err = output.SaveCSV(table, path)
		}
	} else {
		err = output.SaveJSON(env, path)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Info().Str("file", path).Msg("Output saved")
	fmt.Fprintf(os.Stderr, "%s\n", ui.Success("✓ Saved to "+path))
	return nil
}

func printSummary(name string, res scraped, elapsed time.Duration) {
	source := name
	if res.Cached {
		source += " (cached)"
	}
	fmt.Fprintf(os.Stderr, "\n%s  %s\n", ui.Heading(source), ui.Dim(res.URL))
	fmt.Fprintf(os.Stderr, "  Found:     %d\n", res.Report.Found)
	fmt.Fprintf(os.Stderr, "  Processed: %s\n", ui.Success(fmt.Sprint(res.Report.Processed)))
	if res.Report.Dropped > 0 {
		fmt.Fprintf(os.Stderr, "  Dropped:   %s\n", ui.Warn(fmt.Sprint(res.Report.Dropped)))
	}
	fmt.Fprintf(os.Stderr, "  Elapsed:   %s\n\n", elapsed.Round(time.Millisecond))
}
