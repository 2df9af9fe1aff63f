package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui"
)

var (
	runsLimit int
	runsJSON  bool
)

var errHistoryDisabled = errors.New("run history is disabled (history.enabled = false)")

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect earlier runs",
	Long: `Lists earlier upload runs and shows the documents that failed in them.
Runs are recorded in ~/.stevedore/data/runs.db unless history.enabled is false.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's report with every failed document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "output as JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if app == nil {
		return errNotConfigured
	}
	if app.History == nil {
		return errHistoryDisabled
	}

	runs, err := app.History.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	if runsJSON {
		return outputJSON(cmd, runs)
	}
	cmd.Print(tui.RenderRuns(runs, nil))
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if app == nil {
		return errNotConfigured
	}
	if app.History == nil {
		return errHistoryDisabled
	}

	report, err := app.History.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if runsJSON {
		return outputJSON(cmd, report)
	}
	cmd.Print(tui.RenderReport(report, nil, 0))
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
