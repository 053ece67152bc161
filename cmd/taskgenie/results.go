package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/state"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

var (
	resultsLimit int
	resultsJSON  bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect recorded processing outcomes",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent outcomes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		records, err := state.NewResultStore(db).ListResults(cmd.Context(), resultsLimit)
		if err != nil {
			return err
		}
		if resultsJSON {
			return printJSON(os.Stdout, records)
		}
		if len(records) == 0 {
			fmt.Println("No recorded outcomes")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EXECUTION\tTIME\tWORK ITEM\tOUTCOME\tCHILDREN")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s #%d\t%s\t%d\n",
				r.ExecutionID, r.Timestamp.Local().Format(time.DateTime),
				r.WorkItem.Type, r.WorkItemID, statusText(r), r.WorkItemsCount)
		}
		return w.Flush()
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <execution-id>",
	Short: "Show one outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		r, err := state.NewResultStore(db).GetResult(cmd.Context(), args[0])
		if errors.Is(err, state.ErrNotFound) {
			return fmt.Errorf("no outcome recorded for execution %s", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, r)
	},
}

var resultsMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print metric totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(appConfig.Storage.Driver, appConfig.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		totals, err := state.NewMetricStore(db).Totals(cmd.Context())
		if err != nil {
			return err
		}
		if resultsJSON {
			return printJSON(os.Stdout, totals)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, t := range totals {
			fmt.Fprintf(w, "%s\t%g\n", t.Name, t.Total)
		}
		return w.Flush()
	},
}

func init() {
	resultsListCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 20, "Maximum outcomes to list")
	resultsListCmd.Flags().BoolVar(&resultsJSON, "json", false, "Print as JSON")
	resultsMetricsCmd.Flags().BoolVar(&resultsJSON, "json", false, "Print as JSON")

	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsMetricsCmd)
}

func statusText(r models.ResultRecord) string {
	if r.ExecutionResult == models.ExecutionFailed {
		return color.RedString(r.WorkItemStatus)
	}
	return color.GreenString(r.WorkItemStatus)
}
