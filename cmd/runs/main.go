package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"predictor/internal/models"
	"predictor/internal/repository"
	"predictor/internal/repository/sqlite"
)

func main() {
	app := &cli.App{
		Name:  "runs",
		Usage: "print recorded prediction runs and ledger totals",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: filepath.Join("predict", "runs.db"), Usage: "ledger `FILE`"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "number of runs to print"},
			&cli.StringFlag{Name: "command", Usage: "only runs of `COMMAND`"},
			&cli.StringFlag{Name: "status", Usage: "only runs with `STATUS`"},
			&cli.Int64Flag{Name: "delete", Usage: "delete run `ID` and its records"},
		},
		Action: func(c *cli.Context) error {
			dbPath := c.String("db")
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("ledger not found: %s", dbPath)
			}

			db, err := sqlite.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			runs := sqlite.NewRunRepository(db)

			if id := c.Int64("delete"); id > 0 {
				if err := runs.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Deleted run %d\n", id)
				return nil
			}

			filter := &models.RunFilter{
				Command: c.String("command"),
				Status:  c.String("status"),
				Limit:   c.Int("limit"),
			}
			return printLedger(c.App.Writer, runs, filter)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("runs: %v", err)
	}
}

func printLedger(w io.Writer, runs repository.RunRepository, filter *models.RunFilter) error {
	list, err := runs.GetAll(filter)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tCOMMAND\tSOURCE\tDEVICE\tSTATUS\tPROCESSED\tSKIPPED\tDIRECTORY")
		for _, r := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Command, r.Source, r.Device, r.Status, r.Processed, r.Skipped, r.ExperimentDir)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	stats, err := runs.GetStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nLedger statistics:\n")
	fmt.Fprintf(w, "   Total runs: %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "   Total artifacts: %d\n", stats.TotalArtifacts)
	fmt.Fprintf(w, "   Total detections: %d\n", stats.TotalDetections)
	printCounts(w, "Per command", stats.PerCommand)
	printCounts(w, "Objects", stats.ObjectCounts)
	return nil
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "   %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "      - %s: %d\n", k, counts[k])
	}
}
