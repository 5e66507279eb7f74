package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/parsinator/internal/config"
	"github.com/zulandar/parsinator/internal/db"
	"github.com/zulandar/parsinator/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded generation runs",
		Long:  "Lists runs recorded with generate --record, newest first, or shows one run in detail.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, configPath, limit, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to Parsinator config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath string, limit int, args []string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	gormDB, err := db.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	store := history.NewStore(gormDB)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		warnings, err := history.DecodeWarnings(run.Warnings)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run:        %s\n", run.ID)
		fmt.Fprintf(out, "Project:    %s\n", run.Project)
		fmt.Fprintf(out, "Created:    %s\n", run.CreatedAt.Local().Format(time.RFC3339))
		fmt.Fprintf(out, "Output:     %s\n", run.OutputPath)
		fmt.Fprintf(out, "Tasks:      %d total, %d new, %d unlocked\n", run.TotalTasks, run.NewTasks, run.UnlockedTasks)
		fmt.Fprintf(out, "Inferred:   %d suggested, %d applied\n", run.Suggestions, run.Applied)
		fmt.Fprintf(out, "Briefs:     %d\n", run.BriefCount)
		for _, b := range run.Briefs {
			fmt.Fprintf(out, "  %s (%s) %q: %d tasks\n", b.File, b.Type, b.Title, b.TaskCount)
		}
		printWarnings(cmd.ErrOrStderr(), warnings)
		return nil
	}

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		dimColor.Fprintln(out, "No runs recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPROJECT\tBRIEFS\tTASKS\tNEW\tAPPLIED\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d/%d\t%d\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Project,
			r.BriefCount, r.TotalTasks, r.NewTasks, r.Applied, r.Suggestions, r.ValidationErrors)
	}
	return w.Flush()
}
