package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zulandar/parsinator/internal/config"
	"github.com/zulandar/parsinator/internal/db"
	"github.com/zulandar/parsinator/internal/generator"
	"github.com/zulandar/parsinator/internal/history"
)

type generateOptions struct {
	configPath   string
	dir          string
	output       string
	existing     string
	project      string
	summary      string
	threshold    float64
	thresholdSet bool
	workers      int
	record       bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [briefs...]",
		Short: "Generate tasks.json from brief files",
		Long: `Parses the given brief files, or every .md file in --dir, assigns task IDs,
infers dependencies between tasks and writes the result to --output.

With --existing the new tasks extend an existing tasks.json, continuing its
ID sequence and keeping its tasks untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}

	addGenerateFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.summary, "summary", "", "also write a JSON generation summary to this path")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record the run in the history store")
	return cmd
}

func addGenerateFlags(cmd *cobra.Command, opts *generateOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to Parsinator config file")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "directory of .md briefs")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output tasks file (default from config)")
	cmd.Flags().StringVarP(&opts.existing, "existing", "e", "", "existing tasks file to extend (default from config)")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project name (default from config)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "minimum confidence to apply an inferred dependency (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel brief parsers (default from config)")
}

// resolve fills unset options from cfg.
func (o *generateOptions) resolve(cfg *config.Config) {
	if o.output == "" {
		o.output = cfg.Output
	}
	if o.existing == "" {
		o.existing = cfg.ExistingTasks
	}
	if o.project == "" {
		o.project = cfg.ProjectName
	}
	if !o.thresholdSet {
		o.threshold = cfg.ApplyThreshold
	}
	if o.workers == 0 {
		o.workers = cfg.ParseWorkers
	}
}

func runGenerate(cmd *cobra.Command, args []string, opts generateOptions) error {
	if len(args) == 0 && opts.dir == "" {
		return fmt.Errorf("no briefs given: pass brief files or --dir")
	}
	cfg, err := loadConfig(cmd, opts.configPath)
	if err != nil {
		return err
	}
	opts.thresholdSet = cmd.Flags().Changed("threshold")
	opts.resolve(cfg)

	var recorder history.Recorder
	if opts.record {
		gormDB, err := db.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close(gormDB)
		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
		recorder = history.NewStore(gormDB)
	}

	g, err := runGeneration(cmd, cfg, opts, args, recorder)
	if err != nil {
		return err
	}

	if opts.summary != "" {
		if err := writeSummary(g, opts.summary); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", opts.summary)
	}
	if id := g.LastRunID(); id != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded run %s\n", id)
	}
	return nil
}

// runGeneration processes the briefs, writes the tasks file and reports
// the outcome on the command's output.
func runGeneration(cmd *cobra.Command, cfg *config.Config, opts generateOptions, paths []string, recorder history.Recorder) (*generator.Generator, error) {
	files, err := workingFiles()
	if err != nil {
		return nil, err
	}
	g, err := generator.New(generator.Options{
		Files:          files,
		ExistingTasks:  opts.existing,
		Heuristics:     &cfg.Heuristics,
		ApplyThreshold: &opts.threshold,
		ParseWorkers:   opts.workers,
		Recorder:       recorder,
	})
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if len(paths) > 0 {
		_, err = g.ProcessBriefFiles(ctx, paths)
	} else {
		_, err = g.ProcessBriefDirectory(ctx, opts.dir)
	}
	if err != nil {
		return nil, err
	}
	if err := g.GenerateTasksJSON(ctx, opts.output, opts.project); err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	c := g.Collection()
	okColor.Fprintf(out, "Generated %d tasks from %d briefs -> %s\n", c.Len(), len(g.Briefs()), opts.output)
	fmt.Fprintf(out, "Applied %d of %d suggested dependencies (threshold %.2f)\n",
		g.Applied(), len(g.Analysis().Suggestions), opts.threshold)
	printWarnings(cmd.ErrOrStderr(), g.Analysis().Warnings)
	printWarnings(cmd.ErrOrStderr(), g.ValidationWarnings())

	unlocked := c.UnlockedTasks()
	fmt.Fprintf(out, "Ready to start: %d tasks\n", len(unlocked))
	for _, t := range unlocked {
		fmt.Fprintf(out, "  %d. %s\n", t.ID, t.Title)
	}
	return g, nil
}

func writeSummary(g *generator.Generator, path string) error {
	s, err := g.Summary()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	files, err := workingFiles()
	if err != nil {
		return err
	}
	if err := files.WriteFile(path, append(data, '\n')); err != nil {
		return err
	}
	log.Debug().Str("path", path).Msg("wrote generation summary")
	return nil
}
