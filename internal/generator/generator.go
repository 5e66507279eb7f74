// Package generator runs the full brief-to-tasks pipeline: parse briefs,
// assign task IDs, infer dependencies, validate, and write tasks.json.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zulandar/parsinator/internal/depmap"
	"github.com/zulandar/parsinator/internal/fileio"
	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/history"
	"github.com/zulandar/parsinator/internal/idmanager"
	"github.com/zulandar/parsinator/internal/models"
	"github.com/zulandar/parsinator/internal/parser"
)

// ErrNotGenerated is returned when output is requested before any briefs
// were processed.
var ErrNotGenerated = errors.New("generator: no tasks generated yet")

// Options configures a Generator.
type Options struct {
	// Files resolves every brief and output path. Required.
	Files *fileio.Handler
	// ExistingTasks is a tasks.json to extend. Empty starts a fresh project.
	ExistingTasks string
	// Heuristics defaults to heuristics.Default().
	Heuristics *heuristics.Heuristics
	// ApplyThreshold is the minimum confidence for an inferred dependency
	// to be applied. Nil uses Heuristics.ApplyThreshold.
	ApplyThreshold *float64
	// ParseWorkers bounds parallel brief parsing. Zero or less parses one
	// brief at a time.
	ParseWorkers int
	// Recorder, when set, receives a history record for every written run.
	Recorder history.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Generator processes one batch of briefs into a task collection.
type Generator struct {
	files     *fileio.Handler
	h         *heuristics.Heuristics
	threshold float64
	workers   int
	recorder  history.Recorder
	now       func() time.Time

	parser *parser.Parser
	ids    *idmanager.Manager
	mapper *depmap.Mapper

	briefs      []*models.BriefContent
	collection  *models.TaskCollection
	analysis    *depmap.Analysis
	applied     int
	warnings    []string
	generatedAt time.Time
	lastRunID   string
}

// New returns a Generator, loading opts.ExistingTasks when set.
func New(opts Options) (*Generator, error) {
	if opts.Files == nil {
		return nil, fmt.Errorf("generator: file handler is required")
	}
	h := opts.Heuristics
	if h == nil {
		h = heuristics.Default()
	}
	threshold := h.ApplyThreshold
	if opts.ApplyThreshold != nil {
		threshold = *opts.ApplyThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("generator: apply threshold %g outside [0,1]", threshold)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ids, err := idmanager.New(opts.Files, opts.ExistingTasks, h)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	return &Generator{
		files:     opts.Files,
		h:         h,
		threshold: threshold,
		workers:   max(opts.ParseWorkers, 1),
		recorder:  opts.Recorder,
		now:       now,
		parser:    parser.New(opts.Files, h),
		ids:       ids,
		mapper:    depmap.New(h),
	}, nil
}

// ProcessBriefFiles parses every brief, assigns task IDs, applies the
// inferred dependencies that clear the threshold, and validates the result.
// Validation findings are logged and kept in ValidationWarnings. A
// Generator processes a single batch.
func (g *Generator) ProcessBriefFiles(ctx context.Context, paths []string) (*models.TaskCollection, error) {
	if g.collection != nil {
		return nil, fmt.Errorf("generator: briefs already processed")
	}
	log.Info().Int("briefs", len(paths)).Msg("processing brief files")

	briefs, err := g.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	collection, err := g.ids.AssignTaskIDs(briefs)
	if err != nil {
		return nil, fmt.Errorf("generator: assign task IDs: %w", err)
	}

	analysis := g.mapper.AnalyzeDependencies(briefs, collection)
	applied := g.mapper.ApplyDependencies(collection, analysis.Suggestions, g.threshold)
	log.Info().
		Int("suggested", len(analysis.Suggestions)).
		Int("applied", applied).
		Float64("threshold", g.threshold).
		Msg("applied inferred dependencies")
	for _, w := range analysis.Warnings {
		log.Warn().Msg(w)
	}

	warnings := collection.ValidateDependencies()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	g.briefs = briefs
	g.collection = collection
	g.analysis = analysis
	g.applied = applied
	g.warnings = warnings
	g.generatedAt = g.now()

	log.Info().Int("tasks", collection.Len()).Int("warnings", len(warnings)).Msg("generation complete")
	return collection, nil
}

// parseAll parses paths with up to g.workers goroutines. Results keep the
// input order and the error of the earliest failing path is returned.
// Paths skipped after a failure record nothing, so a cancellation never
// hides the parse error that caused it.
func (g *Generator) parseAll(ctx context.Context, paths []string) ([]*models.BriefContent, error) {
	briefs := make([]*models.BriefContent, len(paths))
	errs := make([]error, len(paths))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := g.parser.ParseBriefFile(path)
			if err != nil {
				errs[i] = err
				return err
			}
			briefs[i] = b
			return nil
		})
	}
	waitErr := eg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("generator: parse briefs: %w", err)
		}
	}
	if waitErr != nil {
		return nil, fmt.Errorf("generator: parse briefs: %w", waitErr)
	}
	return briefs, nil
}

// ProcessBriefDirectory processes every .md file directly inside dir in
// name order.
func (g *Generator) ProcessBriefDirectory(ctx context.Context, dir string) (*models.TaskCollection, error) {
	paths, err := g.files.FindBriefs(dir)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("generator: %w: No brief files found in %s", fileio.ErrFileIO, dir)
	}
	return g.ProcessBriefFiles(ctx, paths)
}

// GenerateTasksJSON writes the collection to path. Metadata loaded from an
// existing tasks file is refreshed; otherwise new metadata is created for
// projectName. A configured Recorder is then given a record of the run;
// recording failures are logged, not returned.
func (g *Generator) GenerateTasksJSON(ctx context.Context, path, projectName string) error {
	if g.collection == nil {
		return ErrNotGenerated
	}
	if projectName == "" {
		projectName = models.DefaultProjectName
	}

	now := g.now()
	meta := g.ids.ExistingMetadata()
	if meta == nil {
		meta = models.NewProjectMetadata(projectName, g.projectDescription(), now)
	}
	meta.Refresh(g.collection, now)

	if err := g.files.WriteTasks(path, g.collection.ToTasksJSON(meta)); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	log.Info().Str("path", path).Int("tasks", g.collection.Len()).Msg("wrote tasks file")

	g.record(ctx, path, projectName)
	return nil
}

func (g *Generator) projectDescription() string {
	switch len(g.briefs) {
	case 0:
		return "Generated from project briefs using Parsinator"
	case 1:
		b := g.briefs[0]
		return fmt.Sprintf("Generated from %s brief: %s", b.Type, b.Title)
	}
	seen := make(map[string]bool)
	var types []string
	for _, b := range g.briefs {
		if !seen[string(b.Type)] {
			seen[string(b.Type)] = true
			types = append(types, string(b.Type))
		}
	}
	sort.Strings(types)
	return fmt.Sprintf("Generated from %d briefs (%s) using Parsinator task generation system",
		len(g.briefs), strings.Join(types, ", "))
}

func (g *Generator) record(ctx context.Context, path, projectName string) {
	if g.recorder == nil {
		return
	}
	all := append(append([]string{}, g.analysis.Warnings...), g.warnings...)
	warnings, err := history.EncodeWarnings(all)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record generation run")
		return
	}
	idSummary := g.ids.Summary(g.collection)
	run := &models.GenerationRun{
		Project:          projectName,
		OutputPath:       path,
		BriefCount:       len(g.briefs),
		TotalTasks:       g.collection.Len(),
		NewTasks:         idSummary.NewTasks,
		UnlockedTasks:    len(g.collection.UnlockedTasks()),
		Suggestions:      len(g.analysis.Suggestions),
		Applied:          g.applied,
		ValidationErrors: len(g.warnings),
		Warnings:         warnings,
		CreatedAt:        g.now(),
	}
	for _, b := range g.briefs {
		run.Briefs = append(run.Briefs, models.RunBrief{
			File:      b.Name(),
			Type:      string(b.Type),
			Title:     b.Title,
			TaskCount: len(b.Tasks),
		})
	}
	if err := g.recorder.Record(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to record generation run")
		return
	}
	g.lastRunID = run.ID
	log.Debug().Str("run", run.ID).Msg("recorded generation run")
}

// ValidationWarnings returns the dependency problems found after the
// last ProcessBriefFiles call.
func (g *Generator) ValidationWarnings() []string { return g.warnings }

// Analysis returns the dependency analysis, nil before processing.
func (g *Generator) Analysis() *depmap.Analysis { return g.analysis }

// Briefs returns the parsed briefs in input order.
func (g *Generator) Briefs() []*models.BriefContent { return g.briefs }

// Collection returns the generated collection, nil before processing.
func (g *Generator) Collection() *models.TaskCollection { return g.collection }

// Applied is the number of inferred dependencies added to the collection.
func (g *Generator) Applied() int { return g.applied }

// LastRunID is the ID of the most recently recorded history run.
func (g *Generator) LastRunID() string { return g.lastRunID }
