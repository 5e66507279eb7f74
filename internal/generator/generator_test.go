package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/parsinator/internal/fileio"
	"github.com/zulandar/parsinator/internal/models"
	"github.com/zulandar/parsinator/internal/parser"
)

const setupBrief = `# Project Setup: Widget CLI

## Problem Statement
Teams scaffold widgets by hand.

## Core Setup Tasks
1. **Create directory structure**: Lay out packages
2. **Add command parser**: Wire flag handling
3. **Configure linting**: Add lint rules
`

const featureBrief = `# Feature: Search

## Problem Statement
Users cannot find widgets.

## Core Feature Tasks
1. **Implement search index**: Store widget names
2. **Add query command**: Print matching names
`

const deploymentBrief = `# Deployment: Release

## Deployment Goal
Ship version one.

## Core Deployment Tasks
1. **Tag release**: Push the version tag
2. **Publish archives**: Upload binaries
`

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	dir   string
	files *fileio.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	files, err := fileio.New(dir)
	require.NoError(t, err)
	return &fixture{dir: dir, files: files}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) generator(t *testing.T, opts Options) *Generator {
	t.Helper()
	opts.Files = f.files
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	g, err := New(opts)
	require.NoError(t, err)
	return g
}

func taskDeps(t *testing.T, c *models.TaskCollection, id int) []int {
	t.Helper()
	task, ok := c.Get(id)
	require.True(t, ok, "task %d missing", id)
	return task.Dependencies
}

func TestProcessBriefFiles_SetupAndFeature(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "briefs/project_setup.md", setupBrief)
	feature := f.write(t, "briefs/search_feature.md", featureBrief)
	g := f.generator(t, Options{ParseWorkers: 2})

	c, err := g.ProcessBriefFiles(context.Background(), []string{feature, setup})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, c.IDs())
	first, _ := c.Get(1)
	assert.Equal(t, "Create directory structure", first.Title)
	assert.Contains(t, taskDeps(t, c, 4), 3)

	var unlocked []int
	for _, task := range c.UnlockedTasks() {
		unlocked = append(unlocked, task.ID)
	}
	assert.Equal(t, []int{1}, unlocked)
	assert.Empty(t, g.ValidationWarnings())

	require.Len(t, g.Briefs(), 2)
	assert.Equal(t, "search_feature.md", g.Briefs()[0].Name(), "briefs keep input order")
	assert.Equal(t, 1, g.Applied())
	for _, s := range g.Analysis().Suggestions {
		if s.Confidence >= 0.7 {
			task, _ := c.Get(s.From)
			assert.True(t, task.HasDependency(s.To))
		}
	}
}

func TestGenerateTasksJSON_FreshProject(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	feature := f.write(t, "search_feature.md", featureBrief)
	g := f.generator(t, Options{})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup, feature})
	require.NoError(t, err)
	require.NoError(t, g.GenerateTasksJSON(context.Background(), "out/tasks.json", "Widget CLI"))

	doc, err := f.files.ReadTasks("out/tasks.json")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Len(t, doc.Master.Tasks, 5)
	assert.Equal(t, "Generated from 2 briefs (feature, setup) using Parsinator task generation system",
		doc.Master.Metadata.Description)
	assert.Equal(t, "2026-03-01T09:30:00Z", doc.Master.Metadata.Created)
}

func TestGenerateTasksJSON_SingleBriefDescription(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	g := f.generator(t, Options{})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup})
	require.NoError(t, err)
	require.NoError(t, g.GenerateTasksJSON(context.Background(), "tasks.json", ""))

	doc, err := f.files.ReadTasks("tasks.json")
	require.NoError(t, err)
	assert.Equal(t, "Generated from setup brief: Project Setup - Widget CLI", doc.Master.Metadata.Description)
}

func TestGenerateTasksJSON_AdditiveSession(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	feature := f.write(t, "search_feature.md", featureBrief)
	first := f.generator(t, Options{})
	_, err := first.ProcessBriefFiles(context.Background(), []string{setup, feature})
	require.NoError(t, err)
	require.NoError(t, first.GenerateTasksJSON(context.Background(), "tasks.json", "Widget CLI"))

	later := fixedNow.Add(24 * time.Hour)
	release := f.write(t, "release_deployment.md", deploymentBrief)
	second := f.generator(t, Options{
		ExistingTasks: "tasks.json",
		Now:           func() time.Time { return later },
	})
	c, err := second.ProcessBriefFiles(context.Background(), []string{release})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, c.IDs())
	assert.Empty(t, taskDeps(t, c, 6))
	assert.Equal(t, []int{6}, taskDeps(t, c, 7))
	assert.Equal(t, []int{4, 3}, taskDeps(t, c, 5), "existing dependencies are preserved")

	require.NoError(t, second.GenerateTasksJSON(context.Background(), "tasks.json", "Widget CLI"))
	doc, err := f.files.ReadTasks("tasks.json")
	require.NoError(t, err)
	assert.Equal(t, "Generated from 2 briefs (feature, setup) using Parsinator task generation system",
		doc.Master.Metadata.Description)
	assert.Equal(t, "2026-03-01T09:30:00Z", doc.Master.Metadata.Created)
	assert.Equal(t, "2026-03-02T09:30:00Z", doc.Master.Metadata.Updated)

	s, err := second.Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, s.IDManagement.ExistingTasks)
	assert.Equal(t, 2, s.IDManagement.NewTasks)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	feature := f.write(t, "search_feature.md", featureBrief)
	g := f.generator(t, Options{})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup, feature})
	require.NoError(t, err)

	s, err := g.Summary()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T09:30:00Z", s.GenerationTimestamp)
	assert.Equal(t, 2, s.BriefProcessing.BriefsProcessed)
	assert.Equal(t, map[models.BriefType]int{
		models.BriefSetup:      1,
		models.BriefFeature:    1,
		models.BriefDeployment: 0,
	}, s.BriefProcessing.BriefTypes)
	assert.Equal(t, BriefStats{
		File:           "project_setup.md",
		Type:           models.BriefSetup,
		Title:          "Project Setup - Widget CLI",
		TasksExtracted: 3,
	}, s.BriefProcessing.BriefsByFile[0])

	assert.Equal(t, 3, s.DependencyAnalysis.DependenciesSuggested)
	assert.Equal(t, 1, s.DependencyAnalysis.DependenciesApplied)
	assert.Equal(t, ConfidenceDistribution{High: 3}, s.DependencyAnalysis.ConfidenceDistribution)

	assert.Equal(t, 5, s.CollectionStats.TotalTasks)
	assert.Equal(t, 1, s.CollectionStats.UnlockedTasks)
	assert.Equal(t, 0, s.CollectionStats.DependencyErrors)
	require.Len(t, s.CollectionStats.TopologicalOrder, 5)
	assert.Equal(t, 1, s.CollectionStats.TopologicalOrder[0])
}

func TestNotGenerated(t *testing.T) {
	f := newFixture(t)
	g := f.generator(t, Options{})

	err := g.GenerateTasksJSON(context.Background(), "tasks.json", "p")
	assert.ErrorIs(t, err, ErrNotGenerated)
	_, err = g.Summary()
	assert.ErrorIs(t, err, ErrNotGenerated)
	assert.Nil(t, g.Collection())
}

func TestProcessBriefFiles_ParseFailureAborts(t *testing.T) {
	f := newFixture(t)
	good := f.write(t, "project_setup.md", setupBrief)
	empty := f.write(t, "empty_feature.md", "   \n")
	g := f.generator(t, Options{ParseWorkers: 4})

	_, err := g.ProcessBriefFiles(context.Background(), []string{good, empty})
	require.ErrorIs(t, err, parser.ErrParse)
	assert.Nil(t, g.Collection())
}

func TestProcessBriefFiles_ParallelFailureNamesBrief(t *testing.T) {
	for run := 0; run < 20; run++ {
		f := newFixture(t)
		var paths []string
		for i := 0; i < 7; i++ {
			paths = append(paths, f.write(t, fmt.Sprintf("feature_%02d.md", i), featureBrief))
		}
		paths = append(paths, f.write(t, "feature_99.md", "\n"))
		g := f.generator(t, Options{ParseWorkers: 8})

		_, err := g.ProcessBriefFiles(context.Background(), paths)
		require.ErrorIs(t, err, parser.ErrParse)
		assert.NotErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "feature_99.md")
	}
}

func TestProcessBriefFiles_CancelledContext(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	g := f.generator(t, Options{ParseWorkers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.ProcessBriefFiles(ctx, []string{setup})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessBriefFiles_ParallelKeepsOrder(t *testing.T) {
	f := newFixture(t)
	var paths []string
	for i := 0; i < 12; i++ {
		paths = append(paths, f.write(t, fmt.Sprintf("feature_%02d.md", i), featureBrief))
	}
	g := f.generator(t, Options{ParseWorkers: 4})

	_, err := g.ProcessBriefFiles(context.Background(), paths)
	require.NoError(t, err)
	for i, b := range g.Briefs() {
		assert.Equal(t, filepath.Base(paths[i]), b.Name())
	}
}

func TestProcessBriefFiles_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	g := f.generator(t, Options{})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup})
	require.NoError(t, err)
	_, err = g.ProcessBriefFiles(context.Background(), []string{setup})
	assert.Error(t, err)
}

func TestProcessBriefDirectory(t *testing.T) {
	f := newFixture(t)
	f.write(t, "briefs/search_feature.md", featureBrief)
	f.write(t, "briefs/project_setup.md", setupBrief)
	f.write(t, "briefs/notes.txt", "ignored")
	g := f.generator(t, Options{})

	c, err := g.ProcessBriefDirectory(context.Background(), "briefs")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, "project_setup.md", g.Briefs()[0].Name())
}

func TestProcessBriefDirectory_Empty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "briefs"), 0o755))
	g := f.generator(t, Options{})

	_, err := g.ProcessBriefDirectory(context.Background(), "briefs")
	require.ErrorIs(t, err, fileio.ErrFileIO)
	assert.Contains(t, err.Error(), "No brief files found in briefs")
}

func TestNew_InvalidThreshold(t *testing.T) {
	f := newFixture(t)
	threshold := 1.5
	_, err := New(Options{Files: f.files, ApplyThreshold: &threshold})
	assert.Error(t, err)
}

func TestProcessBriefFiles_ZeroThresholdAppliesEverything(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "briefs/project_setup.md", setupBrief)
	feature := f.write(t, "briefs/search_feature.md", featureBrief)
	threshold := 0.0
	g := f.generator(t, Options{ApplyThreshold: &threshold})
	assert.Equal(t, 0.0, g.threshold)

	c, err := g.ProcessBriefFiles(context.Background(), []string{setup, feature})
	require.NoError(t, err)
	require.NotEmpty(t, g.Analysis().Suggestions)
	for _, s := range g.Analysis().Suggestions {
		task, _ := c.Get(s.From)
		assert.True(t, task.HasDependency(s.To), "%d -> %d not applied", s.From, s.To)
	}
}

type fakeRecorder struct {
	runs []*models.GenerationRun
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, run *models.GenerationRun) error {
	if r.err != nil {
		return r.err
	}
	run.ID = fmt.Sprintf("run-%d", len(r.runs)+1)
	r.runs = append(r.runs, run)
	return nil
}

func TestGenerateTasksJSON_RecordsRun(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	feature := f.write(t, "search_feature.md", featureBrief)
	rec := &fakeRecorder{}
	g := f.generator(t, Options{Recorder: rec})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup, feature})
	require.NoError(t, err)
	require.NoError(t, g.GenerateTasksJSON(context.Background(), "tasks.json", "Widget CLI"))

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, "Widget CLI", run.Project)
	assert.Equal(t, "tasks.json", run.OutputPath)
	assert.Equal(t, 2, run.BriefCount)
	assert.Equal(t, 5, run.TotalTasks)
	assert.Equal(t, 5, run.NewTasks)
	assert.Equal(t, 1, run.UnlockedTasks)
	assert.Equal(t, 3, run.Suggestions)
	assert.Equal(t, 1, run.Applied)
	assert.Equal(t, "[]", run.Warnings)
	require.Len(t, run.Briefs, 2)
	assert.Equal(t, "project_setup.md", run.Briefs[0].File)
	assert.Equal(t, "run-1", g.LastRunID())
}

func TestGenerateTasksJSON_RecorderFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	setup := f.write(t, "project_setup.md", setupBrief)
	g := f.generator(t, Options{Recorder: &fakeRecorder{err: errors.New("database is locked")}})

	_, err := g.ProcessBriefFiles(context.Background(), []string{setup})
	require.NoError(t, err)
	require.NoError(t, g.GenerateTasksJSON(context.Background(), "tasks.json", "p"))
	assert.Empty(t, g.LastRunID())

	_, err = os.Stat(filepath.Join(f.dir, "tasks.json"))
	assert.NoError(t, err)
}
