package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/parsinator/internal/config"
	"github.com/zulandar/parsinator/internal/db"
	"github.com/zulandar/parsinator/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.Open(config.StoreConfig{Driver: config.DriverSQLite, Path: db.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(gdb) })
	require.NoError(t, db.AutoMigrate(gdb))
	return NewStore(gdb)
}

func TestRecordAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	warnings, err := EncodeWarnings([]string{"Task 3 depends on itself"})
	require.NoError(t, err)
	run := &models.GenerationRun{
		Project:     "Widget CLI",
		OutputPath:  "tasks.json",
		BriefCount:  2,
		TotalTasks:  5,
		NewTasks:    5,
		Suggestions: 4,
		Applied:     3,
		Warnings:    warnings,
		Briefs: []models.RunBrief{
			{File: "setup.md", Type: "setup", Title: "Setup", TaskCount: 3},
			{File: "feature.md", Type: "feature", Title: "Search", TaskCount: 2},
		},
	}
	require.NoError(t, s.Record(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget CLI", got.Project)
	assert.Equal(t, 3, got.Applied)
	require.Len(t, got.Briefs, 2)
	assert.Equal(t, run.ID, got.Briefs[0].RunID)

	decoded, err := DecodeWarnings(got.Warnings)
	require.NoError(t, err)
	assert.Equal(t, []string{"Task 3 depends on itself"}, decoded)
}

func TestRecord_EmptyWarnings(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	run := &models.GenerationRun{Project: "p"}
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "[]", got.Warnings)
	decoded, err := DecodeWarnings(got.Warnings)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestGet_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, project := range []string{"first", "second", "third"} {
		run := &models.GenerationRun{Project: project, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.Record(ctx, run))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].Project)
	assert.Equal(t, "second", runs[1].Project)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDecodeWarnings_Invalid(t *testing.T) {
	_, err := DecodeWarnings("{")
	assert.Error(t, err)
}
