package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structField(t *testing.T, v any, name string) reflect.StructField {
	t.Helper()
	f, ok := reflect.TypeOf(v).FieldByName(name)
	require.True(t, ok, "%T has no field %s", v, name)
	return f
}

func TestGenerationRun_Fields(t *testing.T) {
	tags := map[string][]string{
		"ID":        {"primaryKey", "size:36"},
		"Project":   {"index"},
		"Warnings":  {"type:text"},
		"CreatedAt": {"index"},
		"Briefs":    {"foreignKey:RunID"},
	}
	for name, want := range tags {
		tag := structField(t, GenerationRun{}, name).Tag.Get("gorm")
		for _, w := range want {
			assert.Contains(t, tag, w, "GenerationRun.%s", name)
		}
	}

	assert.Equal(t, "string", structField(t, GenerationRun{}, "ID").Type.String())
	assert.Equal(t, "time.Time", structField(t, GenerationRun{}, "CreatedAt").Type.String())
	assert.Equal(t, "[]models.RunBrief", structField(t, GenerationRun{}, "Briefs").Type.String())
}

func TestRunBrief_Fields(t *testing.T) {
	tags := map[string][]string{
		"ID":    {"primaryKey", "autoIncrement"},
		"RunID": {"size:36", "not null", "index"},
		"File":  {"not null"},
		"Type":  {"size:16"},
	}
	for name, want := range tags {
		tag := structField(t, RunBrief{}, name).Tag.Get("gorm")
		for _, w := range want {
			assert.Contains(t, tag, w, "RunBrief.%s", name)
		}
	}

	assert.Equal(t, "uint", structField(t, RunBrief{}, "ID").Type.String())
	assert.Equal(t, "int", structField(t, RunBrief{}, "TaskCount").Type.String())
}

func TestGenerationRun_Instantiation(t *testing.T) {
	now := time.Now()
	run := GenerationRun{
		ID:         "6f1c1f0e-8d2a-4a53-9a59-0f8f5d9b7c11",
		Project:    "Widget CLI",
		BriefCount: 2,
		TotalTasks: 5,
		Warnings:   "[]",
		CreatedAt:  now,
		Briefs: []RunBrief{
			{File: "setup.md", Type: string(BriefSetup), TaskCount: 3},
			{File: "search.md", Type: string(BriefFeature), TaskCount: 2},
		},
	}

	assert.Len(t, run.Briefs, run.BriefCount)
	assert.True(t, run.CreatedAt.Equal(now))
}
