// Package history persists a record of each generation run.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zulandar/parsinator/internal/models"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("history: run not found")

// Recorder stores finished generation runs.
type Recorder interface {
	Record(ctx context.Context, run *models.GenerationRun) error
}

// Store is the GORM-backed Recorder.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over a migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Record inserts run and its briefs, assigning a fresh ID when run has none.
func (s *Store) Record(ctx context.Context, run *models.GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	for i := range run.Briefs {
		run.Briefs[i].RunID = run.ID
	}
	if run.Warnings == "" {
		run.Warnings = "[]"
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("history: record run %s: %w", run.ID, err)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []models.GenerationRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given ID together with its briefs.
func (s *Store) Get(ctx context.Context, id string) (*models.GenerationRun, error) {
	var run models.GenerationRun
	err := s.db.WithContext(ctx).Preload("Briefs").Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("history: get run %s: %w", id, err)
	}
	return &run, nil
}

// EncodeWarnings serializes warnings for GenerationRun.Warnings.
func EncodeWarnings(warnings []string) (string, error) {
	if warnings == nil {
		warnings = []string{}
	}
	data, err := json.Marshal(warnings)
	if err != nil {
		return "", fmt.Errorf("history: encode warnings: %w", err)
	}
	return string(data), nil
}

// DecodeWarnings reverses EncodeWarnings. An empty string yields no warnings.
func DecodeWarnings(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var warnings []string
	if err := json.Unmarshal([]byte(s), &warnings); err != nil {
		return nil, fmt.Errorf("history: decode warnings: %w", err)
	}
	return warnings, nil
}
