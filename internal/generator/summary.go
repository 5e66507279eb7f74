package generator

import (
	"time"

	"github.com/zulandar/parsinator/internal/depmap"
	"github.com/zulandar/parsinator/internal/idmanager"
	"github.com/zulandar/parsinator/internal/models"
)

// Summary reports what a generation run produced.
type Summary struct {
	GenerationTimestamp string             `json:"generation_timestamp"`
	IDManagement        idmanager.Summary  `json:"id_management"`
	BriefProcessing     BriefProcessing    `json:"brief_processing"`
	DependencyAnalysis  DependencyAnalysis `json:"dependency_analysis"`
	CollectionStats     CollectionStats    `json:"collection_stats"`
}

// BriefProcessing breaks the run down per brief.
type BriefProcessing struct {
	BriefsProcessed int                      `json:"briefs_processed"`
	BriefTypes      map[models.BriefType]int `json:"brief_types"`
	BriefsByFile    []BriefStats             `json:"briefs_by_file"`
}

// BriefStats describes one processed brief.
type BriefStats struct {
	File           string           `json:"file"`
	Type           models.BriefType `json:"type"`
	Title          string           `json:"title"`
	TasksExtracted int              `json:"tasks_extracted"`
}

// DependencyAnalysis summarises the inferred dependencies.
type DependencyAnalysis struct {
	DependenciesSuggested  int                    `json:"dependencies_suggested"`
	DependenciesApplied    int                    `json:"dependencies_applied"`
	DependencyStatistics   depmap.Statistics      `json:"dependency_statistics"`
	Warnings               []string               `json:"warnings"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidence_distribution"`
}

// ConfidenceDistribution counts suggestions per confidence band.
type ConfidenceDistribution struct {
	High   int `json:"high_confidence"`
	Medium int `json:"medium_confidence"`
	Low    int `json:"low_confidence"`
}

// CollectionStats describes the final collection. TopologicalOrder is
// omitted when the collection has a cycle.
type CollectionStats struct {
	TotalTasks       int   `json:"total_tasks"`
	UnlockedTasks    int   `json:"unlocked_tasks"`
	DependencyErrors int   `json:"dependency_errors"`
	TopologicalOrder []int `json:"topological_order,omitempty"`
}

// Summary builds the run summary. It fails with ErrNotGenerated before
// any briefs were processed.
func (g *Generator) Summary() (*Summary, error) {
	if g.collection == nil {
		return nil, ErrNotGenerated
	}

	bp := BriefProcessing{
		BriefsProcessed: len(g.briefs),
		BriefTypes:      make(map[models.BriefType]int, len(models.BriefTypes)),
		BriefsByFile:    make([]BriefStats, 0, len(g.briefs)),
	}
	for _, bt := range models.BriefTypes {
		bp.BriefTypes[bt] = 0
	}
	for _, b := range g.briefs {
		bp.BriefTypes[b.Type]++
		bp.BriefsByFile = append(bp.BriefsByFile, BriefStats{
			File:           b.Name(),
			Type:           b.Type,
			Title:          b.Title,
			TasksExtracted: len(b.Tasks),
		})
	}

	stats := g.analysis.Statistics
	da := DependencyAnalysis{
		DependenciesSuggested: len(g.analysis.Suggestions),
		DependenciesApplied:   g.applied,
		DependencyStatistics:  stats,
		Warnings:              g.analysis.Warnings,
		ConfidenceDistribution: ConfidenceDistribution{
			High:   stats.ConfidenceDistribution.High,
			Medium: stats.ConfidenceDistribution.Medium,
			Low:    stats.ConfidenceDistribution.Low,
		},
	}

	cs := CollectionStats{
		TotalTasks:       g.collection.Len(),
		UnlockedTasks:    len(g.collection.UnlockedTasks()),
		DependencyErrors: len(g.warnings),
	}
	if order, err := g.collection.TopologicalOrder(); err == nil {
		cs.TopologicalOrder = order
	}

	return &Summary{
		GenerationTimestamp: g.generatedAt.Format(time.RFC3339),
		IDManagement:        g.ids.Summary(g.collection),
		BriefProcessing:     bp,
		DependencyAnalysis:  da,
		CollectionStats:     cs,
	}, nil
}
