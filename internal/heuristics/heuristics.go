// Package heuristics collects every keyword list, weight and confidence
// threshold the parser, ID manager and dependency mapper score with, so
// they can be tuned from configuration and tested on their own.
package heuristics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zulandar/parsinator/internal/models"
)

// RelationshipType classifies an inferred dependency edge.
type RelationshipType string

const (
	Sequential   RelationshipType = "sequential"
	Prerequisite RelationshipType = "prerequisite"
	Blocking     RelationshipType = "blocking"
	Optional     RelationshipType = "optional"
)

// Implementation pattern categories.
const (
	Foundation     = "foundation"
	Implementation = "implementation"
	Integration    = "integration"
	Testing        = "testing"
	Documentation  = "documentation"
	Deployment     = "deployment"
)

// KeywordSet is a named, ordered keyword list. Order matters wherever the
// first match wins.
type KeywordSet struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// SectionSpec names a brief section whose list items become tasks.
type SectionSpec struct {
	Heading  string          `yaml:"heading"`
	Priority models.Priority `yaml:"priority"`
	Optional bool            `yaml:"optional"`
}

// BriefTypeRule describes how a brief type relates to the others.
type BriefTypeRule struct {
	Priority           int                `yaml:"priority"`
	DependsOn          []models.BriefType `yaml:"depends_on"`
	TypicallyBlocks    []models.BriefType `yaml:"typically_blocks"`
	InternalSequential bool               `yaml:"internal_sequential"`
}

// Heuristics is the full tuning surface of the pipeline.
type Heuristics struct {
	// Brief classification.
	TypeFilenameHints     []TypeHint                           `yaml:"type_filename_hints"`
	TypeContentIndicators []TypeHint                           `yaml:"type_content_indicators"`
	DescriptionSections   []string                             `yaml:"description_sections"`
	TaskSections          map[models.BriefType][]SectionSpec   `yaml:"task_sections"`
	MetadataSections      map[models.BriefType]MetadataSection `yaml:"metadata_sections"`

	// Task ID assignment.
	BasePriority         map[models.BriefType]models.Priority `yaml:"base_priority"`
	HighPriorityKeywords []string                             `yaml:"high_priority_keywords"`
	LowPriorityKeywords  []string                             `yaml:"low_priority_keywords"`
	BriefTypeKeywords    map[models.BriefType][]string        `yaml:"brief_type_keywords"`
	TitleWordLimit       int                                  `yaml:"title_word_limit"`

	// Dependency mapping.
	DependencyKeywords     []RelationshipKeywords             `yaml:"dependency_keywords"`
	ImplementationPatterns []KeywordSet                       `yaml:"implementation_patterns"`
	PrerequisitePatterns   map[string][]string                `yaml:"prerequisite_patterns"`
	BriefTypeRules         map[models.BriefType]BriefTypeRule `yaml:"brief_type_rules"`

	TitleOverlapWeight   float64 `yaml:"title_overlap_weight"`
	ContentOverlapWeight float64 `yaml:"content_overlap_weight"`
	TypeMatchWeight      float64 `yaml:"type_match_weight"`
	GroupingThreshold    float64 `yaml:"grouping_threshold"`
	SequentialConfidence float64 `yaml:"sequential_confidence"`
	PatternConfidence    float64 `yaml:"pattern_confidence"`
	CrossBriefConfidence float64 `yaml:"cross_brief_confidence"`
	ContentConfidenceCap float64 `yaml:"content_confidence_cap"`
	MinContextOverlap    int     `yaml:"min_context_overlap"`
	ContextWindow        int     `yaml:"context_window"`

	// Reporting and application.
	HighConfidence   float64 `yaml:"high_confidence"`
	MediumConfidence float64 `yaml:"medium_confidence"`
	ApplyThreshold   float64 `yaml:"apply_threshold"`
}

// TypeHint maps a brief type to the substrings that indicate it.
type TypeHint struct {
	Type     models.BriefType `yaml:"type"`
	Keywords []string         `yaml:"keywords"`
}

// MetadataSection is the free-text section recorded for a brief type.
type MetadataSection struct {
	Heading string `yaml:"heading"`
	Key     string `yaml:"key"`
}

// RelationshipKeywords ties a relationship type to the phrases that signal it.
type RelationshipKeywords struct {
	Type     RelationshipType `yaml:"type"`
	Keywords []string         `yaml:"keywords"`
}

// Default returns the stock heuristics.
func Default() *Heuristics {
	return &Heuristics{
		TypeFilenameHints: []TypeHint{
			{Type: models.BriefSetup, Keywords: []string{"setup", "project"}},
			{Type: models.BriefDeployment, Keywords: []string{"deployment", "deploy"}},
			{Type: models.BriefFeature, Keywords: []string{"feature"}},
		},
		TypeContentIndicators: []TypeHint{
			{Type: models.BriefSetup, Keywords: []string{
				"project setup", "infrastructure", "cli structure", "technical requirements", "setup scope",
			}},
			{Type: models.BriefDeployment, Keywords: []string{
				"deployment", "testing", "documentation", "release", "quality assurance", "deployment goal",
			}},
		},
		DescriptionSections: []string{"problem statement", "deployment goal", "project description"},
		TaskSections: map[models.BriefType][]SectionSpec{
			models.BriefSetup: {
				{Heading: "core setup tasks", Priority: models.PriorityHigh},
				{Heading: "optional setup tasks", Priority: models.PriorityMedium, Optional: true},
			},
			models.BriefFeature: {
				{Heading: "core feature tasks", Priority: models.PriorityHigh},
				{Heading: "must-have implementation", Priority: models.PriorityHigh},
				{Heading: "nice-to-have", Priority: models.PriorityMedium, Optional: true},
			},
			models.BriefDeployment: {
				{Heading: "core deployment tasks", Priority: models.PriorityHigh},
				{Heading: "must-have for release", Priority: models.PriorityHigh},
				{Heading: "quality improvements", Priority: models.PriorityMedium},
			},
		},
		MetadataSections: map[models.BriefType]MetadataSection{
			models.BriefSetup:      {Heading: "technical requirements", Key: "technical_requirements"},
			models.BriefFeature:    {Heading: "target users", Key: "target_users"},
			models.BriefDeployment: {Heading: "target environment", Key: "target_environment"},
		},

		BasePriority: map[models.BriefType]models.Priority{
			models.BriefSetup:      models.PriorityHigh,
			models.BriefFeature:    models.PriorityHigh,
			models.BriefDeployment: models.PriorityMedium,
		},
		HighPriorityKeywords: []string{
			"critical", "essential", "foundation", "core", "must-have", "required",
			"setup", "infrastructure", "framework", "basic", "fundamental",
		},
		LowPriorityKeywords: []string{
			"optional", "nice-to-have", "enhancement", "improvement", "optimization",
			"polish", "extra", "bonus", "future",
		},
		BriefTypeKeywords: map[models.BriefType][]string{
			models.BriefSetup:      {"setup", "structure", "cli", "directory", "framework", "foundation", "install", "configure"},
			models.BriefFeature:    {"implement", "create", "build", "feature", "functionality", "interface", "component"},
			models.BriefDeployment: {"test", "documentation", "deploy", "release", "quality", "error handling", "performance"},
		},
		TitleWordLimit: 6,

		DependencyKeywords: []RelationshipKeywords{
			{Type: Prerequisite, Keywords: []string{"requires", "needs", "depends on", "after", "once", "following"}},
			{Type: Blocking, Keywords: []string{"before", "prior to", "must precede", "prerequisite for"}},
			{Type: Sequential, Keywords: []string{"then", "next", "subsequently", "continue", "build on"}},
			{Type: Optional, Keywords: []string{"optionally", "if needed", "consider", "may want to"}},
		},
		ImplementationPatterns: []KeywordSet{
			{Name: Foundation, Keywords: []string{"setup", "initialize", "create structure", "establish", "configure"}},
			{Name: Implementation, Keywords: []string{"implement", "build", "create", "develop", "code"}},
			{Name: Integration, Keywords: []string{"integrate", "connect", "combine", "merge", "link"}},
			{Name: Testing, Keywords: []string{"test", "validate", "verify", "check", "ensure"}},
			{Name: Documentation, Keywords: []string{"document", "write docs", "create guide", "explain"}},
			{Name: Deployment, Keywords: []string{"deploy", "release", "publish", "distribute", "launch"}},
		},
		PrerequisitePatterns: map[string][]string{
			Implementation: {Foundation, "setup"},
			Integration:    {Implementation, Foundation},
			Testing:        {Implementation, Integration},
			Documentation:  {Implementation, Testing},
			Deployment:     {Testing, Documentation},
		},
		BriefTypeRules: map[models.BriefType]BriefTypeRule{
			models.BriefSetup: {
				Priority:           1,
				TypicallyBlocks:    []models.BriefType{models.BriefFeature, models.BriefDeployment},
				InternalSequential: true,
			},
			models.BriefFeature: {
				Priority:        2,
				DependsOn:       []models.BriefType{models.BriefSetup},
				TypicallyBlocks: []models.BriefType{models.BriefDeployment},
			},
			models.BriefDeployment: {
				Priority:           3,
				DependsOn:          []models.BriefType{models.BriefSetup, models.BriefFeature},
				InternalSequential: true,
			},
		},

		TitleOverlapWeight:   0.4,
		ContentOverlapWeight: 0.4,
		TypeMatchWeight:      0.2,
		GroupingThreshold:    0.3,
		SequentialConfidence: 0.8,
		PatternConfidence:    0.7,
		CrossBriefConfidence: 0.9,
		ContentConfidenceCap: 0.9,
		MinContextOverlap:    2,
		ContextWindow:        10,

		HighConfidence:   0.8,
		MediumConfidence: 0.5,
		ApplyThreshold:   0.7,
	}
}

// Validate checks that every threshold is a valid confidence and the
// scoring weights can produce a positive score.
func (h *Heuristics) Validate() error {
	var errs []string
	unit := map[string]float64{
		"grouping_threshold":     h.GroupingThreshold,
		"sequential_confidence":  h.SequentialConfidence,
		"pattern_confidence":     h.PatternConfidence,
		"cross_brief_confidence": h.CrossBriefConfidence,
		"content_confidence_cap": h.ContentConfidenceCap,
		"high_confidence":        h.HighConfidence,
		"medium_confidence":      h.MediumConfidence,
		"apply_threshold":        h.ApplyThreshold,
	}
	for _, name := range sortedNames(unit) {
		if v := unit[name]; v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0,1], got %g", name, v))
		}
	}
	if h.TitleOverlapWeight < 0 || h.ContentOverlapWeight < 0 || h.TypeMatchWeight < 0 {
		errs = append(errs, "scoring weights must not be negative")
	}
	if h.TitleOverlapWeight+h.ContentOverlapWeight+h.TypeMatchWeight <= 0 {
		errs = append(errs, "scoring weights must sum to a positive value")
	}
	if h.MediumConfidence > h.HighConfidence {
		errs = append(errs, "medium_confidence must not exceed high_confidence")
	}
	if h.TitleWordLimit <= 0 {
		errs = append(errs, "title_word_limit must be positive")
	}
	if h.ContextWindow < 0 {
		errs = append(errs, "context_window must not be negative")
	}
	for bt := range h.TaskSections {
		if !bt.Valid() {
			errs = append(errs, fmt.Sprintf("task_sections: unknown brief type %q", bt))
		}
	}
	for bt, p := range h.BasePriority {
		if !p.Valid() {
			errs = append(errs, fmt.Sprintf("base_priority[%s]: invalid priority %q", bt, p))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("heuristics: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PatternCategories returns the implementation pattern names in order.
func (h *Heuristics) PatternCategories() []string {
	names := make([]string, len(h.ImplementationPatterns))
	for i, p := range h.ImplementationPatterns {
		names[i] = p.Name
	}
	return names
}

// Pattern returns the keywords of the named implementation pattern.
func (h *Heuristics) Pattern(name string) ([]string, bool) {
	for _, p := range h.ImplementationPatterns {
		if p.Name == name {
			return p.Keywords, true
		}
	}
	return nil, false
}

// Rule returns the rule for bt and whether one is defined.
func (h *Heuristics) Rule(bt models.BriefType) (BriefTypeRule, bool) {
	r, ok := h.BriefTypeRules[bt]
	return r, ok
}

// ConfidenceBucket names the bucket c falls into.
func (h *Heuristics) ConfidenceBucket(c float64) string {
	switch {
	case c >= h.HighConfidence:
		return "high"
	case c >= h.MediumConfidence:
		return "medium"
	default:
		return "low"
	}
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
