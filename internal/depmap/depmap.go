// Package depmap infers dependencies between generated tasks and applies
// the confident ones to a collection.
package depmap

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/models"
)

// RelationshipType classifies a suggested edge.
type RelationshipType = heuristics.RelationshipType

const (
	Sequential   = heuristics.Sequential
	Prerequisite = heuristics.Prerequisite
	Blocking     = heuristics.Blocking
	Optional     = heuristics.Optional
)

// UnassignedGroup holds tasks that matched no brief.
const UnassignedGroup = "_unassigned"

// Relationship suggests that task From depends on task To.
type Relationship struct {
	From       int              `json:"from_task_id"`
	To         int              `json:"to_task_id"`
	Type       RelationshipType `json:"relationship_type"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
}

// Analysis is the result of AnalyzeDependencies.
type Analysis struct {
	Suggestions []Relationship `json:"suggested_dependencies"`
	Warnings    []string       `json:"warnings"`
	Statistics  Statistics     `json:"statistics"`
}

// Statistics summarises a set of suggestions.
type Statistics struct {
	TotalDependenciesSuggested int                      `json:"total_dependencies_suggested"`
	DependencyTypes            map[RelationshipType]int `json:"dependency_types"`
	ConfidenceDistribution     ConfidenceBuckets        `json:"confidence_distribution"`
	TasksWithDependencies      int                      `json:"tasks_with_dependencies"`
	DependencyDensity          float64                  `json:"dependency_density"`
	AverageConfidence          float64                  `json:"average_confidence"`
}

// ConfidenceBuckets counts suggestions per confidence band.
type ConfidenceBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Group is the set of tasks associated with one brief.
type Group struct {
	Key   string
	Type  models.BriefType
	Tasks []*models.Task
}

var wordRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// Mapper runs the dependency inference passes.
type Mapper struct {
	h *heuristics.Heuristics
}

// New returns a Mapper scoring with h. A nil h means the stock heuristics.
func New(h *heuristics.Heuristics) *Mapper {
	if h == nil {
		h = heuristics.Default()
	}
	return &Mapper{h: h}
}

// AnalyzeDependencies suggests edges from three passes: brief-internal
// ordering, cross-brief ordering, and dependency phrases in task text.
// Suggestions are concatenated in that order; cycles among them are
// reported as warnings and left in place.
func (m *Mapper) AnalyzeDependencies(briefs []*models.BriefContent, c *models.TaskCollection) *Analysis {
	log.Info().Int("briefs", len(briefs)).Int("tasks", c.Len()).Msg("analyzing dependencies")

	groups := m.GroupTasks(briefs, c)

	var suggestions []Relationship
	suggestions = append(suggestions, m.withinBrief(groups)...)
	suggestions = append(suggestions, m.crossBrief(briefs, groups)...)
	suggestions = append(suggestions, m.contentDependencies(c)...)

	a := &Analysis{
		Suggestions: suggestions,
		Warnings:    detectCycles(suggestions),
		Statistics:  m.statistics(suggestions, c),
	}
	if a.Suggestions == nil {
		a.Suggestions = []Relationship{}
	}
	if a.Warnings == nil {
		a.Warnings = []string{}
	}
	log.Info().
		Int("suggestions", len(a.Suggestions)).
		Int("warnings", len(a.Warnings)).
		Msg("dependency analysis complete")
	return a
}

// GroupTasks associates every task with each brief it scores above the
// grouping threshold for. A task may land in several groups. Tasks that
// match no brief form the UnassignedGroup, which is last.
func (m *Mapper) GroupTasks(briefs []*models.BriefContent, c *models.TaskCollection) []*Group {
	var groups []*Group
	index := make(map[string]*Group)
	all := c.All()

	for _, b := range briefs {
		key := groupKey(b)
		g, ok := index[key]
		if !ok {
			g = &Group{Key: key, Type: b.Type}
			index[key] = g
			groups = append(groups, g)
		}
		g.Tasks = nil
		for _, t := range all {
			if m.belongsTo(t, b) {
				g.Tasks = append(g.Tasks, t)
			}
		}
	}

	assigned := make(map[int]bool)
	for _, g := range groups {
		for _, t := range g.Tasks {
			assigned[t.ID] = true
		}
	}
	var unassigned []*models.Task
	for _, t := range all {
		if !assigned[t.ID] {
			unassigned = append(unassigned, t)
		}
	}
	if len(unassigned) > 0 {
		groups = append(groups, &Group{Key: UnassignedGroup, Tasks: unassigned})
	}
	return groups
}

func groupKey(b *models.BriefContent) string {
	return string(b.Type) + "_" + b.Stem()
}

// belongsTo scores task against brief on title overlap, content overlap
// and matches of the implementation pattern named like the brief type.
func (m *Mapper) belongsTo(t *models.Task, b *models.BriefContent) bool {
	text := t.Text()
	taskWords := wordSet(text)
	titleWords := wordSet(strings.ToLower(b.Title))
	briefWords := wordSet(b.Text())

	titleOverlap := float64(intersect(titleWords, taskWords)) / float64(max(len(titleWords), 1))
	contentOverlap := float64(intersect(briefWords, taskWords)) / float64(max(len(briefWords), 1))

	typeMatches := 0
	if patterns, ok := m.h.Pattern(string(b.Type)); ok {
		for _, p := range patterns {
			if strings.Contains(text, p) {
				typeMatches++
			}
		}
	}

	score := titleOverlap*m.h.TitleOverlapWeight +
		contentOverlap*m.h.ContentOverlapWeight +
		float64(typeMatches)*m.h.TypeMatchWeight
	return score > m.h.GroupingThreshold
}

func (m *Mapper) withinBrief(groups []*Group) []Relationship {
	var out []Relationship
	for _, g := range groups {
		if len(g.Tasks) <= 1 {
			continue
		}
		tasks := sortedByID(g.Tasks)

		// The unassigned group has no rule and is treated as sequential.
		rule, ok := m.h.Rule(g.Type)
		if !ok || rule.InternalSequential {
			for i := 1; i < len(tasks); i++ {
				out = append(out, Relationship{
					From:       tasks[i].ID,
					To:         tasks[i-1].ID,
					Type:       Sequential,
					Confidence: m.h.SequentialConfidence,
					Reason:     fmt.Sprintf("Sequential dependency within %s brief", g.Type),
				})
			}
			continue
		}
		out = append(out, m.patternDependencies(tasks)...)
	}
	return out
}

// patternDependencies links each task to every other task in the group
// that mentions a prerequisite category of a pattern the task matches.
func (m *Mapper) patternDependencies(tasks []*models.Task) []Relationship {
	var out []Relationship
	for i, t := range tasks {
		text := t.Text()
		for _, pattern := range m.h.ImplementationPatterns {
			if !containsAny(text, pattern.Keywords) {
				continue
			}
			prereqs := m.h.PrerequisitePatterns[pattern.Name]
			for j, other := range tasks {
				if i == j || !containsAny(other.Text(), prereqs) {
					continue
				}
				out = append(out, Relationship{
					From:       t.ID,
					To:         other.ID,
					Type:       Prerequisite,
					Confidence: m.h.PatternConfidence,
					Reason:     fmt.Sprintf("%s requires foundation from other task", pattern.Name),
				})
			}
		}
	}
	return out
}

// crossBrief links the first task of a brief to the last task of each
// earlier brief it depends on, by rule or by mentioning its title.
func (m *Mapper) crossBrief(briefs []*models.BriefContent, groups []*Group) []Relationship {
	index := make(map[string]*Group, len(groups))
	for _, g := range groups {
		index[g.Key] = g
	}

	sorted := make([]*models.BriefContent, len(briefs))
	copy(sorted, briefs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return m.rulePriority(sorted[i].Type) < m.rulePriority(sorted[j].Type)
	})

	var out []Relationship
	for i, current := range sorted {
		cur := index[groupKey(current)]
		if cur == nil || len(cur.Tasks) == 0 {
			continue
		}
		for _, prev := range sorted[:i] {
			pg := index[groupKey(prev)]
			if pg == nil || len(pg.Tasks) == 0 {
				continue
			}
			if !m.shouldLinkBriefs(current, prev) {
				continue
			}
			out = append(out, Relationship{
				From:       minID(cur.Tasks),
				To:         maxID(pg.Tasks),
				Type:       Prerequisite,
				Confidence: m.h.CrossBriefConfidence,
				Reason:     fmt.Sprintf("%s depends on %s completion", current.Type, prev.Type),
			})
		}
	}
	return out
}

func (m *Mapper) rulePriority(bt models.BriefType) int {
	if rule, ok := m.h.Rule(bt); ok {
		return rule.Priority
	}
	return 999
}

func (m *Mapper) shouldLinkBriefs(current, prev *models.BriefContent) bool {
	if rule, ok := m.h.Rule(current.Type); ok {
		for _, dep := range rule.DependsOn {
			if dep == prev.Type {
				return true
			}
		}
	}
	text := current.Text()
	for word := range wordSet(strings.ToLower(prev.Title)) {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// contentDependencies looks for dependency phrases in each task and links
// it to tasks sharing enough words with the phrase's surroundings.
func (m *Mapper) contentDependencies(c *models.TaskCollection) []Relationship {
	all := c.All()
	var out []Relationship
	for _, t := range all {
		text := t.Text()
		for _, group := range m.h.DependencyKeywords {
			for _, kw := range group.Keywords {
				if !strings.Contains(text, kw) {
					continue
				}
				context := wordSet(keywordContext(text, kw, m.h.ContextWindow))
				for _, other := range all {
					if other.ID == t.ID {
						continue
					}
					words := wordSet(other.Text())
					overlap := intersect(words, context)
					if overlap < m.h.MinContextOverlap || len(words) == 0 {
						continue
					}
					out = append(out, Relationship{
						From:       t.ID,
						To:         other.ID,
						Type:       group.Type,
						Confidence: min(m.h.ContentConfidenceCap, float64(overlap)/float64(len(words))),
						Reason:     fmt.Sprintf("Content mentions '%s'", kw),
					})
				}
			}
		}
	}
	return out
}

// keywordContext returns up to window whitespace-separated tokens on each
// side of the first token equal to keyword. Multi-word keywords never
// equal a single token and yield an empty context.
func keywordContext(text, keyword string, window int) string {
	words := strings.Fields(text)
	for i, w := range words {
		if w != keyword {
			continue
		}
		start := max(0, i-window)
		end := min(len(words), i+window+1)
		return strings.Join(words[start:end], " ")
	}
	return ""
}

// detectCycles walks the suggestion graph depth first from each source in
// order of first appearance and warns once per root that reaches a cycle.
func detectCycles(suggestions []Relationship) []string {
	graph := make(map[int][]int)
	var roots []int
	for _, s := range suggestions {
		if _, ok := graph[s.From]; !ok {
			roots = append(roots, s.From)
		}
		graph[s.From] = append(graph[s.From], s.To)
	}

	visited := make(map[int]bool)
	onStack := make(map[int]bool)
	var hasCycle func(n int) bool
	hasCycle = func(n int) bool {
		if onStack[n] {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		onStack[n] = true
		for _, next := range graph[n] {
			if hasCycle(next) {
				return true
			}
		}
		onStack[n] = false
		return false
	}

	var warnings []string
	for _, root := range roots {
		if !visited[root] && hasCycle(root) {
			warnings = append(warnings, fmt.Sprintf("Circular dependency detected involving task %d", root))
		}
	}
	return warnings
}

func (m *Mapper) statistics(suggestions []Relationship, c *models.TaskCollection) Statistics {
	s := Statistics{
		TotalDependenciesSuggested: len(suggestions),
		DependencyTypes:            make(map[RelationshipType]int),
	}
	sources := make(map[int]bool)
	var total float64
	for _, r := range suggestions {
		s.DependencyTypes[r.Type]++
		switch m.h.ConfidenceBucket(r.Confidence) {
		case "high":
			s.ConfidenceDistribution.High++
		case "medium":
			s.ConfidenceDistribution.Medium++
		default:
			s.ConfidenceDistribution.Low++
		}
		sources[r.From] = true
		total += r.Confidence
	}
	s.TasksWithDependencies = len(sources)
	s.DependencyDensity = float64(len(suggestions)) / float64(max(c.Len(), 1))
	s.AverageConfidence = total / float64(max(len(suggestions), 1))
	return s
}

// ApplyDependencies adds every suggestion with confidence at or above
// threshold to c, skipping self-edges and edges already present. It
// returns the number of edges added.
func (m *Mapper) ApplyDependencies(c *models.TaskCollection, suggestions []Relationship, threshold float64) int {
	applied := 0
	for _, s := range suggestions {
		if s.Confidence < threshold || s.From == s.To {
			continue
		}
		added, err := c.AddDependency(s.From, s.To)
		if err != nil || !added {
			continue
		}
		applied++
		log.Debug().
			Int("from", s.From).
			Int("to", s.To).
			Str("reason", s.Reason).
			Msg("applied dependency")
	}
	return applied
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(s, -1) {
		set[w] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func sortedByID(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	copy(out, tasks)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func minID(tasks []*models.Task) int {
	id := tasks[0].ID
	for _, t := range tasks[1:] {
		id = min(id, t.ID)
	}
	return id
}

func maxID(tasks []*models.Task) int {
	id := tasks[0].ID
	for _, t := range tasks[1:] {
		id = max(id, t.ID)
	}
	return id
}
