// Package idmanager assigns task IDs to parsed briefs, continuing the ID
// space of an existing tasks.json in additive sessions.
package idmanager

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zulandar/parsinator/internal/fileio"
	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/models"
)

// Manager turns briefs into tasks with monotonically increasing IDs.
type Manager struct {
	h *heuristics.Heuristics

	existing     *models.TaskCollection
	existingMeta *models.ProjectMetadata

	nextAvailableID int
	reserved        map[int]bool
	briefTasks      map[string][]int
}

// New returns a Manager. When existingTasksFile is set it is loaded
// through files: a missing file starts a fresh project, while an
// unreadable or malformed one is an error.
func New(files *fileio.Handler, existingTasksFile string, h *heuristics.Heuristics) (*Manager, error) {
	if h == nil {
		h = heuristics.Default()
	}
	m := &Manager{
		h:               h,
		nextAvailableID: 1,
		reserved:        make(map[int]bool),
		briefTasks:      make(map[string][]int),
	}
	if existingTasksFile == "" {
		return m, nil
	}
	if err := m.load(files, existingTasksFile); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load(files *fileio.Handler, path string) error {
	doc, err := files.ReadTasks(path)
	if err != nil {
		return fmt.Errorf("idmanager: load existing tasks: %w", err)
	}
	if doc == nil {
		log.Info().Str("path", path).Msg("no existing tasks, starting from ID 1")
		return nil
	}
	collection, meta, err := models.FromTasksJSON(doc)
	if err != nil {
		return fmt.Errorf("idmanager: load existing tasks %s: %w", path, err)
	}
	m.existing = collection
	m.existingMeta = meta

	ids := collection.IDs()
	if len(ids) == 0 {
		log.Info().Str("path", path).Msg("existing tasks file is empty, starting from ID 1")
		return nil
	}
	for _, id := range ids {
		m.reserved[id] = true
	}
	m.nextAvailableID = ids[len(ids)-1] + 1
	log.Info().
		Str("path", path).
		Int("tasks", len(ids)).
		Int("next_id", m.nextAvailableID).
		Msg("loaded existing tasks")
	return nil
}

// AssignTaskIDs creates one task per raw task string of every brief.
// Briefs are processed setup first, then feature, then deployment, and by
// file name within a type. The first task of a brief depends on the
// newest task of each prerequisite brief type; every later task depends
// on the one before it.
//
// In an additive session the loaded collection is extended in place and
// returned.
func (m *Manager) AssignTaskIDs(briefs []*models.BriefContent) (*models.TaskCollection, error) {
	collection := m.existing
	if collection == nil {
		collection = models.NewTaskCollection()
		collection.SetNextID(m.nextAvailableID)
	}

	ordered := orderBriefs(briefs)
	typeDeps := m.briefTypeDependencies(ordered)

	for _, brief := range ordered {
		ids, err := m.generateTasks(brief, collection, typeDeps[brief.Type])
		if err != nil {
			return nil, err
		}
		m.briefTasks[brief.Name()] = append(m.briefTasks[brief.Name()], ids...)
		log.Info().Str("brief", brief.Name()).Int("tasks", len(ids)).Msg("generated tasks for brief")
	}
	return collection, nil
}

func orderBriefs(briefs []*models.BriefContent) []*models.BriefContent {
	ordered := make([]*models.BriefContent, len(briefs))
	copy(ordered, briefs)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oj := ordered[i].Type.Order(), ordered[j].Type.Order()
		if oi != oj {
			return oi < oj
		}
		return ordered[i].Name() < ordered[j].Name()
	})
	return ordered
}

// briefTypeDependencies keeps, for each brief type, the prerequisite types
// its rule names that are actually present in this batch.
func (m *Manager) briefTypeDependencies(briefs []*models.BriefContent) map[models.BriefType][]models.BriefType {
	present := make(map[models.BriefType]bool)
	for _, b := range briefs {
		present[b.Type] = true
	}
	deps := make(map[models.BriefType][]models.BriefType)
	for _, bt := range models.BriefTypes {
		rule, ok := m.h.Rule(bt)
		if !ok {
			continue
		}
		for _, dep := range rule.DependsOn {
			if present[dep] {
				deps[bt] = append(deps[bt], dep)
			}
		}
	}
	return deps
}

func (m *Manager) generateTasks(brief *models.BriefContent, collection *models.TaskCollection, prereqs []models.BriefType) ([]int, error) {
	base, ok := m.h.BasePriority[brief.Type]
	if !ok {
		base = models.PriorityMedium
	}
	anchors := m.resolveAnchors(collection, prereqs)

	var ids []int
	for _, raw := range brief.Tasks {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		title, description := m.splitTask(raw)
		priority := m.taskPriority(title, description, base)

		var deps []int
		if len(ids) == 0 {
			deps = append(deps, anchors...)
		} else {
			deps = append(deps, ids[len(ids)-1])
		}

		task, err := collection.CreateTask(title, description, priority, deps)
		if err != nil {
			return nil, fmt.Errorf("idmanager: brief %s: %w", brief.Name(), err)
		}
		ids = append(ids, task.ID)
		log.Debug().Int("id", task.ID).Str("title", title).Msg("created task")
	}
	return ids, nil
}

// resolveAnchors picks, per prerequisite brief type, the highest-ID task
// whose text mentions one of that type's keywords.
func (m *Manager) resolveAnchors(collection *models.TaskCollection, prereqs []models.BriefType) []int {
	var anchors []int
	all := collection.All()
	for _, bt := range prereqs {
		keywords := m.h.BriefTypeKeywords[bt]
		for i := len(all) - 1; i >= 0; i-- {
			if containsAny(all[i].Text(), keywords) {
				anchors = append(anchors, all[i].ID)
				break
			}
		}
	}
	return anchors
}

// splitTask turns a raw "title: description" string into its parts. Raw
// strings without the separator get a truncated title.
func (m *Manager) splitTask(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if title, desc, ok := strings.Cut(raw, ": "); ok {
		title = strings.ReplaceAll(title, "*", "")
		return strings.TrimSpace(title), strings.TrimSpace(desc)
	}
	words := strings.Fields(raw)
	if len(words) > m.h.TitleWordLimit {
		return strings.Join(words[:m.h.TitleWordLimit], " ") + "...", raw
	}
	return raw, raw
}

func (m *Manager) taskPriority(title, description string, base models.Priority) models.Priority {
	combined := strings.ToLower(title) + " " + strings.ToLower(description)
	switch {
	case containsAny(combined, m.h.HighPriorityKeywords):
		return models.PriorityHigh
	case containsAny(combined, m.h.LowPriorityKeywords):
		return models.PriorityLow
	default:
		return base
	}
}

// NextAvailableID returns the lowest unreserved ID at or above the counter.
func (m *Manager) NextAvailableID() int {
	for m.reserved[m.nextAvailableID] {
		m.nextAvailableID++
	}
	return m.nextAvailableID
}

// ReserveID marks id as taken.
func (m *Manager) ReserveID(id int) {
	m.reserved[id] = true
	if id >= m.nextAvailableID {
		m.nextAvailableID = id + 1
	}
}

// ExistingMetadata is the project metadata loaded from the existing tasks
// file, or nil for a fresh project.
func (m *Manager) ExistingMetadata() *models.ProjectMetadata {
	return m.existingMeta
}

// BriefTaskIDs returns the IDs created for the brief with the given file
// name, in creation order.
func (m *Manager) BriefTaskIDs(name string) []int {
	return m.briefTasks[name]
}

// Summary describes a collection produced by AssignTaskIDs.
type Summary struct {
	TotalTasks             int                     `json:"total_tasks"`
	NewTasks               int                     `json:"new_tasks"`
	ExistingTasks          int                     `json:"existing_tasks"`
	PriorityDistribution   map[models.Priority]int `json:"priority_distribution"`
	DependencyDistribution DependencyDistribution  `json:"dependency_distribution"`
	IDRange                IDRange                 `json:"id_range"`
}

// DependencyDistribution splits tasks by whether they have dependencies.
type DependencyDistribution struct {
	NoDependencies  int `json:"no_dependencies"`
	HasDependencies int `json:"has_dependencies"`
}

// IDRange is the smallest and largest task ID, both zero when empty.
type IDRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Summary reports task counts for c, separating tasks loaded from the
// existing file from those created in this session.
func (m *Manager) Summary(c *models.TaskCollection) Summary {
	s := Summary{
		TotalTasks:           c.Len(),
		PriorityDistribution: make(map[models.Priority]int, len(models.Priorities)),
	}
	for _, p := range models.Priorities {
		s.PriorityDistribution[p] = 0
	}
	for _, t := range c.All() {
		s.PriorityDistribution[t.Priority]++
		if len(t.Dependencies) == 0 {
			s.DependencyDistribution.NoDependencies++
		} else {
			s.DependencyDistribution.HasDependencies++
		}
	}
	s.ExistingTasks = len(m.reserved)
	s.NewTasks = s.TotalTasks - s.ExistingTasks
	if ids := c.IDs(); len(ids) > 0 {
		s.IDRange = IDRange{Min: ids[0], Max: ids[len(ids)-1]}
	}
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
