package models

import "time"

const (
	DefaultProjectName        = "Generated Project"
	DefaultProjectDescription = "Generated from project briefs"
)

// ProjectMetadata is the project bookkeeping attached to a tasks.json
// document. Only Created, Updated and Description are persisted.
type ProjectMetadata struct {
	Name           string
	Description    string
	Created        time.Time
	Updated        time.Time
	TotalTasks     int
	CompletedTasks int

	// createdRaw keeps the loaded creation stamp so an untouched Created
	// is written back byte for byte.
	createdRaw string
}

// NewProjectMetadata stamps Created and Updated with now.
func NewProjectMetadata(name, description string, now time.Time) *ProjectMetadata {
	return &ProjectMetadata{
		Name:        name,
		Description: description,
		Created:     now,
		Updated:     now,
	}
}

// Refresh bumps Updated and recomputes the task counters from c.
func (m *ProjectMetadata) Refresh(c *TaskCollection, now time.Time) {
	m.Updated = now
	m.TotalTasks = c.Len()
	m.CompletedTasks = len(c.CompletedIDs())
}

// MetadataRecord is the persisted form of ProjectMetadata.
type MetadataRecord struct {
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Description string `json:"description"`
}

func (m *ProjectMetadata) record() MetadataRecord {
	created := formatTime(m.Created)
	if m.createdRaw != "" && parseTime(m.createdRaw, time.Time{}).Equal(m.Created) {
		created = m.createdRaw
	}
	return MetadataRecord{
		Created:     created,
		Updated:     formatTime(m.Updated),
		Description: m.Description,
	}
}

func metadataFromRecord(r MetadataRecord, name string, now time.Time) *ProjectMetadata {
	m := &ProjectMetadata{
		Name:        name,
		Description: r.Description,
		Created:     parseTime(r.Created, now),
		Updated:     parseTime(r.Updated, now),
	}
	if !m.Created.Equal(now) {
		m.createdRaw = r.Created
	}
	if m.Description == "" {
		m.Description = DefaultProjectDescription
	}
	return m
}

// timeLayouts are tried in order when reading timestamps; the last two
// accept the offset-less form other writers of tasks.json produce.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
