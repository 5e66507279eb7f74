package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TasksDocument is the on-disk tasks.json layout.
type TasksDocument struct {
	Master MasterSection `json:"master"`
}

// MasterSection holds the task list and project metadata.
type MasterSection struct {
	Tasks    []*Task        `json:"tasks"`
	Metadata MetadataRecord `json:"metadata"`
}

// ToTasksJSON renders c and meta as a tasks.json document. Tasks are
// copied and sorted by ID.
func (c *TaskCollection) ToTasksJSON(meta *ProjectMetadata) *TasksDocument {
	tasks := make([]*Task, 0, c.Len())
	for _, t := range c.All() {
		tasks = append(tasks, cloneTask(t))
	}
	return &TasksDocument{
		Master: MasterSection{
			Tasks:    tasks,
			Metadata: meta.record(),
		},
	}
}

// FromTasksJSON rebuilds a collection and its metadata from doc.
// Records are restored in file order without the dependency-order check;
// ValidateDependencies reports anything inconsistent.
func FromTasksJSON(doc *TasksDocument) (*TaskCollection, *ProjectMetadata, error) {
	return fromTasksJSON(doc, time.Now())
}

func fromTasksJSON(doc *TasksDocument, now time.Time) (*TaskCollection, *ProjectMetadata, error) {
	c := NewTaskCollection()
	meta := metadataFromRecord(doc.Master.Metadata, DefaultProjectName, now)
	for _, t := range doc.Master.Tasks {
		if t == nil {
			continue
		}
		if err := c.RestoreTask(cloneTask(t)); err != nil {
			return nil, nil, err
		}
	}
	return c, meta, nil
}

// MarshalTasksDocument encodes doc with two-space indentation and without
// HTML escaping, matching what the loader reads back unchanged.
func MarshalTasksDocument(doc *TasksDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("models: encode tasks document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalTasksDocument decodes a tasks.json payload. Every task record
// is validated as it is decoded.
func UnmarshalTasksDocument(data []byte) (*TasksDocument, error) {
	var doc TasksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("models: decode tasks document: %w", err)
	}
	return &doc, nil
}
