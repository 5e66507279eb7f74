// Package models holds the task, brief and project types shared by the
// parsinator pipeline, plus the TaskCollection aggregate.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task as written to tasks.json.
type Status string

const (
	StatusTodo       Status = "to-do"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is the scheduling priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority in descending order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a single unit of work.
type Task struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     Priority `json:"priority"`
	Dependencies []int    `json:"dependencies"`
	Status       Status   `json:"status"`
}

// NewTask builds a validated task in the to-do state. A nil deps slice
// yields an empty dependency list owned by the task.
func NewTask(id int, title, description string, priority Priority, deps []int) (*Task, error) {
	t := &Task{
		ID:           id,
		Title:        title,
		Description:  description,
		Priority:     priority,
		Dependencies: make([]int, 0, len(deps)),
		Status:       StatusTodo,
	}
	for _, d := range deps {
		t.AddDependency(d)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Task) validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: task %d description cannot be empty", ErrInvalidTask, t.ID)
	}
	if t.ID <= 0 {
		return fmt.Errorf("%w: ID must be positive, got %d", ErrInvalidTask, t.ID)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: task %d has invalid priority %q", ErrInvalidTask, t.ID, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: task %d has invalid status %q", ErrInvalidTask, t.ID, t.Status)
	}
	return nil
}

// UnmarshalJSON decodes a persisted task record. Status defaults to to-do
// and dependencies to an empty list when absent.
func (t *Task) UnmarshalJSON(data []byte) error {
	type raw Task
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Status == "" {
		r.Status = StatusTodo
	}
	if r.Dependencies == nil {
		r.Dependencies = []int{}
	}
	*t = Task(r)
	return t.validate()
}

// HasDependency reports whether id is already listed.
func (t *Task) HasDependency(id int) bool {
	for _, d := range t.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// AddDependency appends id unless it is already present. It returns true
// when the list changed.
func (t *Task) AddDependency(id int) bool {
	if t.HasDependency(id) {
		return false
	}
	t.Dependencies = append(t.Dependencies, id)
	return true
}

// RemoveDependency drops id if present.
func (t *Task) RemoveDependency(id int) {
	for i, d := range t.Dependencies {
		if d == id {
			t.Dependencies = append(t.Dependencies[:i], t.Dependencies[i+1:]...)
			return
		}
	}
}

// IsBlockedBy reports whether any dependency is missing from completed.
func (t *Task) IsBlockedBy(completed map[int]bool) bool {
	for _, d := range t.Dependencies {
		if !completed[d] {
			return true
		}
	}
	return false
}

// Text is the lowercased title and description, the form every keyword
// heuristic scans.
func (t *Task) Text() string {
	return strings.ToLower(t.Title + " " + t.Description)
}

func cloneTask(t *Task) *Task {
	cp := *t
	cp.Dependencies = append([]int{}, t.Dependencies...)
	return &cp
}
