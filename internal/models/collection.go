package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gammazero/toposort"
)

// TaskCollection owns every task of one generation run. Dependencies are
// mirrored in an adjacency set (task ID -> dependency IDs) that both the
// insertion checks and the whole-graph validation read.
//
// Tasks returned by Get and All are live; change their dependencies through
// AddDependency so the adjacency set stays in step.
type TaskCollection struct {
	tasks  map[int]*Task
	graph  map[int]map[int]struct{}
	nextID int
}

// NewTaskCollection returns an empty collection whose first ID is 1.
func NewTaskCollection() *TaskCollection {
	return &TaskCollection{
		tasks:  make(map[int]*Task),
		graph:  make(map[int]map[int]struct{}),
		nextID: 1,
	}
}

// AddTask inserts t. Its ID must be unused and every dependency must
// already be present, so dependencies are inserted before dependents.
func (c *TaskCollection) AddTask(t *Task) error {
	if _, exists := c.tasks[t.ID]; exists {
		return fmt.Errorf("%w: task with ID %d already exists", ErrDuplicateTask, t.ID)
	}
	for _, dep := range t.Dependencies {
		if _, ok := c.tasks[dep]; !ok {
			return fmt.Errorf("%w: dependency %d does not exist for task %d", ErrMissingDependency, dep, t.ID)
		}
	}
	c.insert(t)
	return nil
}

// RestoreTask inserts t without checking that its dependencies exist.
// Persisted documents are loaded this way because their records may
// reference tasks listed later in the file.
func (c *TaskCollection) RestoreTask(t *Task) error {
	if _, exists := c.tasks[t.ID]; exists {
		return fmt.Errorf("%w: task with ID %d already exists", ErrDuplicateTask, t.ID)
	}
	c.insert(t)
	return nil
}

func (c *TaskCollection) insert(t *Task) {
	c.tasks[t.ID] = t
	edges := make(map[int]struct{}, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		edges[dep] = struct{}{}
	}
	c.graph[t.ID] = edges
	if t.ID+1 > c.nextID {
		c.nextID = t.ID + 1
	}
}

// CreateTask builds a task with the next free ID and inserts it.
func (c *TaskCollection) CreateTask(title, description string, priority Priority, deps []int) (*Task, error) {
	t, err := NewTask(c.nextID, title, description, priority, deps)
	if err != nil {
		return nil, err
	}
	if err := c.AddTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddDependency records that taskID depends on depID. It returns false
// when the edge was already present.
func (c *TaskCollection) AddDependency(taskID, depID int) (bool, error) {
	t, ok := c.tasks[taskID]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownTask, taskID)
	}
	if !t.AddDependency(depID) {
		return false, nil
	}
	c.graph[taskID][depID] = struct{}{}
	return true, nil
}

// NextID is the ID CreateTask will assign next.
func (c *TaskCollection) NextID() int {
	return c.nextID
}

// SetNextID moves the ID counter forward. It never moves below an
// existing ID.
func (c *TaskCollection) SetNextID(id int) {
	if id > c.nextID {
		c.nextID = id
	}
}

// Get returns the task with the given ID.
func (c *TaskCollection) Get(id int) (*Task, bool) {
	t, ok := c.tasks[id]
	return t, ok
}

// Len is the number of tasks.
func (c *TaskCollection) Len() int {
	return len(c.tasks)
}

// IDs returns every task ID in ascending order.
func (c *TaskCollection) IDs() []int {
	ids := make([]int, 0, len(c.tasks))
	for id := range c.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// All returns every task sorted by ID.
func (c *TaskCollection) All() []*Task {
	ids := c.IDs()
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.tasks[id])
	}
	return out
}

// CompletedIDs is the set of task IDs whose status is done.
func (c *TaskCollection) CompletedIDs() map[int]bool {
	done := make(map[int]bool)
	for id, t := range c.tasks {
		if t.Status == StatusDone {
			done[id] = true
		}
	}
	return done
}

// UnlockedTasks returns to-do tasks whose dependencies are all done,
// sorted by ID.
func (c *TaskCollection) UnlockedTasks() []*Task {
	done := c.CompletedIDs()
	var out []*Task
	for _, t := range c.All() {
		if t.Status == StatusTodo && !t.IsBlockedBy(done) {
			out = append(out, t)
		}
	}
	return out
}

// ValidateDependencies reports self-dependencies, references to missing
// tasks, and dependency cycles. Findings are returned, never raised.
func (c *TaskCollection) ValidateDependencies() []string {
	var errs []string
	for _, t := range c.All() {
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				errs = append(errs, fmt.Sprintf("Task %d depends on itself", t.ID))
				continue
			}
			if _, ok := c.tasks[dep]; !ok {
				errs = append(errs, fmt.Sprintf("Task %d depends on non-existent task %d", t.ID, dep))
			}
		}
	}
	for _, cycle := range c.Cycles() {
		errs = append(errs, "Circular dependency detected: "+formatCycle(cycle))
	}
	return errs
}

// HasCycle reports whether the dependency graph contains a cycle of two
// or more tasks.
func (c *TaskCollection) HasCycle() bool {
	return len(c.Cycles()) > 0
}

// Cycles walks the dependency graph depth first, keeping a recursion
// stack, and returns the path of every cycle closed by a back edge. Each
// path starts and ends with the same ID. Self-dependencies are reported by
// ValidateDependencies on their own and are not repeated here.
func (c *TaskCollection) Cycles() [][]int {
	visited := make(map[int]bool)
	onStack := make(map[int]bool)
	var stack []int
	var cycles [][]int

	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range sortedKeys(c.graph[id]) {
			if dep == id {
				continue
			}
			if onStack[dep] {
				cycles = append(cycles, closeCycle(stack, dep))
				continue
			}
			if !visited[dep] {
				if _, ok := c.tasks[dep]; ok {
					visit(dep)
				}
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
	}

	for _, id := range c.IDs() {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// closeCycle extracts the stack segment from target to the top and closes
// it with target.
func closeCycle(stack []int, target int) []int {
	start := len(stack) - 1
	for start > 0 && stack[start] != target {
		start--
	}
	cycle := append([]int{}, stack[start:]...)
	return append(cycle, target)
}

func formatCycle(cycle []int) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " → ")
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// TopologicalOrder returns task IDs so that every task follows its
// dependencies. References to missing tasks are ignored; a cycle is an
// error.
func (c *TaskCollection) TopologicalOrder() ([]int, error) {
	var edges []toposort.Edge
	for _, id := range c.IDs() {
		deps := 0
		for _, dep := range sortedKeys(c.graph[id]) {
			if _, ok := c.tasks[dep]; !ok {
				continue
			}
			// Edge (dep, id): dep must come before id.
			edges = append(edges, toposort.Edge{dep, id})
			deps++
		}
		if deps == 0 {
			edges = append(edges, toposort.Edge{nil, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependencies, err)
	}

	order := make([]int, 0, len(c.tasks))
	for _, v := range sorted {
		if v != nil {
			order = append(order, v.(int))
		}
	}
	if len(order) != len(c.tasks) {
		return nil, fmt.Errorf("%w: ordered %d of %d tasks", ErrCyclicDependencies, len(order), len(c.tasks))
	}
	return order, nil
}
