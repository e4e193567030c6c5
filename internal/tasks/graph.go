package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Task is one named step in the pipeline. Needs lists the names of tasks
// that must run before it.
type Task struct {
	Name  string
	Needs []string
	Run   func(ctx context.Context) error
}

// Graph is an explicit directed task graph. Tasks declare their
// predecessors up front and the graph resolves a dependency-ordered plan,
// instead of steps being registered conditionally at call sites.
type Graph struct {
	tasks map[string]Task
	order []string // registration order, keeps resolution deterministic
}

// NewGraph returns an empty task graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]Task)}
}

// Add registers a task. Registering the same name twice is an error.
func (g *Graph) Add(t Task) error {
	if t.Name == "" {
		return fmt.Errorf("task name must not be empty")
	}
	if _, ok := g.tasks[t.Name]; ok {
		return fmt.Errorf("task %q is already registered", t.Name)
	}
	g.tasks[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// Resolve returns the execution plan for the given targets: every target and
// its transitive dependencies, predecessors first, each task at most once.
// Unknown tasks and dependency cycles are errors.
func (g *Graph) Resolve(targets ...string) ([]string, error) {
	var plan []string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("dependency cycle through task %q", name)
		}

		t, ok := g.tasks[name]
		if !ok {
			return fmt.Errorf("unknown task %q", name)
		}

		visiting[name] = true
		for _, dep := range t.Needs {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		plan = append(plan, name)
		return nil
	}

	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Execute resolves the targets and runs the plan sequentially, stopping at
// the first task error.
func (g *Graph) Execute(ctx context.Context, logger *zap.Logger, targets ...string) error {
	plan, err := g.Resolve(targets...)
	if err != nil {
		return err
	}

	for _, name := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := g.tasks[name]
		logger.Debug("task starting", zap.String("task", name))
		start := time.Now()

		if err := t.Run(ctx); err != nil {
			return fmt.Errorf("task %q failed: %w", name, err)
		}

		logger.Debug("task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
	}
	return nil
}
