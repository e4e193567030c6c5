package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noop(ctx context.Context) error { return nil }

func TestResolveOrdersDependenciesFirst(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Task{Name: "run", Needs: []string{"filter"}, Run: noop}))
	require.NoError(t, g.Add(Task{Name: "filter", Needs: []string{"collect"}, Run: noop}))
	require.NoError(t, g.Add(Task{Name: "collect", Needs: []string{"gate"}, Run: noop}))
	require.NoError(t, g.Add(Task{Name: "gate", Run: noop}))

	plan, err := g.Resolve("run")
	require.NoError(t, err)
	assert.Equal(t, []string{"gate", "collect", "filter", "run"}, plan)
}

func TestResolveSharedDependencyRunsOnce(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Task{Name: "gate", Run: noop}))
	require.NoError(t, g.Add(Task{Name: "build", Needs: []string{"gate"}, Run: noop}))
	require.NoError(t, g.Add(Task{Name: "collect", Needs: []string{"gate", "build"}, Run: noop}))

	plan, err := g.Resolve("collect", "build")
	require.NoError(t, err)
	assert.Equal(t, []string{"gate", "build", "collect"}, plan)
}

func TestResolveUnknownDependency(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Task{Name: "run", Needs: []string{"missing"}, Run: noop}))

	_, err := g.Resolve("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolveCycle(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Task{Name: "a", Needs: []string{"b"}, Run: noop}))
	require.NoError(t, g.Add(Task{Name: "b", Needs: []string{"a"}, Run: noop}))

	_, err := g.Resolve("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestAddDuplicate(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Add(Task{Name: "gate", Run: noop}))
	assert.Error(t, g.Add(Task{Name: "gate", Run: noop}))
}

func TestExecuteRunsPlanInOrder(t *testing.T) {
	g := NewGraph()
	var ran []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}

	require.NoError(t, g.Add(Task{Name: "collect", Needs: []string{"gate"}, Run: record("collect")}))
	require.NoError(t, g.Add(Task{Name: "gate", Run: record("gate")}))

	require.NoError(t, g.Execute(context.Background(), zap.NewNop(), "collect"))
	assert.Equal(t, []string{"gate", "collect"}, ran)
}

func TestExecuteStopsAtFirstError(t *testing.T) {
	g := NewGraph()
	boom := errors.New("boom")
	var ran []string

	require.NoError(t, g.Add(Task{Name: "gate", Run: func(ctx context.Context) error {
		ran = append(ran, "gate")
		return boom
	}}))
	require.NoError(t, g.Add(Task{Name: "collect", Needs: []string{"gate"}, Run: func(ctx context.Context) error {
		ran = append(ran, "collect")
		return nil
	}}))

	err := g.Execute(context.Background(), zap.NewNop(), "collect")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"gate"}, ran)
}
