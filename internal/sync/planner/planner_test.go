package planner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift/objsync/synctypes"
)

func makeTasks(n int) []synctypes.Task {
	tasks := make([]synctypes.Task, n)
	for i := range tasks {
		tasks[i] = synctypes.Task{
			SourceLocator:   fmt.Sprintf("s3://src/obj-%03d", i),
			DestinationPath: fmt.Sprintf("obj-%03d", i),
		}
	}
	return tasks
}

func planConfig(batchSize int) synctypes.Config {
	cfg := synctypes.Config{DestinationContainer: "dest", BatchSize: batchSize}
	return cfg.WithDefaults()
}

func TestPlan_EmptyInput(t *testing.T) {
	assert.Nil(t, New().Plan(nil, planConfig(100)))
	assert.Nil(t, New().Plan([]synctypes.Task{}, planConfig(100)))
}

func TestPlan_Partitioning(t *testing.T) {
	tests := []struct {
		name        string
		tasks       int
		batchSize   int
		wantBatches int
		wantLast    int
	}{
		{"exact multiple", 10, 5, 2, 5},
		{"remainder batch", 11, 5, 3, 1},
		{"single batch", 3, 100, 1, 3},
		{"batch size one", 4, 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := New().Plan(makeTasks(tt.tasks), planConfig(tt.batchSize))
			require.Len(t, batches, tt.wantBatches)
			assert.Len(t, batches[len(batches)-1].Tasks, tt.wantLast)

			total := 0
			for _, b := range batches {
				total += len(b.Tasks)
			}
			assert.Equal(t, tt.tasks, total)
		})
	}
}

func TestPlan_PreservesOrder(t *testing.T) {
	tasks := makeTasks(23)
	batches := New().Plan(tasks, planConfig(7))

	pos := 0
	for _, batch := range batches {
		for i, task := range batch.Tasks {
			assert.Equal(t, tasks[pos], task)
			assert.Equal(t, pos, batch.Positions[i])
			pos++
		}
	}
	assert.Equal(t, len(tasks), pos)
}

func TestPlan_ChunkSizeOverride(t *testing.T) {
	cfg := planConfig(100)
	cfg.ChunkSizeBytes = 5 * 1024 * 1024

	batches := New().Plan(makeTasks(3), cfg)
	require.Len(t, batches, 1)
	assert.Equal(t, int64(5*1024*1024), batches[0].ChunkSize)
}

func TestPlan_ChunkSizeTiers(t *testing.T) {
	tests := []struct {
		name string
		hint int64
		want int64
	}{
		{"no hints fall back to small", 0, SmallChunkSize},
		{"small objects", 1 * 1024 * 1024, SmallChunkSize},
		{"medium objects", 64 * 1024 * 1024, MediumChunkSize},
		{"large objects", 1 * 1024 * 1024 * 1024, LargeChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := makeTasks(4)
			for i := range tasks {
				tasks[i].SizeHint = tt.hint
			}
			batches := New().Plan(tasks, planConfig(100))
			require.Len(t, batches, 1)
			assert.Equal(t, tt.want, batches[0].ChunkSize)
		})
	}
}

func TestPlan_ChunkSizeMeanIgnoresUnhinted(t *testing.T) {
	tasks := makeTasks(3)
	tasks[0].SizeHint = 512 * 1024 * 1024
	// remaining tasks have no hint and must not drag the mean down

	batches := New().Plan(tasks, planConfig(100))
	require.Len(t, batches, 1)
	assert.Equal(t, int64(LargeChunkSize), batches[0].ChunkSize)
}

func TestPlan_SkipUnchangedFollowsIncremental(t *testing.T) {
	cfg := planConfig(100)
	batches := New().Plan(makeTasks(2), cfg)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].SkipUnchanged)

	incremental := false
	cfg.Incremental = &incremental
	batches = New().Plan(makeTasks(2), cfg)
	require.Len(t, batches, 1)
	assert.False(t, batches[0].SkipUnchanged)
}

func TestPlan_GroupByPrefix(t *testing.T) {
	tasks := []synctypes.Task{
		{SourceLocator: "s3://src/1", DestinationPath: "logs/a"},
		{SourceLocator: "s3://src/2", DestinationPath: "data/b"},
		{SourceLocator: "s3://src/3", DestinationPath: "logs/c"},
		{SourceLocator: "s3://src/4", DestinationPath: "data/d"},
		{SourceLocator: "s3://src/5", DestinationPath: "logs/e"},
	}

	p := New()
	p.GroupByPrefix = true
	batches := p.Plan(tasks, planConfig(100))
	require.Len(t, batches, 1)

	var order []string
	for _, task := range batches[0].Tasks {
		order = append(order, task.DestinationPath)
	}
	assert.Equal(t, []string{"logs/a", "logs/c", "logs/e", "data/b", "data/d"}, order)

	// Positions still index into the original input.
	assert.Equal(t, []int{0, 2, 4, 1, 3}, batches[0].Positions)
}

func TestPlanStats(t *testing.T) {
	tasks := makeTasks(12)
	for i := range tasks {
		tasks[i].SizeHint = 100
	}
	batches := New().Plan(tasks, planConfig(5))

	stats := PlanStats(batches)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 12, stats.Tasks)
	assert.Equal(t, int64(1200), stats.BytesHinted)
}
