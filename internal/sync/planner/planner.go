// Package planner groups transfer tasks into batches and derives per-batch
// transfer parameters.
//
// Partitioning is deterministic: input order is preserved so that runs are
// reproducible in tests and logs.
package planner

import (
	"strings"

	"github.com/datalift/objsync/synctypes"
)

// Chunk size tiers for multipart transfers, selected by the mean size hint
// of the tasks in a batch. Callers override with Config.ChunkSizeBytes.
const (
	// SmallChunkSize is used when objects average under 8MiB
	SmallChunkSize = 8 * 1024 * 1024

	// MediumChunkSize is used when objects average under 256MiB
	MediumChunkSize = 16 * 1024 * 1024

	// LargeChunkSize is used for larger objects
	LargeChunkSize = 64 * 1024 * 1024

	smallObjectThreshold  = 8 * 1024 * 1024
	mediumObjectThreshold = 256 * 1024 * 1024
)

// Batch is a group of tasks submitted together to amortize per-operation
// overhead. Positions index each task back into the original input so the
// coordinator can stitch outcomes into input order.
type Batch struct {
	// Tasks is the ordered task list for this batch
	Tasks []synctypes.Task

	// Positions holds the original input index of each task
	Positions []int

	// ChunkSize is the multipart chunk size for every task in the batch
	ChunkSize int64

	// SkipUnchanged requests a metadata comparison before overwriting
	SkipUnchanged bool
}

// Planner creates batch plans from a task list.
type Planner struct {
	// GroupByPrefix groups tasks by the first destination path segment
	// before partitioning. Optional; preserves relative order within
	// each group and group order by first appearance.
	GroupByPrefix bool
}

// New creates a planner with default settings.
func New() *Planner {
	return &Planner{}
}

// Plan partitions tasks into batches of at most cfg.BatchSize, preserving
// input order. Zero tasks yields an empty plan, not an error.
func (p *Planner) Plan(tasks []synctypes.Task, cfg synctypes.Config) []Batch {
	if len(tasks) == 0 {
		return nil
	}

	positions := make([]int, len(tasks))
	for i := range positions {
		positions[i] = i
	}

	if p.GroupByPrefix {
		tasks, positions = groupByPrefix(tasks, positions)
	}

	var batches []Batch
	for start := 0; start < len(tasks); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		chunk := tasks[start:end]
		batches = append(batches, Batch{
			Tasks:         chunk,
			Positions:     positions[start:end],
			ChunkSize:     chunkSizeFor(chunk, cfg.ChunkSizeBytes),
			SkipUnchanged: cfg.IncrementalEnabled(),
		})
	}

	return batches
}

// chunkSizeFor derives the multipart chunk size for a batch. An explicit
// override always wins; otherwise the mean size hint selects a tier.
// Batches with no size hints use the small tier.
func chunkSizeFor(tasks []synctypes.Task, override int64) int64 {
	if override > 0 {
		return override
	}

	var total, hinted int64
	for _, task := range tasks {
		if task.SizeHint > 0 {
			total += task.SizeHint
			hinted++
		}
	}
	if hinted == 0 {
		return SmallChunkSize
	}

	mean := total / hinted
	switch {
	case mean < smallObjectThreshold:
		return SmallChunkSize
	case mean < mediumObjectThreshold:
		return MediumChunkSize
	default:
		return LargeChunkSize
	}
}

// groupByPrefix reorders tasks so tasks sharing a leading destination path
// segment are adjacent. Groups appear in first-appearance order and tasks
// keep their relative order inside each group, so the result is a stable
// permutation of the input.
func groupByPrefix(tasks []synctypes.Task, positions []int) ([]synctypes.Task, []int) {
	type group struct {
		tasks     []synctypes.Task
		positions []int
	}

	var order []string
	groups := make(map[string]*group)

	for i, task := range tasks {
		key := leadingSegment(task.DestinationPath)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.tasks = append(g.tasks, task)
		g.positions = append(g.positions, positions[i])
	}

	outTasks := make([]synctypes.Task, 0, len(tasks))
	outPositions := make([]int, 0, len(positions))
	for _, key := range order {
		outTasks = append(outTasks, groups[key].tasks...)
		outPositions = append(outPositions, groups[key].positions...)
	}
	return outTasks, outPositions
}

// leadingSegment returns the first path segment of a destination path.
func leadingSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

// Stats summarizes a plan for logging.
type Stats struct {
	// Batches is the number of planned batches
	Batches int

	// Tasks is the total task count across batches
	Tasks int

	// BytesHinted is the sum of known size hints
	BytesHinted int64
}

// PlanStats computes summary statistics for a plan.
func PlanStats(batches []Batch) Stats {
	stats := Stats{Batches: len(batches)}
	for _, b := range batches {
		stats.Tasks += len(b.Tasks)
		for _, task := range b.Tasks {
			stats.BytesHinted += task.SizeHint
		}
	}
	return stats
}
