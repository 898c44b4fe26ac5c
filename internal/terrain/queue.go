package terrain

import (
	"context"

	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/logger"
)

// DefaultRowBudget is the number of builder rows one Process call may
// advance across all queued tiles.
const DefaultRowBudget = 64

// WorkQueue spreads mesh generation across update ticks. Tiles are
// queued FIFO and each Process call advances builders by a bounded
// number of rows, so a burst of new tiles degrades latency instead of
// frame time. Builds of disposed tiles are abandoned and their partial
// buffers recycled.
type WorkQueue struct {
	gen       *Generator
	rowBudget int

	jobs    []*buildJob
	pending map[*Tile]*buildJob

	log *zap.Logger
}

type buildJob struct {
	tile    *Tile
	params  Params
	builder *Builder
}

// NewWorkQueue creates a queue over a generator. rowBudget <= 0 selects
// DefaultRowBudget.
func NewWorkQueue(gen *Generator, rowBudget int) *WorkQueue {
	if rowBudget <= 0 {
		rowBudget = DefaultRowBudget
	}
	return &WorkQueue{
		gen:       gen,
		rowBudget: rowBudget,
		pending:   make(map[*Tile]*buildJob),
		log:       logger.Named("terrain"),
	}
}

// Len returns the number of queued builds.
func (q *WorkQueue) Len() int { return len(q.jobs) }

// RowBudget returns the per-Process row allowance.
func (q *WorkQueue) RowBudget() int { return q.rowBudget }

// Enqueue schedules a rebuild of the tile's mesh. A memoized mesh is
// adopted immediately. A tile already queued keeps its in-flight build
// while the parameters are unchanged, so repeated enqueues across ticks
// accumulate progress; only a real parameter change restarts the job.
func (q *WorkQueue) Enqueue(tile *Tile) {
	if tile == nil || !tile.IsValid() {
		return
	}
	p := tile.BuildParams()
	if m := q.gen.lookup(p); m != nil {
		tile.adoptMesh(m)
		q.drop(tile)
		return
	}

	if old, ok := q.pending[tile]; ok {
		if old.params == p {
			return
		}
		job := q.newJob(tile, p)
		q.abandon(old)
		for i, j := range q.jobs {
			if j == old {
				q.jobs[i] = job
				break
			}
		}
		q.pending[tile] = job
		return
	}

	job := q.newJob(tile, p)
	q.jobs = append(q.jobs, job)
	q.pending[tile] = job
}

func (q *WorkQueue) newJob(tile *Tile, p Params) *buildJob {
	return &buildJob{
		tile:    tile,
		params:  p,
		builder: NewBuilder(p, tile.sampler(), q.gen.Pool().Get()),
	}
}

// Process advances queued builds by at most the row budget and installs
// completed meshes. It returns the number of builds finished this call.
func (q *WorkQueue) Process(ctx context.Context) int {
	rows := q.rowBudget
	finished := 0
	for rows > 0 && len(q.jobs) > 0 {
		job := q.jobs[0]
		if !job.tile.IsValid() || job.tile.dirty.Has(DirtyDisposeAll) {
			q.abandon(job)
			q.pop(job)
			continue
		}

		done, err := job.builder.Step(ctx)
		rows--
		if err != nil {
			q.log.Debug("mesh build aborted",
				zap.String("key", job.tile.Key().String()),
				zap.Error(err))
			q.abandon(job)
			q.pop(job)
			continue
		}
		if done {
			out := job.builder.Out()
			q.gen.store(job.params, out)
			job.tile.adoptMesh(out)
			q.pop(job)
			finished++
		}
	}
	return finished
}

// drop removes a tile's queued build, recycling its partial buffer.
func (q *WorkQueue) drop(tile *Tile) {
	job, ok := q.pending[tile]
	if !ok {
		return
	}
	q.abandon(job)
	q.pop(job)
}

// Cancel abandons a tile's queued build, if any.
func (q *WorkQueue) Cancel(tile *Tile) { q.drop(tile) }

func (q *WorkQueue) pop(job *buildJob) {
	for i, j := range q.jobs {
		if j == job {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
	if q.pending[job.tile] == job {
		delete(q.pending, job.tile)
	}
}

func (q *WorkQueue) abandon(job *buildJob) {
	q.gen.Pool().Put(job.builder.Out())
}
