package extract

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ggarber/rtcstats-server/internal/dump"
	"github.com/ggarber/rtcstats-server/internal/metrics"
	"github.com/ggarber/rtcstats-server/internal/sink"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

type eventKind int

const (
	evExited eventKind = iota
	evSpawnFailed
)

// event is a worker outcome folded into queue state by the coordinator.
type event struct {
	id   string
	kind eventKind
	ok   bool
}

// Options configures a Queue.
type Options struct {
	// SpoolDir is the directory holding completed dumps.
	SpoolDir string
	// WorkerCmd is the worker executable, invoked with the session id.
	WorkerCmd string
	// Capacity bounds concurrent workers. Zero or negative means NumCPU.
	Capacity int

	Index   sink.FeatureIndex
	Blobs   sink.BlobStore
	Logger  logpkg.Logger
	Metrics *metrics.Collector
}

// Queue is the bounded extraction dispatcher.
type Queue struct {
	dir      string
	capacity int
	spawn    spawnFunc

	index sink.FeatureIndex
	blobs sink.BlobStore
	log   logpkg.Logger
	met   *metrics.Collector

	mu      sync.Mutex
	pending []string

	// inFlight is mutated only by the coordinator; atomic so Enqueue and
	// Stats can read it without joining the loop.
	inFlight atomic.Int32

	kick   chan struct{}
	events chan event
	done   chan struct{}

	fwd sync.WaitGroup
}

// NewQueue builds a Queue. Capacity is fixed for the queue's lifetime.
func NewQueue(opts Options) *Queue {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	q := &Queue{
		dir:      opts.SpoolDir,
		capacity: capacity,
		index:    opts.Index,
		blobs:    opts.Blobs,
		log:      logger.With(logpkg.Component("extract")),
		met:      opts.Metrics,
		kick:     make(chan struct{}, 1),
		events:   make(chan event),
		done:     make(chan struct{}),
	}
	q.spawn = newSpawner(opts.WorkerCmd, opts.SpoolDir, q.log)
	return q
}

// Capacity returns the fixed worker bound.
func (q *Queue) Capacity() int { return q.capacity }

// Start launches the coordinator. It runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.run(ctx)
}

// Wait blocks until the coordinator has exited and in-progress dump
// forwarding has finished.
func (q *Queue) Wait() {
	<-q.done
	q.fwd.Wait()
}

// Enqueue appends id to the pending queue and nudges the coordinator.
// Never blocks; when the pool is saturated the item simply stays pending.
func (q *Queue) Enqueue(id string) {
	q.mu.Lock()
	q.pending = append(q.pending, id)
	depth := len(q.pending)
	q.mu.Unlock()

	if int(q.inFlight.Load()) >= q.capacity {
		q.log.Warn("extraction pool saturated, session queued",
			logpkg.Str("session", id), logpkg.Int("pending", depth))
	}
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Stats returns the current pending depth and in-flight count.
func (q *Queue) Stats() (pending, inFlight int) {
	q.mu.Lock()
	pending = len(q.pending)
	q.mu.Unlock()
	return pending, int(q.inFlight.Load())
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.kick:
			q.dispatch(ctx)
		case ev := <-q.events:
			q.decInFlight()
			switch ev.kind {
			case evExited:
				if q.met != nil {
					q.met.ExtractionCompleted(ev.ok)
				}
				if !ev.ok {
					q.log.Warn("extraction worker failed", logpkg.Str("session", ev.id))
				}
				q.dispatch(ctx)
				q.fwd.Add(1)
				go q.forward(ctx, ev.id)
			case evSpawnFailed:
				if q.met != nil {
					q.met.SpawnFailure()
				}
				// Back to the tail so a persistently failing session does
				// not starve others. No dispatch here: retry waits for the
				// next enqueue or exit.
				q.mu.Lock()
				q.pending = append(q.pending, ev.id)
				q.mu.Unlock()
				q.log.Warn("worker spawn failed, session re-queued",
					logpkg.Str("session", ev.id))
			}
			q.publishDepth()
		}
	}
}

// dispatch pops pending sessions while capacity allows, incrementing the
// in-flight count at the moment of the spawn attempt, not after its
// outcome.
func (q *Queue) dispatch(ctx context.Context) {
	for int(q.inFlight.Load()) < q.capacity {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			break
		}
		id := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.inFlight.Add(1)
		if q.met != nil {
			q.met.ExtractionDispatched()
		}
		go q.runWorker(ctx, id)
	}
	q.publishDepth()
}

func (q *Queue) runWorker(ctx context.Context, id string) {
	h, err := q.spawn(ctx, id)
	if err != nil {
		q.log.Error("spawn error", logpkg.Str("session", id), logpkg.Err(err))
		q.send(ctx, event{id: id, kind: evSpawnFailed})
		return
	}
	err = h.consume(func(res sink.Result) {
		if res.ClientID == "" {
			res.ClientID = id
		}
		if perr := q.index.Put(ctx, res); perr != nil {
			q.log.Error("feature index put failed",
				logpkg.Str("session", id), logpkg.Err(perr))
		}
	})
	q.send(ctx, event{id: id, kind: evExited, ok: err == nil})
}

func (q *Queue) send(ctx context.Context, ev event) {
	select {
	case q.events <- ev:
	case <-ctx.Done():
	}
}

// forward reads the completed dump, hands it to the blob store, and
// deletes the file. Read failures are logged and swallowed; the file is
// left in place and never retried.
func (q *Queue) forward(ctx context.Context, id string) {
	defer q.fwd.Done()
	raw, err := dump.Read(q.dir, id)
	if err != nil {
		q.log.Error("dump read failed, forwarding skipped",
			logpkg.Str("session", id), logpkg.Err(err))
		return
	}
	if err := q.blobs.Put(ctx, id, raw); err != nil {
		q.log.Error("blob store put failed",
			logpkg.Str("session", id), logpkg.Err(err))
		return
	}
	if err := dump.Remove(q.dir, id); err != nil {
		q.log.Error("dump remove failed", logpkg.Str("session", id), logpkg.Err(err))
		return
	}
	q.log.Debug("dump forwarded", logpkg.Str("session", id), logpkg.Int("bytes", len(raw)))
}

func (q *Queue) decInFlight() {
	if q.inFlight.Add(-1) < 0 {
		q.inFlight.Store(0)
	}
}

func (q *Queue) publishDepth() {
	if q.met == nil {
		return
	}
	q.met.SetQueueDepth(q.Stats())
}
