package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ggarber/rtcstats-server/internal/dump"
	"github.com/ggarber/rtcstats-server/internal/metrics"
	"github.com/ggarber/rtcstats-server/internal/sink"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

type fakeIndex struct {
	mu      sync.Mutex
	results []sink.Result
}

func (f *fakeIndex) Put(ctx context.Context, res sink.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

func (f *fakeIndex) all() []sink.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sink.Result(nil), f.results...)
}

type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{blobs: map[string][]byte{}} }

func (f *fakeBlobs) Put(ctx context.Context, id string, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[id] = append([]byte(nil), raw...)
	return nil
}

func (f *fakeBlobs) get(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[id]
	return b, ok
}

// fakeHandle is a scripted worker: emits results, optionally blocks until
// released, then exits with exitErr.
type fakeHandle struct {
	results []sink.Result
	release chan struct{}
	exitErr error
}

func (h *fakeHandle) consume(onResult func(sink.Result)) error {
	for _, r := range h.results {
		onResult(r)
	}
	if h.release != nil {
		<-h.release
	}
	return h.exitErr
}

// fakeSpawner scripts spawn outcomes per session and records attempts.
type fakeSpawner struct {
	mu       sync.Mutex
	attempts []string
	started  chan string
	failLeft map[string]int
	handles  map[string]*fakeHandle
	active   atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		started:  make(chan string, 64),
		failLeft: map[string]int{},
		handles:  map[string]*fakeHandle{},
	}
}

func (s *fakeSpawner) spawn(ctx context.Context, id string) (handle, error) {
	s.mu.Lock()
	s.attempts = append(s.attempts, id)
	if s.failLeft[id] > 0 {
		s.failLeft[id]--
		s.mu.Unlock()
		s.started <- id
		return nil, errors.New("spawn: resource exhausted")
	}
	h, ok := s.handles[id]
	s.mu.Unlock()
	if !ok {
		h = &fakeHandle{}
	}
	if n := s.active.Add(1); n > s.maxSeen.Load() {
		s.maxSeen.Store(n)
	}
	s.started <- id
	return trackedHandle{inner: h, active: &s.active}, nil
}

func (s *fakeSpawner) attemptList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.attempts...)
}

type trackedHandle struct {
	inner  *fakeHandle
	active *atomic.Int32
}

func (t trackedHandle) consume(onResult func(sink.Result)) error {
	defer t.active.Add(-1)
	return t.inner.consume(onResult)
}

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithLevel(logpkg.FatalLevel), logpkg.WithOutput(io.Discard))
}

func newTestQueue(t *testing.T, dir string, capacity int, sp *fakeSpawner) (*Queue, *fakeIndex, *fakeBlobs, context.CancelFunc) {
	t.Helper()
	fi := &fakeIndex{}
	fb := newFakeBlobs()
	q := NewQueue(Options{
		SpoolDir: dir,
		Capacity: capacity,
		Index:    fi,
		Blobs:    fb,
		Logger:   quietLogger(),
		Metrics:  metrics.NewCollector(),
	})
	q.spawn = sp.spawn
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(func() {
		cancel()
		q.Wait()
	})
	return q, fi, fb, cancel
}

func waitStarted(t *testing.T, sp *fakeSpawner) string {
	t.Helper()
	select {
	case id := <-sp.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a spawn attempt")
		return ""
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCapacityTwoThirdSessionWaits(t *testing.T) {
	sp := newFakeSpawner()
	relA := make(chan struct{})
	relB := make(chan struct{})
	relC := make(chan struct{})
	sp.handles["A"] = &fakeHandle{release: relA}
	sp.handles["B"] = &fakeHandle{release: relB}
	sp.handles["C"] = &fakeHandle{release: relC}

	q, _, _, _ := newTestQueue(t, t.TempDir(), 2, sp)
	q.Enqueue("A")
	q.Enqueue("B")
	q.Enqueue("C")

	first := waitStarted(t, sp)
	second := waitStarted(t, sp)
	if first != "A" || second != "B" {
		t.Fatalf("dispatch order: %s, %s", first, second)
	}
	// C must stay pending while both slots are taken.
	waitFor(t, "C pending", func() bool {
		p, f := q.Stats()
		return p == 1 && f == 2
	})
	select {
	case id := <-sp.started:
		t.Fatalf("unexpected dispatch of %s beyond capacity", id)
	case <-time.After(50 * time.Millisecond):
	}

	close(relA)
	if next := waitStarted(t, sp); next != "C" {
		t.Fatalf("expected C after A's exit, got %s", next)
	}
	if sp.maxSeen.Load() > 2 {
		t.Fatalf("capacity exceeded: %d concurrent workers", sp.maxSeen.Load())
	}
	close(relB)
	close(relC)
}

func TestSpawnFailureRequeuesAtTail(t *testing.T) {
	sp := newFakeSpawner()
	relX := make(chan struct{})
	relB := make(chan struct{})
	sp.handles["X"] = &fakeHandle{release: relX}
	sp.handles["B"] = &fakeHandle{release: relB}
	sp.handles["A"] = &fakeHandle{}
	sp.handles["C"] = &fakeHandle{}
	sp.failLeft["A"] = 1

	q, _, _, _ := newTestQueue(t, t.TempDir(), 1, sp)

	// Occupy the only slot, then stack A and B behind it.
	q.Enqueue("X")
	if id := waitStarted(t, sp); id != "X" {
		t.Fatalf("expected X first, got %s", id)
	}
	q.Enqueue("A")
	q.Enqueue("B")
	waitFor(t, "A and B pending", func() bool { p, _ := q.Stats(); return p == 2 })

	// X exits; A dispatches and its spawn fails, so A must move to the
	// tail (behind B) and no retry happens until the next nudge.
	close(relX)
	if id := waitStarted(t, sp); id != "A" {
		t.Fatalf("expected A's spawn attempt, got %s", id)
	}
	waitFor(t, "A re-queued", func() bool { p, f := q.Stats(); return p == 2 && f == 0 })

	q.Enqueue("C")
	if id := waitStarted(t, sp); id != "B" {
		t.Fatalf("expected B before re-queued A, got %s", id)
	}
	close(relB)
	if id := waitStarted(t, sp); id != "A" {
		t.Fatalf("expected A's retry, got %s", id)
	}
	if id := waitStarted(t, sp); id != "C" {
		t.Fatalf("expected C last, got %s", id)
	}

	// A was attempted exactly twice: original dispatch plus one retry.
	attempts := 0
	for _, id := range sp.attemptList() {
		if id == "A" {
			attempts++
		}
	}
	if attempts != 2 {
		t.Fatalf("A attempted %d times", attempts)
	}
}

func TestInFlightBoundsUnderChurn(t *testing.T) {
	sp := newFakeSpawner()
	ids := []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9",
		"s10", "s11", "s12", "s13", "s14", "s15", "s16", "s17", "s18", "s19"}
	for i, id := range ids {
		if i%5 == 0 {
			sp.failLeft[id] = 1
		}
		sp.handles[id] = &fakeHandle{}
		if i%3 == 0 {
			sp.handles[id].exitErr = errors.New("exit 1")
		}
	}

	q, _, _, _ := newTestQueue(t, t.TempDir(), 3, sp)
	for _, id := range ids {
		q.Enqueue(id)
	}
	// Nudge until everything has drained, including the spawn-failure
	// re-queues that wait for the next enqueue or exit.
	waitFor(t, "queue drained", func() bool {
		p, f := q.Stats()
		if p > 0 && f == 0 {
			q.Enqueue("s0-nudge")
			sp.mu.Lock()
			sp.handles["s0-nudge"] = &fakeHandle{}
			sp.mu.Unlock()
		}
		return p == 0 && f == 0
	})

	if sp.maxSeen.Load() > 3 {
		t.Fatalf("capacity exceeded: %d concurrent workers", sp.maxSeen.Load())
	}
	if _, f := q.Stats(); f < 0 {
		t.Fatalf("negative in-flight count: %d", f)
	}
}

func TestFailedWorkerStillForwardsResultsAndDump(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("{\"path\":\"/ingest\"}\n[\"custom\",null,1,100]\n[\"close\",null,null,200]\n")
	if err := os.WriteFile(dump.Path(dir, "X"), raw, 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}

	sp := newFakeSpawner()
	sp.handles["X"] = &fakeHandle{
		results: []sink.Result{{Origin: "https://example.com", ConnectionID: "pc_0"}},
		exitErr: errors.New("exit status 1"),
	}

	q, fi, fb, _ := newTestQueue(t, dir, 1, sp)
	q.Enqueue("X")
	waitStarted(t, sp)

	waitFor(t, "dump forwarded", func() bool {
		_, ok := fb.get("X")
		return ok
	})
	got, _ := fb.get("X")
	if !bytes.Equal(got, raw) {
		t.Fatalf("forwarded dump mismatch")
	}
	waitFor(t, "dump removed", func() bool {
		_, err := os.Stat(dump.Path(dir, "X"))
		return os.IsNotExist(err)
	})

	results := fi.all()
	if len(results) != 1 {
		t.Fatalf("result count: %d", len(results))
	}
	if results[0].ClientID != "X" {
		t.Fatalf("client id not filled in: %+v", results[0])
	}
	if results[0].ConnectionID != "pc_0" {
		t.Fatalf("result: %+v", results[0])
	}
}

func TestReadFailureSkipsForwarding(t *testing.T) {
	sp := newFakeSpawner()
	sp.handles["Y"] = &fakeHandle{}
	q, _, fb, _ := newTestQueue(t, t.TempDir(), 1, sp)
	q.Enqueue("Y") // no dump file exists for Y
	waitStarted(t, sp)
	waitFor(t, "worker drained", func() bool { p, f := q.Stats(); return p == 0 && f == 0 })
	time.Sleep(20 * time.Millisecond)
	if _, ok := fb.get("Y"); ok {
		t.Fatalf("unreadable dump must not be forwarded")
	}
}

func TestCapacityDefaultsToNumCPU(t *testing.T) {
	q := NewQueue(Options{Logger: quietLogger()})
	if q.Capacity() < 1 {
		t.Fatalf("capacity: %d", q.Capacity())
	}
}
