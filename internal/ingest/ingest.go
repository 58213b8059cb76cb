package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/ggarber/rtcstats-server/internal/dump"
	"github.com/ggarber/rtcstats-server/internal/geo"
	"github.com/ggarber/rtcstats-server/internal/metrics"
	"github.com/ggarber/rtcstats-server/internal/redact"
	"github.com/ggarber/rtcstats-server/pkg/id"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

// maxEventLine bounds a single inbound event line.
const maxEventLine = 1 << 20

// nowMs is swappable for tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// Enqueuer receives finished session identifiers.
type Enqueuer interface {
	Enqueue(id string)
}

// ConnInfo carries the handshake facts recorded in the metadata line.
type ConnInfo struct {
	Path       string
	Origin     string
	UserAgent  string
	RemoteAddr string
}

// Options configures an Ingestor.
type Options struct {
	// SpoolDir is the directory dumps are written into.
	SpoolDir string

	Scrub   *redact.Scrubber
	Filter  redact.Filter
	Geo     geo.Resolver
	Queue   Enqueuer
	Logger  logpkg.Logger
	Metrics *metrics.Collector
}

// Ingestor writes inbound event streams to per-session dumps.
type Ingestor struct {
	dir    string
	scrub  *redact.Scrubber
	filter redact.Filter
	geo    geo.Resolver
	queue  Enqueuer
	gen    *id.Generator
	log    logpkg.Logger
	met    *metrics.Collector
}

// New builds an Ingestor.
func New(opts Options) *Ingestor {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	scrub := opts.Scrub
	if scrub == nil {
		scrub = redact.NewScrubber()
	}
	resolver := opts.Geo
	if resolver == nil {
		resolver = geo.Noop{}
	}
	return &Ingestor{
		dir:    opts.SpoolDir,
		scrub:  scrub,
		filter: opts.Filter,
		geo:    resolver,
		queue:  opts.Queue,
		gen:    id.NewGenerator(),
		log:    logger.With(logpkg.Component("ingest")),
		met:    opts.Metrics,
	}
}

// HandleConn consumes one client stream until EOF and returns the
// session identifier. The returned error covers only the failure to
// open the dump; everything after that is best effort per event.
func (ing *Ingestor) HandleConn(ctx context.Context, info ConnInfo, r io.Reader) (string, error) {
	sid := ing.gen.Next().String()
	w, err := dump.NewWriter(ing.dir, sid)
	if err != nil {
		return "", err
	}
	clog := ing.log.With(logpkg.Str("session", sid))
	if ing.met != nil {
		ing.met.SessionOpened()
	}
	if err := w.Append(dump.Meta{
		Path:      info.Path,
		Origin:    info.Origin,
		UserAgent: info.UserAgent,
		OpenedAt:  nowMs(),
		Version:   dump.FormatVersion,
	}); err != nil {
		clog.Error("metadata append failed", logpkg.Err(err))
	}
	go ing.enrich(ctx, w, info.RemoteAddr, clog)

	events := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxEventLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		events++
		if ing.met != nil {
			ing.met.EventReceived()
		}
		ing.handleEvent(w, line, clog)
	}
	if err := sc.Err(); err != nil {
		clog.Warn("stream read ended abnormally", logpkg.Err(err))
	}

	if events == 0 {
		if err := w.Discard(); err != nil {
			clog.Error("dump discard failed", logpkg.Err(err))
		}
		if ing.met != nil {
			ing.met.SessionDiscarded()
		}
		clog.Debug("session closed without events, dump discarded")
		return sid, nil
	}

	if err := w.Append(dump.CloseRecord(nowMs())); err != nil {
		clog.Error("close record append failed", logpkg.Err(err))
	}
	if err := w.Close(); err != nil {
		clog.Error("dump close failed", logpkg.Err(err))
	}
	ing.queue.Enqueue(sid)
	clog.Info("session finalized", logpkg.Int("events", events))
	return sid, nil
}

// handleEvent parses, filters, redacts, and appends one inbound line.
func (ing *Ingestor) handleEvent(w *dump.Writer, line []byte, clog logpkg.Logger) {
	var arr []any
	if err := json.Unmarshal(line, &arr); err != nil {
		ing.dropEvent(clog, "event not parseable", logpkg.Err(err))
		return
	}
	if len(arr) < 2 {
		ing.dropEvent(clog, "event too short", logpkg.Int("elements", len(arr)))
		return
	}
	tag, ok := arr[0].(string)
	if !ok {
		ing.dropEvent(clog, "event tag is not a string")
		return
	}
	var payload any
	if len(arr) >= 3 {
		payload = arr[2]
	}
	if !ing.filter.Keep(tag, payload, len(line)) {
		if ing.met != nil {
			ing.met.EventDropped()
		}
		clog.Debug("event dropped by filter", logpkg.Str("tag", tag))
		return
	}
	if !redact.IsMediaEvent(tag) {
		payload = ing.scrub.Scrub(payload)
	}
	if err := w.Append([]any{tag, arr[1], payload, nowMs()}); err != nil {
		clog.Error("event append failed", logpkg.Str("tag", tag), logpkg.Err(err))
	}
}

func (ing *Ingestor) dropEvent(clog logpkg.Logger, msg string, fields ...logpkg.Field) {
	if ing.met != nil {
		ing.met.EventDropped()
	}
	clog.Warn(msg, fields...)
}

// enrich resolves the remote address and appends the location line.
// Best effort: resolution failures and appends racing past the close
// record are dropped without ceremony.
func (ing *Ingestor) enrich(ctx context.Context, w *dump.Writer, addr string, clog logpkg.Logger) {
	loc, err := ing.geo.Resolve(ctx, addr)
	if err != nil {
		if !errors.Is(err, geo.ErrUnavailable) {
			clog.Debug("location lookup failed", logpkg.Err(err))
		}
		return
	}
	if err := w.Append(dump.LocationRecord(loc, nowMs())); err != nil && !errors.Is(err, dump.ErrClosed) {
		clog.Debug("location append failed", logpkg.Err(err))
	}
}
