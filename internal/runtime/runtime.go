package runtime

import (
	"context"
	"errors"
	"path/filepath"

	cfgpkg "github.com/ggarber/rtcstats-server/internal/config"
	"github.com/ggarber/rtcstats-server/internal/dump"
	"github.com/ggarber/rtcstats-server/internal/metrics"
	"github.com/ggarber/rtcstats-server/internal/sink"
	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	// DataDir overrides Config.DataDir when non-empty.
	DataDir string
	// SpoolDir overrides Config.SpoolDir when non-empty.
	SpoolDir string
	Fsync    pebblestore.FsyncMode
	Config   cfgpkg.Config
}

// Runtime wires storage, spool, sinks, and metrics for a single-node
// instance.
type Runtime struct {
	db      *pebblestore.DB
	config  cfgpkg.Config
	spool   string
	index   *sink.PebbleIndex
	blobs   *sink.PebbleBlobs
	metrics *metrics.Collector
}

// Open initializes storage and the spool directory and returns a
// Runtime. The spool is recreated empty: dumps left over from a
// previous run are discarded, not resumed.
func Open(opts Options) (*Runtime, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = opts.Config.DataDir
	}
	if dataDir == "" {
		return nil, errors.New("runtime: data directory is required")
	}
	spool := opts.SpoolDir
	if spool == "" {
		spool = opts.Config.SpoolDir
	}
	if spool == "" {
		spool = filepath.Join(dataDir, "spool")
	}
	if err := dump.Reset(spool); err != nil {
		return nil, err
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: filepath.Join(dataDir, "store"),
		Fsync:   opts.Fsync,
	})
	if err != nil {
		return nil, err
	}
	blobs, err := sink.NewBlobs(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Runtime{
		db:      db,
		config:  opts.Config,
		spool:   spool,
		index:   sink.NewIndex(db),
		blobs:   blobs,
		metrics: metrics.NewCollector(),
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.blobs != nil {
		r.blobs.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage round-trip check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// SpoolDir returns the directory in-progress dumps are written to.
func (r *Runtime) SpoolDir() string { return r.spool }

// Index returns the feature index sink.
func (r *Runtime) Index() *sink.PebbleIndex { return r.index }

// Blobs returns the raw dump blob store.
func (r *Runtime) Blobs() *sink.PebbleBlobs { return r.blobs }

// Metrics returns the process-wide collector.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
