package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/ggarber/rtcstats-server/internal/config"
	"github.com/ggarber/rtcstats-server/internal/extract"
	"github.com/ggarber/rtcstats-server/internal/geo"
	"github.com/ggarber/rtcstats-server/internal/ingest"
	"github.com/ggarber/rtcstats-server/internal/redact"
	"github.com/ggarber/rtcstats-server/internal/runtime"
	httpserver "github.com/ggarber/rtcstats-server/internal/server/http"
	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir     string
	HTTPAddr    string
	MetricsAddr string
	Fsync       pebblestore.FsyncMode
	Config      cfgpkg.Config
}

// Run starts the ingest pipeline and its HTTP surface and blocks until
// ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context. We
	// layer a local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = opts.Config.DataDir
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}
	if opts.MetricsAddr == "" {
		opts.MetricsAddr = opts.Config.MetricsAddr
	}

	// Build process-wide logger using env/ApplyConfig; defaults: level=info, format=text
	lcfg := &logpkg.Config{
		Level:  getenvDefault("RTCSTATS_LOG_LEVEL", "info"),
		Format: getenvDefault("RTCSTATS_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(lcfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(lcfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir: opts.DataDir,
		Fsync:   opts.Fsync,
		Config:  opts.Config,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	filter, err := redact.NewFilter(opts.Config.EventFilter)
	if err != nil {
		return err
	}
	var resolver geo.Resolver = geo.Noop{}
	if opts.Config.GeoEndpoint != "" {
		resolver = geo.NewHTTPResolver(opts.Config.GeoEndpoint)
	}

	queue := extract.NewQueue(extract.Options{
		SpoolDir:  rt.SpoolDir(),
		WorkerCmd: opts.Config.WorkerCmd,
		Capacity:  opts.Config.Capacity,
		Index:     rt.Index(),
		Blobs:     rt.Blobs(),
		Logger:    procLogger,
		Metrics:   rt.Metrics(),
	})
	queue.Start(sctx)

	ing := ingest.New(ingest.Options{
		SpoolDir: rt.SpoolDir(),
		Filter:   filter,
		Geo:      resolver,
		Queue:    queue,
		Logger:   procLogger,
		Metrics:  rt.Metrics(),
	})

	procLogger.Info("starting rtcstats server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("metrics", opts.MetricsAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("spool_dir", rt.SpoolDir()),
		logpkg.Int("capacity", queue.Capacity()),
		logpkg.Str("worker_cmd", opts.Config.WorkerCmd),
		logpkg.Str("level", lcfg.Level),
		logpkg.Str("format", lcfg.Format),
	)

	hsrv := httpserver.New(rt, ing, procLogger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	var msrv *httpserver.Server
	if opts.MetricsAddr != "" && opts.MetricsAddr != opts.HTTPAddr {
		msrv = httpserver.NewMetrics(rt)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := msrv.ListenAndServe(sctx, opts.MetricsAddr); err != nil && sctx.Err() == nil {
				procLogger.Error("metrics server error", logpkg.Err(err))
			}
		}()
	}

	<-sctx.Done()
	// Stop listeners before draining the queue and closing the store.
	hsrv.Close()
	if msrv != nil {
		msrv.Close()
	}
	wg.Wait()
	queue.Wait()
	return nil
}
