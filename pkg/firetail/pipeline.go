// Package firetail assembles the capture and delivery pipeline from a
// single configuration.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("")
//	if err != nil {
//	    return err
//	}
//	pipeline, err := firetail.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer pipeline.Close(context.Background())
//
//	http.ListenAndServe(":8080", pipeline.Wrap(mux))
//
// The pipeline owns one batch buffer, the dispatcher and its workers, the
// delivery client, the optional ledger, and a background flusher that ships
// records that have waited longer than batch.flush_interval. Close ships
// whatever is still buffered and waits for in-flight deliveries up to
// delivery.shutdown_grace.
package firetail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/delivery"
	"github.com/FireTail-io/firetail-go-lib/pkg/interceptor"
	"github.com/FireTail-io/firetail-go-lib/pkg/interceptor/ginadapter"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger/retention"
	"github.com/FireTail-io/firetail-go-lib/pkg/record"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/health"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/logging"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/tracing"
)

// Pipeline is a running capture and delivery pipeline.
type Pipeline struct {
	cfg     *config.Config
	version string

	logger    *slog.Logger
	logLevels *logging.Logger

	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	ownsTracer bool

	buffer      *batch.Buffer
	dispatcher  *delivery.Dispatcher
	interceptor *interceptor.Interceptor
	health      *health.Checker

	store     ledger.Storage
	ownsStore bool
	recorder  *ledger.Recorder
	pruner    *retention.Pruner

	stop      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New builds and starts a pipeline. cfg should already carry defaults;
// configurations from config.LoadConfig do.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("firetail: nil configuration")
	}
	o := &options{version: "dev"}
	for _, opt := range opts {
		opt(o)
	}

	p := &Pipeline{
		cfg:     cfg,
		version: o.version,
		stop:    make(chan struct{}),
	}

	if o.logger != nil {
		p.logger = o.logger
	} else {
		l, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cfg.Ingest.APIKey))
		if err != nil {
			return nil, fmt.Errorf("firetail: logger: %w", err)
		}
		p.logger = l.Logger
		p.logLevels = l
	}

	p.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, o.registry)

	if o.tracer != nil {
		p.tracer = o.tracer
	} else {
		t, err := tracing.New(&cfg.Telemetry.Tracing, o.version)
		if err != nil {
			return nil, fmt.Errorf("firetail: tracing: %w", err)
		}
		p.tracer = t
		p.ownsTracer = true
	}

	deliverer := o.deliverer
	if deliverer == nil {
		clientOpts := []delivery.ClientOption{
			delivery.WithLogger(p.logger),
			delivery.WithTracer(p.tracer),
		}
		if o.httpClient != nil {
			clientOpts = append(clientOpts, delivery.WithHTTPClient(o.httpClient))
		}
		client, err := delivery.NewClient(delivery.ConfigFrom(cfg.Ingest, cfg.Delivery), clientOpts...)
		if err != nil {
			p.shutdownTracer(context.Background())
			return nil, fmt.Errorf("firetail: delivery client: %w", err)
		}
		deliverer = client
	}

	if err := p.openLedger(o.store); err != nil {
		p.shutdownTracer(context.Background())
		return nil, err
	}

	dispatchOpts := []delivery.DispatcherOption{
		delivery.WithMetrics(p.metrics),
		delivery.WithDispatcherLogger(p.logger),
	}
	if p.recorder != nil {
		dispatchOpts = append(dispatchOpts, delivery.WithOutcomeHandler(p.recorder.Handle))
	}
	p.dispatcher = delivery.NewDispatcher(deliverer, delivery.DispatcherConfig{
		Workers:   cfg.Delivery.Workers,
		QueueSize: cfg.Delivery.QueueSize,
	}, dispatchOpts...)

	p.buffer = batch.NewBuffer(batch.Config{
		MaxRecords: cfg.Batch.MaxRecords,
		MaxBytes:   cfg.Batch.MaxBytes,
	})

	p.interceptor = interceptor.New(p.buffer, p.dispatcher,
		interceptor.WithBuilder(record.NewBuilder(
			record.WithTrustForwardedFor(cfg.Capture.TrustForwardedFor),
		)),
		interceptor.WithMetrics(p.metrics),
		interceptor.WithLogger(p.logger),
		interceptor.WithEnabled(cfg.Capture.Enabled),
		interceptor.WithExcludePaths(cfg.Capture.ExcludePaths),
	)

	p.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	p.health.RegisterCheck("delivery_queue", health.QueueCheck(p.dispatcher, cfg.Telemetry.Health.QueueSaturation))
	if p.store != nil {
		p.health.RegisterCheck("ledger", health.PingCheck(p.store))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	if p.pruner != nil {
		if err := p.pruner.Start(ctx); err != nil {
			p.logger.Warn("ledger retention not scheduled", "component", "firetail", "error", err)
		}
	}

	if interval := cfg.Batch.FlushInterval; interval > 0 {
		p.wg.Add(1)
		go p.ageFlusher(interval)
	}

	p.logger.Info("firetail pipeline started",
		"component", "firetail",
		"endpoint", cfg.Ingest.URL,
		"max_records", p.buffer.Config().MaxRecords,
		"max_bytes", p.buffer.Config().MaxBytes,
		"flush_interval", cfg.Batch.FlushInterval,
		"workers", cfg.Delivery.Workers,
		"ledger", p.store != nil,
	)
	return p, nil
}

func (p *Pipeline) openLedger(store ledger.Storage) error {
	if store == nil {
		if !p.cfg.Ledger.Enabled {
			return nil
		}
		s, err := ledger.Open(p.cfg.Ledger)
		if err != nil {
			return fmt.Errorf("firetail: ledger: %w", err)
		}
		store = s
		p.ownsStore = true
	}

	p.store = store
	p.recorder = ledger.NewRecorder(store, ledger.RecorderConfig{},
		ledger.WithRecorderMetrics(p.metrics),
		ledger.WithRecorderLogger(p.logger),
	)

	rcfg := retention.ConfigFrom(p.cfg.Ledger.Retention)
	if rcfg.RetentionDays > 0 || rcfg.MaxRecords > 0 {
		p.pruner = retention.NewPruner(store, rcfg, p.metrics, p.logger)
	}
	return nil
}

// ageFlusher ships records that have waited at least interval.
func (p *Pipeline) ageFlusher(interval time.Duration) {
	defer p.wg.Done()

	tick := interval / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if b := p.buffer.DrainOlderThan(interval, batch.TriggerAge); b != nil {
				p.ship(b)
			}
		}
	}
}

func (p *Pipeline) ship(b *batch.Batch) error {
	p.metrics.RecordFlush(string(b.Trigger))
	stats := p.buffer.Stats()
	p.metrics.UpdateBuffer(stats.Records, stats.Bytes)

	if err := p.dispatcher.Dispatch(b); err != nil {
		p.logger.Warn("batch not dispatched",
			"component", "firetail",
			"batch_id", b.ID,
			"trigger", string(b.Trigger),
			"records", b.Len(),
			"error", err,
		)
		return err
	}
	return nil
}

// Wrap returns next wrapped with exchange capture.
func (p *Pipeline) Wrap(next http.Handler) http.Handler {
	return p.interceptor.Wrap(next)
}

// Middleware returns the capture middleware.
func (p *Pipeline) Middleware() func(http.Handler) http.Handler {
	return p.interceptor.Middleware()
}

// GinMiddleware returns the capture middleware for gin engines.
func (p *Pipeline) GinMiddleware() gin.HandlerFunc {
	return ginadapter.Middleware(p.interceptor)
}

// Flush ships everything currently buffered without waiting for a
// threshold. It returns the dispatcher's error when the batch is dropped.
func (p *Pipeline) Flush() error {
	b := p.buffer.Drain(batch.TriggerManual)
	if b == nil {
		return nil
	}
	return p.ship(b)
}

// Apply updates the settings that can change without a restart: capture
// toggles, exclusions and the log level.
func (p *Pipeline) Apply(cfg *config.Config) {
	p.interceptor.SetEnabled(cfg.Capture.Enabled)
	p.interceptor.SetExcludePaths(cfg.Capture.ExcludePaths)

	if p.logLevels != nil {
		if err := p.logLevels.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
			p.logger.Warn("log level not changed", "component", "firetail", "error", err)
		}
	}

	p.logger.Info("configuration applied",
		"component", "firetail",
		"capture_enabled", cfg.Capture.Enabled,
		"exclude_paths", len(cfg.Capture.ExcludePaths),
		"log_level", cfg.Telemetry.Logging.Level,
	)
}

// Close stops capture and the flusher, ships the remaining records and waits for
// in-flight deliveries. The wait ends at the earlier of ctx's deadline and
// delivery.shutdown_grace; batches still queued then are dropped. Close is
// idempotent.
func (p *Pipeline) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close(ctx)
	})
	return p.closeErr
}

func (p *Pipeline) close(ctx context.Context) error {
	p.interceptor.Close()
	close(p.stop)
	p.wg.Wait()

	var errs []error

	if b := p.buffer.Drain(batch.TriggerShutdown); b != nil {
		_ = p.ship(b)
	}

	graceCtx := ctx
	if grace := p.cfg.Delivery.ShutdownGrace; grace > 0 {
		var cancel context.CancelFunc
		graceCtx, cancel = context.WithTimeout(ctx, grace)
		defer cancel()
	}
	if err := p.dispatcher.Close(graceCtx); err != nil {
		errs = append(errs, fmt.Errorf("delivery: %w", err))
	}

	p.cancel()
	if p.pruner != nil {
		p.pruner.Stop()
	}
	if p.recorder != nil {
		_ = p.recorder.Close()
	}
	if p.ownsStore {
		if err := p.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}
	if err := p.shutdownTracer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}

	stats := p.dispatcher.Stats()
	p.logger.Info("firetail pipeline stopped",
		"component", "firetail",
		"dispatched", stats.Dispatched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
		"dropped_after_close", p.interceptor.Dropped(),
	)
	return errors.Join(errs...)
}

func (p *Pipeline) shutdownTracer(ctx context.Context) error {
	if !p.ownsTracer {
		return nil
	}
	return p.tracer.Shutdown(ctx)
}

// Interceptor returns the pipeline's interceptor.
func (p *Pipeline) Interceptor() *interceptor.Interceptor { return p.interceptor }

// Metrics returns the metrics collector.
func (p *Pipeline) Metrics() *metrics.Collector { return p.metrics }

// Health returns the health checker with the pipeline's checks registered.
func (p *Pipeline) Health() *health.Checker { return p.health }

// Ledger returns the ledger store, or nil when the ledger is disabled.
func (p *Pipeline) Ledger() ledger.Storage { return p.store }

// Tracer returns the tracer used for deliveries.
func (p *Pipeline) Tracer() *tracing.Tracer { return p.tracer }

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() *slog.Logger { return p.logger }

// Stats returns the dispatcher counters.
func (p *Pipeline) Stats() delivery.DispatcherStats { return p.dispatcher.Stats() }

// Version returns the version the pipeline was built with.
func (p *Pipeline) Version() string { return p.version }
