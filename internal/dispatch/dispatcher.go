// Package dispatch fans source records out to the annotation service with a
// bounded worker pool. Failures stay local to their record: the batch always
// runs to completion and yields exactly one outcome per record.
package dispatch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourorg/cvat-tasks/internal/metrics"
	"github.com/yourorg/cvat-tasks/internal/payload"
	"github.com/yourorg/cvat-tasks/internal/types"
)

// TaskClient is the one operation a worker needs from the remote service.
type TaskClient interface {
	CreateTask(ctx context.Context, spec types.TaskSpec, remoteURL string) (int, error)
}

// ClientFactory builds a fresh client for one worker. Service sessions are
// not safe to share, so every worker gets its own.
type ClientFactory func() (TaskClient, error)

type Config struct {
	// Workers bounds concurrent submissions. Zero or negative falls back to
	// DefaultWorkers().
	Workers int
	// RatePerSec throttles submissions across all workers with a token
	// bucket. Zero or negative disables the throttle.
	RatePerSec float64
}

// DefaultWorkers caps the pool at 4, matching the limit the service copes
// with comfortably, or lower on small machines.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return n
}

type Dispatcher struct {
	cfg     Config
	factory ClientFactory
	limiter *rate.Limiter
	log     *zap.Logger
}

func New(cfg Config, factory ClientFactory, log *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if log == nil {
		log = zap.NewNop()
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Dispatcher{cfg: cfg, factory: factory, limiter: lim, log: log}
}

// Run submits every record and returns one outcome per record. Outcome order
// is not the input order. Run only stops early if ctx is cancelled, in which
// case remaining records are marked failed with the context error.
func (d *Dispatcher) Run(ctx context.Context, records []types.SourceRecord) []types.Outcome {
	total := len(records)
	d.log.Info("starting task creation",
		zap.Int("records", total),
		zap.Int("workers", d.cfg.Workers),
		zap.Float64("rate_per_sec", d.cfg.RatePerSec))

	in := make(chan types.SourceRecord)
	out := make(chan types.Outcome, total)
	var completed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.runWorker(ctx, worker, in, out, total, &completed)
		}(i)
	}

	for _, rec := range records {
		in <- rec
	}
	close(in)
	wg.Wait()
	close(out)

	outcomes := make([]types.Outcome, 0, total)
	for o := range out {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *Dispatcher) runWorker(ctx context.Context, worker int, in <-chan types.SourceRecord, out chan<- types.Outcome, total int, completed *atomic.Int64) {
	log := d.log.With(zap.Int("worker", worker))

	client, err := d.factory()
	if err != nil {
		// No client means every record this worker pulls fails; the other
		// workers keep going.
		log.Error("client setup failed", zap.Error(err))
		for rec := range in {
			d.record(out, types.Outcome{ID: rec.ID, Error: "client setup: " + err.Error()}, total, completed, log)
		}
		return
	}

	for rec := range in {
		if err := d.limiter.Wait(ctx); err != nil {
			d.record(out, types.Outcome{ID: rec.ID, Error: err.Error()}, total, completed, log)
			continue
		}
		spec := payload.Build(rec)

		metrics.SubmissionsInFlight.Inc()
		taskID, err := client.CreateTask(ctx, spec, rec.ImageURL)
		metrics.SubmissionsInFlight.Dec()

		if err != nil {
			log.Error("task creation failed", zap.String("id", rec.ID), zap.Error(err))
			d.record(out, types.Outcome{ID: rec.ID, Error: err.Error()}, total, completed, log)
			continue
		}
		log.Info("created task", zap.String("id", rec.ID), zap.Int("task_id", taskID))
		d.record(out, types.Outcome{ID: rec.ID, OK: true, TaskID: taskID}, total, completed, log)
	}
}

func (d *Dispatcher) record(out chan<- types.Outcome, o types.Outcome, total int, completed *atomic.Int64, log *zap.Logger) {
	if o.OK {
		metrics.TasksCreated.Inc()
	} else {
		metrics.TasksFailed.Inc()
	}
	out <- o
	if n := completed.Add(1); n%10 == 0 || int(n) == total {
		log.Info("progress", zap.Int64("completed", n), zap.Int("total", total))
	}
}
