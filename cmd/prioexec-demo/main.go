// Command prioexec-demo runs a small workload on a prioexec pool: a
// producer/consumer pair coordinated through a Signal, a burst of
// prioritized jobs, and a task that panics. A supervisor loop outside the
// pool heals crashed workers, backing off while the pool is healthy.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/azargarov/prioexec"
	promexp "github.com/azargarov/prioexec/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	superviseInitial = 10 * time.Millisecond
	superviseMax     = time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a YAML options file")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	jobs := flag.Int("jobs", 20, "number of prioritized jobs to spawn")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	logger := lg.FromContext(ctx)

	opts, err := loadOptions(*configPath)
	if err != nil {
		logger.Error("load options failed", lg.String("path", *configPath), lg.Any("error", err))
		cancel()
		os.Exit(1)
	}
	opts.Ctx = ctx

	reg := prom.NewRegistry()
	exporter, err := promexp.NewMetricsExporter("prioexec", reg, promexp.ExporterOptions{Pool: "demo"})
	if err != nil {
		logger.Error("metrics exporter failed", lg.Any("error", err))
		cancel()
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", lg.Any("error", err))
			}
		}()
		defer server.Close()
	}

	opts.OnTaskPanic = func(err error) {
		logger.Warn("worker lost to a panicking task", lg.Any("error", err))
	}
	pool := prioexec.NewPoolFromOptions(exporter, opts)

	superviseCtx, stopSupervisor := context.WithCancel(ctx)
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		supervise(superviseCtx, pool)
	}()

	ready := prioexec.NewSignal()
	consumer := pool.Spawn(1, prioexec.Chain(ready, prioexec.Func(func() {
		logger.Info("consumer observed producer signal")
	})))
	pool.Spawn(2, prioexec.Func(func() {
		logger.Info("producer done")
		ready.Set()
	}))

	pool.Spawn(50, prioexec.Func(func() { panic("demo: simulated task failure") }))

	handles := make([]*prioexec.TaskHandle, 0, *jobs)
	for i := range *jobs {
		prio := uint64(i % 5)
		handles = append(handles, pool.Spawn(prio, prioexec.Chain(prioexec.Yield(), prioexec.Func(func() {
			logger.Info("job ran", lg.Int("job", i), lg.Any("priority", prio))
		}))))
	}
	handles = append(handles, consumer)

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	for _, h := range handles {
		if err := h.Wait(waitCtx); err != nil {
			logger.Error("task did not finish", lg.String("task", h.ID().String()), lg.Any("error", err))
			break
		}
	}

	stopSupervisor()
	<-supervised

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", lg.Any("error", err))
	}
	logger.Info("demo finished", lg.Any("spawned", pool.Spawned()))
}

func loadOptions(path string) (prioexec.Options, error) {
	if path == "" {
		opts := prioexec.Options{Workers: 4}
		opts.FillDefaults()
		return opts, nil
	}
	return prioexec.LoadOptions(path)
}

// supervise polls worker liveness and heals dead workers. The delay grows
// while nothing needs healing and resets after a restart.
func supervise[M prioexec.MetricsPolicy](ctx context.Context, pool *prioexec.Pool[M]) {
	logger := lg.FromContext(ctx)
	bo := boff.New(superviseInitial, superviseMax, time.Now().UnixNano())
	delay := superviseInitial

	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if n := pool.Heal(); n > 0 {
			logger.Info("supervisor healed workers", lg.Int("count", n))
			bo = boff.New(superviseInitial, superviseMax, time.Now().UnixNano())
			delay = superviseInitial
			continue
		}
		delay = bo.Next()
	}
}
