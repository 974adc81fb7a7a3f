// Command msqbench drives a fleet of in-process message queues against
// each other — posted messages, hardware mouse traffic through the cooker,
// and non-blocking synchronous cross-thread sends — and reports throughput while exposing
// live wake/change-bit counters and host CPU/memory on a Prometheus
// /metrics endpoint. It exists to load-test and observe the msgqueue
// package the way a real application loop would drive it, without a human
// typing or moving a mouse.
//
// go run ./cmd/msqbench --config tuning.yaml --metrics-addr :18080 --duration 30s
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/pflag"

	"github.com/kernelbin/msgqueue/internal/qlog"
	"github.com/kernelbin/msgqueue/internal/wake"
)

var (
	configPath  = pflag.StringP("config", "c", "msqbench.yaml", "Path to the hot-reloadable tuning file")
	metricsAddr = pflag.StringP("metrics-addr", "m", ":18080", "Address to serve /metrics on")
	duration    = pflag.DurationP("duration", "d", 0, "Stop after this long; 0 runs until interrupted")
	threads     = pflag.IntP("threads", "t", 0, "Override the tuning file's worker count; 0 keeps the file's value")
	verbose     = pflag.BoolP("verbose", "v", false, "Log at debug level")
	help        = pflag.Bool("help", false, "Display help text")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "msqbench: load-generate and observe a msgqueue subsystem.")
		fmt.Fprintln(os.Stderr, "usage: msqbench [options]")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logFile, err := qlog.InitFile("msqbench")
	if err != nil {
		fmt.Fprintf(os.Stderr, "msqbench: could not open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	if *verbose {
		qlog.SetLevel(zerolog.DebugLevel)
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		qlog.Logger().Error().Err(err).Str("path", *configPath).Msg("could not load tuning file")
		os.Exit(1)
	}
	if *threads > 0 {
		tuning.Threads = *threads
	}

	collector := wake.NewCollector("msqbench", "queue")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	bench := NewBench(tuning, collector)

	watcher, err := watchTuning(*configPath, func(tn Tuning) {
		if *threads > 0 {
			tn.Threads = *threads
		}
		qlog.Logger().Info().Msg("tuning file reloaded")
		bench.Retune(tn)
	})
	if err != nil {
		qlog.Logger().Warn().Err(err).Msg("hot-reload disabled: could not watch tuning file")
	} else {
		defer watcher.Close()
	}

	sampleGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "msqbench",
		Subsystem: "host",
		Name:      "percent",
		Help:      "Host CPU and memory utilization sampled once per second.",
	}, []string{"resource"})
	registry.MustRegister(sampleGauge)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			qlog.Logger().Error().Err(err).Msg("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		qlog.Logger().Info().Msg("interrupted, shutting down")
		cancel()
	}()
	if *duration > 0 {
		var durationCancel context.CancelFunc
		ctx, durationCancel = context.WithTimeout(ctx, *duration)
		defer durationCancel()
	}

	go sampleHost(ctx, sampleGauge)

	qlog.Logger().Info().Int("threads", tuning.Threads).Str("metrics-addr", *metricsAddr).Msg("msqbench starting")
	summary := bench.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	fmt.Printf("workers=%d posted=%d sent=%d send_ok=%d send_err=%d delivered=%d\n",
		summary.Workers, summary.Posted, summary.Sent, summary.SendOK, summary.SendErr, summary.Delivered)
}

// sampleHost polls gopsutil once a second and republishes the results as
// Prometheus gauges, so a scrape correlates queue pressure with host load.
func sampleHost(ctx context.Context, gauge *prometheus.GaugeVec) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
				gauge.WithLabelValues("cpu").Set(percents[0])
			}
			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				gauge.WithLabelValues("memory").Set(vm.UsedPercent)
			}
		}
	}
}
