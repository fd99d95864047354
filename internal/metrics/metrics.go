// ABOUTME: Prometheus exporter for pull adapter counters
// ABOUTME: Snapshots Stats at scrape time and serves /metrics over HTTP
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Sendspin/pullbridge/internal/version"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace       = version.Product
	metricsPath     = "/metrics"
	shutdownTimeout = 2 * time.Second
)

// StatsSource is anything that can report adapter counters
type StatsSource interface {
	Stats() pull.Stats
}

// StatsFunc adapts a plain function to StatsSource
type StatsFunc func() pull.Stats

// Stats calls f
func (f StatsFunc) Stats() pull.Stats { return f() }

// AdapterCollector implements prometheus.Collector over a StatsSource.
// Values are read on every scrape, so nothing has to push updates.
type AdapterCollector struct {
	src StatsSource

	buffered  *prometheus.Desc
	free      *prometheus.Desc
	capacity  *prometheus.Desc
	delay     *prometheus.Desc
	state     *prometheus.Desc
	written   *prometheus.Desc
	read      *prometheus.Desc
	underruns *prometheus.Desc
}

// NewAdapterCollector builds a collector and registers it with registry
func NewAdapterCollector(src StatsSource, registry prometheus.Registerer) (*AdapterCollector, error) {
	c := &AdapterCollector{
		src: src,
		buffered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "buffered_frames"),
			"Frames queued in the adapter ring",
			nil, nil,
		),
		free: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "free_frames"),
			"Frames the producer may write without blocking",
			nil, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "capacity_frames"),
			"Ring capacity in frames",
			nil, nil,
		),
		delay: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "delay_seconds"),
			"Time until the next written frame reaches the speaker",
			nil, nil,
		),
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "state"),
			"Adapter state (0 idle, 1 playing, 2 paused)",
			nil, nil,
		),
		written: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_written_total"),
			"Frames accepted from the producer",
			nil, nil,
		),
		read: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_read_total"),
			"Frames handed to the device driver",
			nil, nil,
		),
		underruns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "underruns_total"),
			"Device reads while playing that were padded with silence",
			nil, nil,
		),
	}

	if registry != nil {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register adapter collector: %w", err)
		}
	}
	return c, nil
}

// Describe implements prometheus.Collector
func (c *AdapterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.buffered
	ch <- c.free
	ch <- c.capacity
	ch <- c.delay
	ch <- c.state
	ch <- c.written
	ch <- c.read
	ch <- c.underruns
}

// Collect implements prometheus.Collector
func (c *AdapterCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.BufferedFrames))
	ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(s.FreeFrames))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.CapacityFrames))
	ch <- prometheus.MustNewConstMetric(c.delay, prometheus.GaugeValue, s.Delay)
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(s.State))
	ch <- prometheus.MustNewConstMetric(c.written, prometheus.CounterValue, float64(s.FramesWritten))
	ch <- prometheus.MustNewConstMetric(c.read, prometheus.CounterValue, float64(s.FramesRead))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(s.Underruns))
}

// Handler returns the /metrics handler for registry
func Handler(registry *prometheus.Registry, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(log.Named("metrics")),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Serve exposes registry on addr until ctx is cancelled.
// The listener is bound before Serve returns to the caller's goroutine,
// so a bad address fails immediately.
func Serve(ctx context.Context, addr string, registry *prometheus.Registry, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, Handler(registry, log))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
