package streamgen

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// compile-time check that Metrics implements Observer interface.
var _ Observer = &Metrics{}

// Metrics collects send outcomes and serves them over HTTP.
type Metrics struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	duration prometheus.Histogram
	window   *SendWindow
	now      func() time.Time

	mu       sync.Mutex
	progress func() Report

	httpServer *http.Server
}

// NewMetrics returns new Metrics instance. Window keeps `buckets` one second buckets,
// progress bars are scaled to the number of sends pacing allows per second.
func NewMetrics(pacing time.Duration, buckets int64) *Metrics {
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "streamgen",
			Name:      "records_total",
			Help:      "Number of records passed to the socket.",
		},
		[]string{"kind", "result"},
	)
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "streamgen",
		Name:      "send_duration_seconds",
		Help:      "Time spent in a single datagram send.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(records, duration)

	var expected int64
	if pacing > 0 {
		expected = int64(time.Second / pacing)
	}

	return &Metrics{
		registry: registry,
		records:  records,
		duration: duration,
		window:   NewSendWindow(1, expected, buckets, time.Now()),
		now:      time.Now,
	}
}

// ObserveSend implements Observer.
func (m *Metrics) ObserveSend(kind Kind, err error, took time.Duration) {
	result := "sent"
	if err != nil {
		result = "failed"
	}

	m.records.WithLabelValues(kind.String(), result).Inc()
	m.duration.Observe(took.Seconds())
	m.window.Add(m.now(), err != nil)
}

// Track sets source of the run totals shown on /status.
func (m *Metrics) Track(progress func() Report) {
	m.mu.Lock()
	m.progress = progress
	m.mu.Unlock()
}

// Handler returns mux with /metrics and /status endpoints.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "text/plain")
		m.writeStatus(w)
	})

	return mux
}

func (m *Metrics) writeStatus(w http.ResponseWriter) {
	m.mu.Lock()
	progress := m.progress
	m.mu.Unlock()

	if progress != nil {
		p := progress()
		fmt.Fprintf(w, "attempted: %d, sent: %d, failed: %d\n\n", p.Attempted, p.Sent, p.Failed)
	}

	m.window.WriteStatus(w)
}

// RunHTTPHandlers runs metrics handler on specified port.
func (m *Metrics) RunHTTPHandlers(port int, log *zap.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%v", port), Handler: m.Handler()}
	m.httpServer = srv

	log.Info("starting metrics handler", zap.Int("port", port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to run metrics handler", zap.Error(err))
		}
	}()
}

// Close stops metrics handler if it was started.
func (m *Metrics) Close() error {
	if m.httpServer == nil {
		return nil
	}

	return m.httpServer.Close()
}
