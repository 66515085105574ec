// Package metrics exports transcription and persistence counters to Prometheus.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/voxnotes/pkg/core"
)

// DefaultNamespace prefixes every metric.
const DefaultNamespace = "voxnotes"

// Collector holds the Prometheus metrics of one session.
type Collector struct {
	registry *prometheus.Registry

	Notifications  *prometheus.CounterVec
	BatchNotes     prometheus.Counter
	Recognitions   *prometheus.CounterVec
	RecognizeTime  *prometheus.HistogramVec
	PersistFailure *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications reported to the user, by kind",
			},
			[]string{"kind"},
		),
		BatchNotes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_notes_updated_total",
				Help:      "Notes updated by finished transcription batches",
			},
		),
		Recognitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recognitions_total",
				Help:      "Remote recognition calls, by outcome",
			},
			[]string{"outcome"},
		),
		RecognizeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recognition_duration_seconds",
				Help:      "Duration of remote recognition calls",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		PersistFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persistence_failures_total",
				Help:      "Failed note saves and loads",
			},
			[]string{"operation"},
		),
	}
	c.registry.MustRegister(c.Notifications, c.BatchNotes, c.Recognitions, c.RecognizeTime, c.PersistFailure)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Notifier counts every notification and forwards it to next.
func (c *Collector) Notifier(next core.Notifier) core.Notifier {
	return core.NotifierFunc(func(n core.Notification) {
		c.Notifications.WithLabelValues(string(n.Kind)).Inc()
		switch n.Kind {
		case core.NotifyBatchCompleted:
			c.BatchNotes.Add(float64(n.Count))
		case core.NotifySaveFailed:
			c.PersistFailure.WithLabelValues("save").Inc()
		case core.NotifyLoadFailed:
			c.PersistFailure.WithLabelValues("load").Inc()
		}
		if next != nil {
			next.Notify(n)
		}
	})
}

// Transcriber times every recognition call of next.
func (c *Collector) Transcriber(next core.Transcriber) core.Transcriber {
	return &timedTranscriber{next: next, c: c}
}

type timedTranscriber struct {
	next core.Transcriber
	c    *Collector
}

func (t *timedTranscriber) Transcribe(ctx context.Context, audio []byte, languageCode string, credentials []byte) (string, error) {
	start := time.Now()
	text, err := t.next.Transcribe(ctx, audio, languageCode, credentials)
	outcome := Outcome(err)
	t.c.Recognitions.WithLabelValues(outcome).Inc()
	t.c.RecognizeTime.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return text, err
}

// Outcome labels the result of a recognition call.
func Outcome(err error) string {
	var authErr *core.AuthError
	var svcErr *core.RecognitionServiceError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &authErr):
		return "auth_error"
	case errors.As(err, &svcErr):
		return "service_error"
	case errors.Is(err, core.ErrTranscriptionParse):
		return "parse_error"
	default:
		return "error"
	}
}

// WatchScheduler exports the queue of the scheduler behind state as gauges.
func (c *Collector) WatchScheduler(namespace string, state func() core.SchedulerState) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcription_queue_pending",
			Help:      "Transcription jobs waiting for the worker",
		}, func() float64 { return float64(state().Pending) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcription_in_flight",
			Help:      "1 while a recognition call is running",
		}, func() float64 {
			if state().InFlight != "" {
				return 1
			}
			return 0
		}),
	)
}

// Router serves /metrics and, when status is set, /status as JSON.
func (c *Collector) Router(status func() any) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", c.Handler())
	if status != nil {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(status())
		})
	}
	return r
}

// Serve runs Router on addr until ctx ends.
func (c *Collector) Serve(ctx context.Context, addr string, status func() any) error {
	srv := &http.Server{Addr: addr, Handler: c.Router(status), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
