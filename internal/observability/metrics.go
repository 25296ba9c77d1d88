package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cdav1990/overwatch-mission-core/core"
)

// APICollector bundles Prometheus metrics for the mission API surface
// and provides helpers to wire them into HTTP handlers.
type APICollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	MissionWaypoints    prometheus.Gauge
	MissionSegments     prometheus.Gauge
	MissionGCPs         prometheus.Gauge
	MissionSceneObjects prometheus.Gauge

	SimTicks *prometheus.CounterVec
	SimPhase prometheus.Gauge
}

// NewAPICollector registers the API Prometheus metrics against the
// provided registerer, defaulting to the global registry when nil.
func NewAPICollector(reg prometheus.Registerer) (*APICollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Total number of handled API requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"})
	requests, err := registerCounterVec(reg, requests, "api_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})
	durations, err = registerHistogramVec(reg, durations, "api_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	waypoints, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_waypoints",
		Help: "Current number of waypoints in the loaded mission.",
	}), "mission_waypoints")
	if err != nil {
		return nil, err
	}
	segments, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_segments",
		Help: "Current number of path segments in the loaded mission.",
	}), "mission_segments")
	if err != nil {
		return nil, err
	}
	gcps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_gcps",
		Help: "Current number of ground control points in the loaded mission.",
	}), "mission_gcps")
	if err != nil {
		return nil, err
	}
	objects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_scene_objects",
		Help: "Current number of scene objects in the loaded mission.",
	}), "mission_scene_objects")
	if err != nil {
		return nil, err
	}

	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of simulation ticks, labeled by stepper phase.",
	}, []string{"phase"})
	ticks, err = registerCounterVec(reg, ticks, "sim_ticks_total")
	if err != nil {
		return nil, err
	}
	phase, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_phase",
		Help: "Current stepper phase (0 idle, 1 running, 2 holding).",
	}), "sim_phase")
	if err != nil {
		return nil, err
	}

	return &APICollector{
		gatherer:            gatherer,
		HTTPRequests:        requests,
		HTTPDurations:       durations,
		MissionWaypoints:    waypoints,
		MissionSegments:     segments,
		MissionGCPs:         gcps,
		MissionSceneObjects: objects,
		SimTicks:            ticks,
		SimPhase:            phase,
	}, nil
}

// Middleware records request counts and durations for HTTP handlers.
// The route label is the registered pattern, not the raw URL, to keep
// cardinality bounded.
func (c *APICollector) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		if c == nil {
			return
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(r.Method, route, fmt.Sprintf("%d", sw.status)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *APICollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetMissionCounts satisfies the state.MissionMetricsRecorder interface
// so the mission store can drive gauge values directly from its
// mutators.
func (c *APICollector) SetMissionCounts(waypoints, segments, gcps, sceneObjects int) {
	if c == nil {
		return
	}
	if c.MissionWaypoints != nil {
		c.MissionWaypoints.Set(float64(waypoints))
	}
	if c.MissionSegments != nil {
		c.MissionSegments.Set(float64(segments))
	}
	if c.MissionGCPs != nil {
		c.MissionGCPs.Set(float64(gcps))
	}
	if c.MissionSceneObjects != nil {
		c.MissionSceneObjects.Set(float64(sceneObjects))
	}
}

// RecordSimTick satisfies the state.MissionMetricsRecorder interface.
func (c *APICollector) RecordSimTick(phase core.Phase) {
	if c == nil {
		return
	}
	if c.SimTicks != nil {
		c.SimTicks.WithLabelValues(phase.String()).Inc()
	}
	if c.SimPhase != nil {
		c.SimPhase.Set(float64(phase))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
