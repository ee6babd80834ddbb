package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the identity
// service. All recording methods are safe on a nil receiver so callers can
// run without metrics wired.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	loginTotal        *prometheus.CounterVec
	refreshTotal      *prometheus.CounterVec
	validationTotal   *prometheus.CounterVec
	registrationTotal prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	loginTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refreshes_total",
		Help: "Refresh token exchanges by outcome",
	}, []string{"outcome"})

	validationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_validations_total",
		Help: "Access token validations by outcome",
	}, []string{"outcome"})

	registrationTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Successful registrations",
	})

	registry.MustRegister(requestDuration, requestTotal, loginTotal, refreshTotal, validationTotal, registrationTotal)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		loginTotal:        loginTotal,
		refreshTotal:      refreshTotal,
		validationTotal:   validationTotal,
		registrationTotal: registrationTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordLogin counts a login attempt by outcome.
func (s *MetricsService) RecordLogin(outcome string) {
	if s == nil {
		return
	}
	s.loginTotal.WithLabelValues(outcome).Inc()
}

// RecordRefresh counts a refresh exchange by outcome.
func (s *MetricsService) RecordRefresh(outcome string) {
	if s == nil {
		return
	}
	s.refreshTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenValidation counts an access token validation by outcome.
func (s *MetricsService) RecordTokenValidation(outcome string) {
	if s == nil {
		return
	}
	s.validationTotal.WithLabelValues(outcome).Inc()
}

// RecordRegistration counts a successful registration.
func (s *MetricsService) RecordRegistration() {
	if s == nil {
		return
	}
	s.registrationTotal.Inc()
}
