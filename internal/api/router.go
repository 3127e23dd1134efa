package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/monitoring"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ScanService is the orchestration surface the HTTP layer exposes
type ScanService interface {
	DiscoverSources(ctx context.Context, subject string, maxResults int) ([]models.CandidateSource, error)
	Scan(ctx context.Context, req monitoring.ScanRequest) (models.ScanResult, error)
	MultiScan(ctx context.Context, req monitoring.MultiScanRequest) (models.MultiSourceReport, error)
	LatestResultDetail(ctx context.Context, subjectID string) (*models.ScanDetail, error)
	RunScheduledScans(ctx context.Context) error
	GetMetrics() string
}

// NewRouter wires every endpoint onto a gorilla/mux router
func NewRouter(service ScanService) *mux.Router {
	h := &handlers{service: service}

	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/status", h.status).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/trigger", h.trigger).Methods(http.MethodPost)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/discover", h.discover).Methods(http.MethodGet)
	apiRouter.HandleFunc("/subjects/{id}/scan", h.scan).Methods(http.MethodPost)
	apiRouter.HandleFunc("/subjects/{id}/latest-result-detail", h.latestResultDetail).Methods(http.MethodGet)
	apiRouter.HandleFunc("/multi-scan", h.multiScan).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()

		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   recorder.status,
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}
