package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/discovery"
	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/gamepulse/sentiment-bot/internal/monitoring"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	service ScanService
}

type scanRequest struct {
	Source   string `json:"source"`
	Subject  string `json:"subject"`
	Keywords string `json:"keywords"`
}

type multiScanRequest struct {
	Sources          []string `json:"sources"`
	Subject          string   `json:"subject"`
	Keywords         string   `json:"keywords"`
	IncludeBreakdown bool     `json:"include_breakdown"`
}

type discoverResponse struct {
	Results []models.CandidateSource `json:"results"`
}

type breakdownResponse struct {
	Breakdown []models.BreakdownRow `json:"breakdown"`
	Error     bool                  `json:"error,omitempty"`
}

type multiScanResponse struct {
	Overall            models.SentimentReport `json:"overall"`
	Meta               models.ReportMeta      `json:"meta"`
	SubredditBreakdown *breakdownResponse     `json:"subreddit_breakdown,omitempty"`
}

type resultDetailResponse struct {
	CreatedAt time.Time              `json:"created_at"`
	Analysis  models.SentimentReport `json:"analysis"`
	Posts     []models.Post          `json:"posts"`
	Comments  []models.Comment       `json:"comments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.service.GetMetrics()))
}

func (h *handlers) trigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.service.RunScheduledScans(context.Background()); err != nil {
			logrus.Errorf("Manual scan trigger failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Scheduled scans triggered"})
}

func (h *handlers) discover(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	maxResults := discovery.DefaultResults
	if raw := strings.TrimSpace(query.Get("max")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max must be an integer")
			return
		}
		maxResults = parsed
	}

	results, err := h.service.DiscoverSources(r.Context(), query.Get("subject"), maxResults)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []models.CandidateSource{}
	}
	writeJSON(w, http.StatusOK, discoverResponse{Results: results})
}

func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.service.Scan(r.Context(), monitoring.ScanRequest{
		SubjectID: mux.Vars(r)["id"],
		Source:    body.Source,
		Subject:   body.Subject,
		Keywords:  body.Keywords,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) multiScan(w http.ResponseWriter, r *http.Request) {
	var body multiScanRequest
	if !decodeBody(w, r, &body) {
		return
	}

	report, err := h.service.MultiScan(r.Context(), monitoring.MultiScanRequest{
		Sources:          body.Sources,
		Subject:          body.Subject,
		Keywords:         body.Keywords,
		IncludeBreakdown: body.IncludeBreakdown,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := multiScanResponse{Overall: report.Overall, Meta: report.Meta}
	if report.Breakdown != nil {
		response.SubredditBreakdown = &breakdownResponse{
			Breakdown: report.Breakdown.Rows,
			Error:     report.Breakdown.Degraded,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *handlers) latestResultDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.LatestResultDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := resultDetailResponse{
		CreatedAt: detail.CreatedAt,
		Analysis:  detail.Analysis,
		Posts:     detail.Posts,
		Comments:  detail.Comments,
	}
	if response.Posts == nil {
		response.Posts = []models.Post{}
	}
	if response.Comments == nil {
		response.Comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, response)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
		} else {
			writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		}
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *monitoring.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logrus.Infof("Rejected request: %v", err)
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, monitoring.ErrNoResults):
		writeError(w, http.StatusNotFound, "no scan results found for this subject")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logrus.Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
