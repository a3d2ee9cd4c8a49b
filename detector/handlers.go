package detector

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"phishguard/model"
	"phishguard/storage"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type ClassifyRequest struct {
	URL string `json:"url"`
}

type BatchRequest struct {
	URLs []string `json:"urls"`
}

type BatchResponse struct {
	Results []Result `json:"results"`
}

type HistoryResponse struct {
	Scans []*storage.Scan `json:"scans"`
}

type HealthResponse struct {
	Status string       `json:"status"`
	Model  ModelSummary `json:"model"`
}

// Handler serves the JSON API.
type Handler struct {
	svc     *Service
	limiter *rate.Limiter
	mux     *http.ServeMux
}

// NewHandler builds the API. Classification and history routes share one
// token bucket of perSecond requests with the given burst; perSecond <= 0
// disables limiting. /healthz is never limited.
func NewHandler(svc *Service, perSecond float64, burst int) *Handler {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	h := &Handler{
		svc:     svc,
		limiter: rate.NewLimiter(limit, burst),
		mux:     http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /classify", h.limited(h.Classify))
	h.mux.HandleFunc("POST /classify/batch", h.limited(h.ClassifyBatch))
	h.mux.HandleFunc("GET /history", h.limited(h.History))
	h.mux.HandleFunc("GET /history/{id}", h.limited(h.Scan))
	h.mux.HandleFunc("GET /stats", h.limited(h.Stats))
	h.mux.HandleFunc("GET /healthz", h.Health)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Classify(r.Context(), req.URL)
	if err != nil {
		writeClassifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	results, err := h.svc.ClassifyBatch(r.Context(), req.URLs)
	if err != nil {
		writeClassifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	scans, err := h.svc.History(limit)
	if err != nil {
		logrus.Errorf("[HISTORY] %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Scans: scans})
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid scan id", http.StatusBadRequest)
		return
	}

	scan, err := h.svc.Scan(id)
	if err != nil {
		logrus.Errorf("[HISTORY] %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if scan == nil {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats()
	if err != nil {
		logrus.Errorf("[STATS] %v", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Model: h.svc.Model()})
}

func writeClassifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyURL), errors.Is(err, ErrBatchTooLarge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrWidthMismatch):
		logrus.Errorf("[CLASSIFY] model does not fit extracted vector: %v", err)
		http.Error(w, "classifier misconfigured", http.StatusInternalServerError)
	default:
		logrus.Errorf("[CLASSIFY] %v", err)
		http.Error(w, "classification failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("[API] failed to encode response: %v", err)
	}
}
