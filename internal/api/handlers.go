package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/anomaly"
	"github.com/SaumyaAdani05/coastwatchd/internal/chatbot"
	"github.com/SaumyaAdani05/coastwatchd/internal/ingest"
	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Store         store.Store
	Manager       *anomaly.Manager
	Ingest        *ingest.Service
	Chatbot       *chatbot.Responder
	Hub           *Hub
	Logger        *slog.Logger
	StartTime     time.Time
	StorageDriver string
	StoragePath   string
	Version       string
}

// apiError is a JSON error response.
type apiError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg, Code: status})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// SubmitReading handles POST /api/v1/readings
func (h *Handlers) SubmitReading(w http.ResponseWriter, r *http.Request) {
	var sub ingest.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reading, err := h.Ingest.Submit(r.Context(), sub)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}

	writeJSON(w, http.StatusCreated, reading)
}

// GetCurrentReading handles GET /api/v1/readings/current
func (h *Handlers) GetCurrentReading(w http.ResponseWriter, r *http.Request) {
	latest, err := h.Store.LatestReading(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get latest reading")
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no data found")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// ListReadings handles GET /api/v1/readings
func (h *Handlers) ListReadings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 1000
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 10000 {
			limit = n
		}
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	readings, err := h.Store.AllReadings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get readings")
		return
	}

	total := len(readings)

	// Apply limit/offset.
	if offset > 0 && offset < len(readings) {
		readings = readings[offset:]
	} else if offset >= len(readings) {
		readings = nil
	}
	if limit > 0 && limit < len(readings) {
		readings = readings[:limit]
	}
	if readings == nil {
		readings = []store.Reading{}
	}

	// Envelope response.
	type readingsResponse struct {
		Total    int             `json:"total"`
		Limit    int             `json:"limit"`
		Offset   int             `json:"offset"`
		Readings []store.Reading `json:"readings"`
	}

	writeJSON(w, http.StatusOK, readingsResponse{
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Readings: readings,
	})
}

// Retrain handles POST /api/v1/retrain
func (h *Handlers) Retrain(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Retrain(r.Context()); err != nil {
		if errors.Is(err, anomaly.ErrInsufficientData) {
			writeError(w, http.StatusConflict, "no readings to train on")
			return
		}
		h.Logger.Error("retrain failed", "error", err)
		writeError(w, http.StatusInternalServerError, "retrain failed")
		return
	}

	type retrainResponse struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	writeJSON(w, http.StatusOK, retrainResponse{Status: "success", Message: "Models retrained."})
}

// Chat handles POST /api/v1/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}

	response, err := h.Chatbot.Respond(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to answer")
		return
	}

	type chatResponse struct {
		Response string `json:"response"`
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.CountReadings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query store")
		return
	}
	oldest, newest, err := h.Store.DataRange(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query store")
		return
	}

	type modelInfo struct {
		Trained   bool       `json:"trained"`
		TrainedAt *time.Time `json:"trained_at,omitempty"`
		Corpus    int        `json:"corpus,omitempty"`
	}
	type healthResponse struct {
		Status        string     `json:"status"`
		Version       string     `json:"version,omitempty"`
		Uptime        string     `json:"uptime"`
		StorageDriver string     `json:"storage_driver,omitempty"`
		StoragePath   string     `json:"storage_path,omitempty"`
		ReadingCount  int        `json:"reading_count"`
		OldestReading *time.Time `json:"oldest_reading,omitempty"`
		NewestReading *time.Time `json:"newest_reading,omitempty"`
		Model         modelInfo  `json:"model"`
		StreamClients int        `json:"stream_clients"`
	}

	resp := healthResponse{
		Status:        "ok",
		Version:       h.Version,
		Uptime:        formatUptime(time.Since(h.StartTime)),
		StorageDriver: h.StorageDriver,
		StoragePath:   h.StoragePath,
		ReadingCount:  count,
		StreamClients: h.Hub.ClientCount(),
	}
	if !oldest.IsZero() {
		resp.OldestReading = &oldest
		resp.NewestReading = &newest
	}
	if snap := h.Manager.Snapshot(); snap != nil {
		resp.Model.Trained = true
		resp.Model.TrainedAt = &snap.TrainedAt
		resp.Model.Corpus = snap.Corpus
	}

	writeJSON(w, http.StatusOK, resp)
}
