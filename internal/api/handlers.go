package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
	"github.com/adverant/nexus/flightcapture-worker/internal/queue"
	"github.com/adverant/nexus/flightcapture-worker/internal/storage"
)

const multipartMemory = 32 << 20

// Handler serves the capture intake endpoints
type Handler struct {
	processor    processor.CaptureProcessorInterface
	store        storage.RecordStore
	maxImageSize int64
	timeout      time.Duration
	logger       *logging.Logger
}

// NewHandler creates a new handler. store may be nil; a zero timeout leaves
// captures bounded only by the request context.
func NewHandler(proc processor.CaptureProcessorInterface, store storage.RecordStore, maxImageSize int64, timeout time.Duration, logger *logging.Logger) *Handler {
	return &Handler{
		processor:    proc,
		store:        store,
		maxImageSize: maxImageSize,
		timeout:      timeout,
		logger:       logger.Named("handler"),
	}
}

// CreateCapture processes a multipart upload: a required "flight" image,
// an optional "crew" image, and optional "compact", "overrides" and
// "role_changes" fields (the last two as JSON objects).
func (h *Handler) CreateCapture(w http.ResponseWriter, r *http.Request) {
	if h.maxImageSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxImageSize+(1<<20))
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	job := &queue.CaptureJob{JobID: uuid.NewString()}

	var err error
	if job.FlightImage, err = formFile(r, "flight"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if job.FlightImage == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("flight image is required"))
		return
	}
	if job.CrewImage, err = formFile(r, "crew"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if v := r.FormValue("compact"); v != "" {
		if job.CompactCrew, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid compact flag: %w", err))
			return
		}
	}
	if err := formJSON(r, "overrides", &job.Overrides); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := formJSON(r, "role_changes", &job.RoleChanges); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, err := job.ToRequest(h.maxImageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.processor.ProcessCapture(ctx, req)
	if err != nil {
		h.logger.Error("Capture failed", "job", job.JobID, "code", apperrors.CodeOf(err), "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetRecord returns a persisted export by key
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("record store not configured"))
		return
	}

	key := chi.URLParam(r, "key")
	rec, err := h.store.GetRecord(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.logger.Error("Record lookup failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetHealth reports liveness and store connectivity
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["store"] = "ok"
	}

	writeJSON(w, http.StatusOK, status)
}

func formFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, nil
}

func formJSON(r *http.Request, field string, dst interface{}) error {
	v := r.FormValue(field)
	if v == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrImageConversionFailed), errors.Is(err, queue.ErrInvalidJob):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrProcessingTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var pe *apperrors.ProcessingError
	if errors.As(err, &pe) {
		writeJSON(w, status, pe.ToMap())
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
