/**
 * Capture Processor for the Flight Capture Worker
 *
 * Runs one capture session end to end:
 * - flight-data regions recognized concurrently, parsed and scored as they land
 * - crew roster regions recognized concurrently on a second batch
 * - date inference once the flight batch completes
 * - a two-flag barrier joining both pipelines before export assembly
 * - idempotent persistence of the assembled record
 */

package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/flightcapture-worker/internal/dateinfer"
	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/export"
	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
	"github.com/adverant/nexus/flightcapture-worker/internal/roi"
	"github.com/adverant/nexus/flightcapture-worker/internal/storage"
)

// CaptureProcessorInterface defines the interface for capture processing
type CaptureProcessorInterface interface {
	ProcessCapture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error)
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Recognizer         Recognizer
	RecognitionTimeout time.Duration
	Store              storage.RecordStore // optional
	DateEngine         *dateinfer.Engine   // optional, wall clock when nil
	Assembler          *export.Assembler   // optional
	Logger             *logging.Logger     // optional
}

// CaptureRequest is one capture to process
type CaptureRequest struct {
	JobID  string
	Flight image.Image
	// Crew is the roster image. When nil and CompactCrew is set, the crew
	// regions are read from the flight image; otherwise crew is skipped.
	Crew        image.Image
	CompactCrew bool
	Overrides   export.Overrides
	// RoleChanges moves named crew members to other roles after parsing.
	RoleChanges map[string]models.Role
}

// CaptureResult is the outcome of a capture session
type CaptureResult struct {
	SessionID        string         `json:"session_id"`
	Export           *export.Export `json:"export"`
	Session          Snapshot       `json:"session"`
	FailedRegions    []string       `json:"failed_regions,omitempty"`
	DateError        string         `json:"date_error,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// CaptureProcessor handles capture sessions
type CaptureProcessor struct {
	coordinator *Coordinator
	store       storage.RecordStore
	dates       *dateinfer.Engine
	assembler   *export.Assembler
	logger      *logging.Logger
}

// NewCaptureProcessor creates a new capture processor
func NewCaptureProcessor(cfg *ProcessorConfig) (*CaptureProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("CaptureProcessor")
	}
	dates := cfg.DateEngine
	if dates == nil {
		dates = dateinfer.NewEngine()
	}
	assembler := cfg.Assembler
	if assembler == nil {
		assembler = export.NewAssembler(nil)
	}

	return &CaptureProcessor{
		coordinator: NewCoordinator(cfg.Recognizer, cfg.RecognitionTimeout, logger.Named("Coordinator")),
		store:       cfg.Store,
		dates:       dates,
		assembler:   assembler,
		logger:      logger,
	}, nil
}

// ProcessCapture runs both pipelines, waits for the barrier and assembles the export.
// Region failures only lower confidence; the returned error is reserved for
// a missing image, the context ending first, or a failed store write.
func (p *CaptureProcessor) ProcessCapture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	start := time.Now()
	if req == nil || req.Flight == nil {
		return nil, apperrors.NewImageConversionError(fmt.Errorf("flight image is required"))
	}

	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}
	log := p.logger.With("session", id)

	session := NewSession(id)
	session.SetOverrides(req.Overrides)

	var (
		mu      sync.Mutex
		failed  []string
		dateErr error
	)
	collect := func(results []ROIResult) {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range results {
			if r.Err != nil {
				failed = append(failed, r.Name)
			}
		}
	}

	barrier := NewBarrier(nil)

	p.coordinator.Start(ctx, req.Flight, roi.FlightCatalog(), Hooks{
		OnResult: session.ApplyFlightResult,
		OnComplete: func(results []ROIResult) {
			collect(results)
			err := session.InferDate(p.dates)
			mu.Lock()
			dateErr = err
			mu.Unlock()
			barrier.MarkFlightDone()
		},
	})

	crewHooks := Hooks{
		OnComplete: func(results []ROIResult) {
			collect(results)
			session.ApplyCrewResults(results)
			barrier.MarkCrewDone()
		},
	}
	switch {
	case req.Crew != nil:
		p.coordinator.Start(ctx, req.Crew, roi.CrewCatalog(), crewHooks)
	case req.CompactCrew:
		p.coordinator.Start(ctx, req.Flight, roi.CompactCrewCatalog(), crewHooks)
	default:
		barrier.MarkCrewDone()
	}

	select {
	case <-barrier.Done():
	case <-ctx.Done():
		return nil, apperrors.NewProcessingTimeoutError(id, time.Since(start), ctx.Err())
	}

	for name, role := range req.RoleChanges {
		if err := session.ReassignRole(name, role); err != nil {
			log.Warn("Role change not applied", "name", name, "role", role, "error", err)
		}
	}

	exp := session.Export(p.assembler)

	mu.Lock()
	result := &CaptureResult{
		SessionID:        id,
		Export:           exp,
		Session:          session.Snapshot(),
		FailedRegions:    failed,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if dateErr != nil {
		result.DateError = dateErr.Error()
	}
	mu.Unlock()

	if dateErr != nil {
		log.Info("Date inference failed, using fallback date", "error", dateErr)
	}

	if p.store != nil {
		if err := p.persist(ctx, id, result); err != nil {
			return result, err
		}
	}

	log.Info("Capture processed",
		"key", exp.Key,
		"flight", exp.FlightNumber,
		"failedRegions", len(result.FailedRegions),
		"reviewItems", len(result.Session.Review),
		"durationMs", result.ProcessingTimeMs)

	return result, nil
}

func (p *CaptureProcessor) persist(ctx context.Context, jobID string, result *CaptureResult) error {
	payload, err := result.Export.Payload.JSON()
	if err != nil {
		return apperrors.NewStorageFailedError(jobID, err)
	}
	review, err := json.Marshal(result.Session.Review)
	if err != nil {
		return apperrors.NewStorageFailedError(jobID, err)
	}

	exp := result.Export
	rec := &storage.Record{
		Key:          exp.Key,
		JobID:        jobID,
		FlightNumber: exp.FlightNumber,
		Origin:       exp.Origin,
		Destination:  exp.Destination,
		FlightDate:   exp.Date,
		DateInferred: exp.DateInferred,
		Payload:      payload,
		Review:       review,
	}
	if err := p.store.SaveRecord(ctx, rec); err != nil {
		return apperrors.NewStorageFailedError(jobID, err)
	}
	return nil
}

// DecodeImage decodes a PNG or JPEG capture, rejecting oversized input.
func DecodeImage(data []byte, maxSize int64) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.NewImageConversionError(fmt.Errorf("empty image"))
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, apperrors.NewImageConversionError(fmt.Errorf("image is %d bytes, limit %d", len(data), maxSize))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewImageConversionError(err)
	}
	return img, nil
}
