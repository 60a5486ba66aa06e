package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adverant/nexus/flightcapture-worker/internal/crew"
	"github.com/adverant/nexus/flightcapture-worker/internal/export"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
)

// TaskTypeCapture is the Asynq task type for capture jobs
const TaskTypeCapture = "process-capture"

const defaultProcessingTimeout = 2 * time.Minute

// ErrInvalidJob marks jobs whose overrides or role changes cannot be applied
var ErrInvalidJob = errors.New("invalid capture job")

// CaptureJob is the queued form of a capture request
type CaptureJob struct {
	JobID       string            `json:"jobId"`
	FlightImage []byte            `json:"-"`
	CrewImage   []byte            `json:"-"`
	CompactCrew bool              `json:"compactCrew,omitempty"`
	Overrides   map[string]string `json:"overrides,omitempty"`
	RoleChanges map[string]string `json:"roleChanges,omitempty"`
}

// UnmarshalJSON accepts images either as base64 strings or as Node.js
// Buffer objects ({"type":"Buffer","data":[...]}).
func (j *CaptureJob) UnmarshalJSON(data []byte) error {
	type Alias CaptureJob
	aux := &struct {
		FlightImage interface{} `json:"flightImage,omitempty"`
		CrewImage   interface{} `json:"crewImage,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(j),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal capture job: %w", err)
	}

	var err error
	if j.FlightImage, err = decodeBuffer("flightImage", aux.FlightImage); err != nil {
		return err
	}
	if j.CrewImage, err = decodeBuffer("crewImage", aux.CrewImage); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes images as base64 strings
func (j CaptureJob) MarshalJSON() ([]byte, error) {
	type Alias CaptureJob
	return json.Marshal(&struct {
		FlightImage []byte `json:"flightImage,omitempty"`
		CrewImage   []byte `json:"crewImage,omitempty"`
		Alias
	}{
		FlightImage: j.FlightImage,
		CrewImage:   j.CrewImage,
		Alias:       Alias(j),
	})
}

func decodeBuffer(field string, v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 %s: %w", field, err)
		}
		return decoded, nil
	case map[string]interface{}:
		if t, ok := b["type"].(string); !ok || t != "Buffer" {
			return nil, fmt.Errorf("invalid Buffer object for %s (missing or incorrect 'type' field)", field)
		}
		arr, ok := b["data"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("Buffer object for %s missing 'data' array", field)
		}
		out := make([]byte, len(arr))
		for i, val := range arr {
			f, ok := val.(float64)
			if !ok || f < 0 || f > 255 {
				return nil, fmt.Errorf("invalid byte value in %s at index %d", field, i)
			}
			out[i] = byte(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be either base64 string or Buffer object, got %T", field, v)
	}
}

// ToRequest decodes the job's images and validates overrides and role changes.
func (j *CaptureJob) ToRequest(maxImageSize int64) (*processor.CaptureRequest, error) {
	flight, err := processor.DecodeImage(j.FlightImage, maxImageSize)
	if err != nil {
		return nil, err
	}

	req := &processor.CaptureRequest{
		JobID:       j.JobID,
		Flight:      flight,
		CompactCrew: j.CompactCrew,
	}

	if len(j.CrewImage) > 0 {
		if req.Crew, err = processor.DecodeImage(j.CrewImage, maxImageSize); err != nil {
			return nil, err
		}
	}

	if req.Overrides, err = export.ParseOverrides(j.Overrides); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	if len(j.RoleChanges) > 0 {
		req.RoleChanges = make(map[string]models.Role, len(j.RoleChanges))
		for name, role := range j.RoleChanges {
			r := models.Role(role)
			if !crew.KnownRole(r) {
				return nil, fmt.Errorf("%w: unknown crew role %q for %s", ErrInvalidJob, role, name)
			}
			req.RoleChanges[name] = r
		}
	}

	return req, nil
}

// runCapture processes one job under a deadline
func runCapture(ctx context.Context, proc processor.CaptureProcessorInterface, job *CaptureJob, maxImageSize int64, timeout time.Duration) (*processor.CaptureResult, error) {
	req, err := job.ToRequest(maxImageSize)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = defaultProcessingTimeout
	}
	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return proc.ProcessCapture(processCtx, req)
}
