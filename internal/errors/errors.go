package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Error taxonomy for the flight capture worker
 *
 * Per-ROI errors (InvalidROI, ImageConversionFailed, NoTextFound,
 * ProcessingFailed) are absorbed by the coordinator and never abort a batch.
 * DateInferenceFailed is recorded on the flight record. Job-level errors are
 * reported by the queue consumers.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Region and recognition errors
	ErrorInvalidROI            ErrorCode = "INVALID_ROI"
	ErrorImageConversionFailed ErrorCode = "IMAGE_CONVERSION_FAILED"
	ErrorNoTextFound           ErrorCode = "NO_TEXT_FOUND"
	ErrorProcessingFailed      ErrorCode = "PROCESSING_FAILED"

	// Normalization errors
	ErrorDateInferenceFailed ErrorCode = "DATE_INFERENCE_FAILED"

	// Job errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorStorageFailed     ErrorCode = "STORAGE_FAILED"
)

// Sentinels matched by errors.Is against any ProcessingError of the same code.
var (
	ErrInvalidROI            = stderrors.New("invalid region of interest")
	ErrImageConversionFailed = stderrors.New("image conversion failed")
	ErrNoTextFound           = stderrors.New("no text found")
	ErrProcessingFailed      = stderrors.New("recognition processing failed")
	ErrDateInferenceFailed   = stderrors.New("date inference failed")
	ErrProcessingTimeout     = stderrors.New("processing timeout")
	ErrStorageFailed         = stderrors.New("storage failed")
)

var sentinels = map[ErrorCode]error{
	ErrorInvalidROI:            ErrInvalidROI,
	ErrorImageConversionFailed: ErrImageConversionFailed,
	ErrorNoTextFound:           ErrNoTextFound,
	ErrorProcessingFailed:      ErrProcessingFailed,
	ErrorDateInferenceFailed:   ErrDateInferenceFailed,
	ErrorProcessingTimeout:     ErrProcessingTimeout,
	ErrorStorageFailed:         ErrStorageFailed,
}

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that corresponds to the error code.
func (e *ProcessingError) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	if pe, ok := target.(*ProcessingError); ok {
		return pe.Code == e.Code
	}
	return false
}

// WithJob returns the error tagged with a job ID.
func (e *ProcessingError) WithJob(jobID string) *ProcessingError {
	e.JobID = jobID
	return e
}

// Factory functions for common errors

func NewInvalidROIError(roi string, rect string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidROI,
		Message:   fmt.Sprintf("ROI %s resolves to an invalid crop %s", roi, rect),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"roi":  roi,
			"rect": rect,
		},
	}
}

func NewImageConversionError(cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorImageConversionFailed,
		Message:   "Image could not be converted for recognition",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewNoTextFoundError(roi string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorNoTextFound,
		Message:   fmt.Sprintf("No text recognized in %s", roi),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"roi": roi,
		},
	}
}

func NewProcessingFailedError(reason string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingFailed,
		Message:   fmt.Sprintf("Recognition failed: %s", reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"reason": reason,
		},
		Cause: cause,
	}
}

func NewDateInferenceError(weekday string, day int) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorDateInferenceFailed,
		Message:   fmt.Sprintf("No date matches weekday %q and day %d", weekday, day),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"weekday":      weekday,
			"day_of_month": day,
		},
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store export record",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// CodeOf returns the error code of err, or empty when err is not a ProcessingError.
func CodeOf(err error) ErrorCode {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ToMap converts error to map for job status storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.JobID != "" {
		result["job_id"] = e.JobID
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
