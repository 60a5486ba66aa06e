package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestProcessingErrorMatchesSentinel(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid roi", NewInvalidROIError("flight_number", "(0,0)-(0,0)"), ErrInvalidROI},
		{"conversion", NewImageConversionError(fmt.Errorf("bad png")), ErrImageConversionFailed},
		{"no text", NewNoTextFoundError("registration"), ErrNoTextFound},
		{"processing", NewProcessingFailedError("timeout", nil), ErrProcessingFailed},
		{"date", NewDateInferenceError("Mon", 30), ErrDateInferenceFailed},
		{"timeout", NewProcessingTimeoutError("job-1", time.Second, nil), ErrProcessingTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tc.err)
			if !stderrors.Is(wrapped, tc.sentinel) {
				t.Errorf("Expected %v to match sentinel %v", wrapped, tc.sentinel)
			}
			if stderrors.Is(wrapped, ErrStorageFailed) {
				t.Errorf("Did not expect %v to match ErrStorageFailed", wrapped)
			}
		})
	}
}

func TestCodeOfAndToMap(t *testing.T) {
	cause := fmt.Errorf("tesseract crashed")
	err := NewProcessingFailedError("engine error", cause).WithJob("job-42")

	if got := CodeOf(fmt.Errorf("wrap: %w", err)); got != ErrorProcessingFailed {
		t.Errorf("Expected code %s, got %s", ErrorProcessingFailed, got)
	}
	if got := CodeOf(cause); got != "" {
		t.Errorf("Expected empty code for plain error, got %s", got)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("Expected cause to be unwrapped")
	}

	m := err.ToMap()
	if m["error_code"] != "PROCESSING_FAILED" {
		t.Errorf("Unexpected error_code %v", m["error_code"])
	}
	if m["job_id"] != "job-42" {
		t.Errorf("Unexpected job_id %v", m["job_id"])
	}
	if m["reason"] != "engine error" {
		t.Errorf("Unexpected reason %v", m["reason"])
	}
	if m["cause"] != "tesseract crashed" {
		t.Errorf("Unexpected cause %v", m["cause"])
	}
}
