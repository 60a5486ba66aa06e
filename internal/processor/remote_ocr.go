package processor

import (
	"context"
	"image"

	"github.com/adverant/nexus/flightcapture-worker/internal/clients"
	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
)

// textService is the subset of the OCR service client used here
type textService interface {
	ExtractTextFromBytes(ctx context.Context, imageData []byte, region, language string) (*clients.TextData, error)
}

// RemoteRecognizer delegates region OCR to the OCR service
type RemoteRecognizer struct {
	service  textService
	language string
}

// NewRemoteRecognizer wraps an OCR service client
func NewRemoteRecognizer(service *clients.OCRServiceClient, language string) *RemoteRecognizer {
	return &RemoteRecognizer{service: service, language: language}
}

func (r *RemoteRecognizer) Name() string { return "remote" }

// Recognize sends one region to the service
func (r *RemoteRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	region := ""
	if name, ok := RegionFromContext(ctx); ok {
		region = name
	}

	resp, err := r.service.ExtractTextFromBytes(ctx, data, region, r.language)
	if err != nil {
		return "", apperrors.NewProcessingFailedError("OCR service request failed", err)
	}
	return checkText(r.Name(), resp.Text)
}
