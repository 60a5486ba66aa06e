/**
 * Google Cloud Vision OCR - hosted recognizer
 *
 * Runs document text detection on each region. Credentials come from the
 * usual Application Default Credentials lookup.
 */

package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
)

// VisionRecognizer handles region OCR using Google Cloud Vision
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
	hints  []string
}

// NewVisionRecognizer connects to the Vision API. languageHints may be empty.
func NewVisionRecognizer(ctx context.Context, languageHints ...string) (*VisionRecognizer, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionRecognizer{client: client, hints: languageHints}, nil
}

func (v *VisionRecognizer) Name() string { return "vision" }

// Recognize performs document text detection on one region
func (v *VisionRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	visionImage, err := vision.NewImageFromReader(bytes.NewReader(data))
	if err != nil {
		return "", apperrors.NewImageConversionError(err)
	}

	var ictx *visionpb.ImageContext
	if len(v.hints) > 0 {
		ictx = &visionpb.ImageContext{LanguageHints: v.hints}
	}

	annotation, err := v.client.DetectDocumentText(ctx, visionImage, ictx)
	if err != nil {
		return "", classifyVisionError(err)
	}
	if annotation == nil {
		return "", apperrors.NewNoTextFoundError(v.Name())
	}

	return checkText(v.Name(), annotation.GetText())
}

// Close releases the Vision client
func (v *VisionRecognizer) Close() error {
	return v.client.Close()
}

func classifyVisionError(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return apperrors.NewImageConversionError(err)
	case codes.DeadlineExceeded, codes.Canceled:
		return apperrors.NewProcessingFailedError("vision request interrupted", err)
	default:
		return apperrors.NewProcessingFailedError(fmt.Sprintf("vision API error (%s)", status.Code(err)), err)
	}
}
