/**
 * Tesseract OCR - offline recognizer for cropped screen regions
 *
 * Each call gets its own gosseract client; clients are not safe for
 * concurrent use and the coordinator recognizes many regions at once.
 */

package processor

import (
	"context"
	"image"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
)

// TesseractRecognizer handles region OCR using Tesseract
type TesseractRecognizer struct {
	language string
	pageMode gosseract.PageSegMode
}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	Language string
	// SingleLine reads each region as one text line instead of a block.
	SingleLine bool
}

// NewTesseractRecognizer creates a new Tesseract recognizer
func NewTesseractRecognizer(cfg *TesseractConfig) *TesseractRecognizer {
	lang := "eng"
	mode := gosseract.PSM_SINGLE_BLOCK
	if cfg != nil {
		if cfg.Language != "" {
			lang = cfg.Language
		}
		if cfg.SingleLine {
			mode = gosseract.PSM_SINGLE_LINE
		}
	}
	return &TesseractRecognizer{language: lang, pageMode: mode}
}

func (t *TesseractRecognizer) Name() string { return "tesseract" }

// Recognize performs OCR on one region
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	text, err := awaitText(ctx, func() (string, error) {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(t.language); err != nil {
			return "", apperrors.NewProcessingFailedError("set language", err)
		}
		if err := client.SetPageSegMode(t.pageMode); err != nil {
			return "", apperrors.NewProcessingFailedError("set page segmentation mode", err)
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return "", apperrors.NewImageConversionError(err)
		}

		text, err := client.Text()
		if err != nil {
			return "", apperrors.NewProcessingFailedError("tesseract OCR failed", err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}

	return checkText(t.Name(), text)
}
