/**
 * Recognizer - text recognition contract shared by all OCR backends
 *
 * One cropped region in, its text out. Backends fail with
 * ImageConversionFailed, NoTextFound or ProcessingFailed.
 */

package processor

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
)

// Recognizer reads the text of one image region
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Name() string
}

// RecognizerFunc adapts a function to the Recognizer interface
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

func (f RecognizerFunc) Name() string { return "func" }

// encodePNG serializes a region for backends that take encoded bytes
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, apperrors.NewImageConversionError(nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.NewImageConversionError(err)
	}
	return buf.Bytes(), nil
}

// checkText trims recognized text and reports NoTextFound when nothing is left
func checkText(region, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewNoTextFoundError(region)
	}
	return text, nil
}

// awaitText runs a blocking recognition call and gives up when ctx ends.
// The call itself keeps running in the background until it returns.
func awaitText(ctx context.Context, call func() (string, error)) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := call()
		ch <- outcome{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", apperrors.NewProcessingFailedError("recognition interrupted", ctx.Err())
	case out := <-ch:
		return out.text, out.err
	}
}
