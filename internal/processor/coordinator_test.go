package processor

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
	"github.com/adverant/nexus/flightcapture-worker/internal/roi"
)

// referenceImage is a quarter-scale blank capture; regions are normalized so
// the catalog applies unchanged.
func referenceImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, int(roi.ReferenceSize.Width)/4, int(roi.ReferenceSize.Height)/4))
}

// textByRegion answers with a fixed text per ROI name and NoTextFound otherwise.
func textByRegion(texts map[string]string) RecognizerFunc {
	return func(ctx context.Context, img image.Image) (string, error) {
		name, _ := RegionFromContext(ctx)
		if text, ok := texts[name]; ok {
			return text, nil
		}
		return "", apperrors.NewNoTextFoundError(name)
	}
}

func TestCoordinatorCompletesOnceWithFailures(t *testing.T) {
	defs := roi.FlightCatalog()
	texts := map[string]string{}
	for _, def := range defs {
		texts[def.Name] = " " + def.Name + " "
	}
	delete(texts, "weekday")
	delete(texts, "actual_in")

	var completions, results atomic.Int32
	var final []ROIResult

	c := NewCoordinator(textByRegion(texts), 0, nil)
	batch := c.Start(context.Background(), referenceImage(), defs, Hooks{
		OnResult: func(ROIResult) { results.Add(1) },
		OnComplete: func(r []ROIResult) {
			completions.Add(1)
			final = r
		},
	})

	got := batch.Wait()

	if completions.Load() != 1 {
		t.Errorf("Expected OnComplete once, got %d", completions.Load())
	}
	if int(results.Load()) != len(defs) {
		t.Errorf("Expected %d OnResult calls, got %d", len(defs), results.Load())
	}
	if batch.Completed() != len(defs) || batch.Total() != len(defs) {
		t.Errorf("Expected %d/%d completed, got %d/%d", len(defs), len(defs), batch.Completed(), batch.Total())
	}
	if len(final) != len(defs) {
		t.Fatalf("Expected %d results in OnComplete, got %d", len(defs), len(final))
	}

	nonEmpty := 0
	for i, res := range got {
		if res.Index != i || res.Name != defs[i].Name || res.Kind != defs[i].Kind {
			t.Errorf("Result %d out of order: %+v", i, res)
		}
		switch res.Name {
		case "weekday", "actual_in":
			if res.Err == nil || res.Text != "" {
				t.Errorf("Expected %s to fail with empty text, got %q / %v", res.Name, res.Text, res.Err)
			}
			if !errors.Is(res.Err, apperrors.ErrNoTextFound) {
				t.Errorf("Expected NoTextFound for %s, got %v", res.Name, res.Err)
			}
		default:
			if res.Text != res.Name {
				t.Errorf("Expected trimmed text %q, got %q", res.Name, res.Text)
			}
		}
		if res.Text != "" {
			nonEmpty++
		}
	}
	if nonEmpty != len(defs)-2 {
		t.Errorf("Expected %d non-empty results, got %d", len(defs)-2, nonEmpty)
	}
}

func TestCoordinatorEmptyBatch(t *testing.T) {
	fired := false
	c := NewCoordinator(textByRegion(nil), 0, nil)
	batch := c.Start(context.Background(), referenceImage(), nil, Hooks{
		OnComplete: func(r []ROIResult) {
			fired = true
			if len(r) != 0 {
				t.Errorf("Expected no results, got %d", len(r))
			}
		},
	})

	select {
	case <-batch.Done():
	default:
		t.Fatal("Expected an empty batch to be done on return")
	}
	if !fired {
		t.Error("Expected OnComplete to fire for an empty batch")
	}
}

func TestCoordinatorPerRegionTimeout(t *testing.T) {
	recognizer := RecognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		if name, _ := RegionFromContext(ctx); name == "weekday" {
			<-ctx.Done()
			return "", apperrors.NewProcessingFailedError("recognition interrupted", ctx.Err())
		}
		return "ok", nil
	})

	defs := roi.FlightCatalog()[:5]
	c := NewCoordinator(recognizer, 50*time.Millisecond, nil)

	start := time.Now()
	results := c.Run(context.Background(), referenceImage(), defs)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Batch took %s, timeout not applied", elapsed)
	}

	for _, res := range results {
		if res.Name == "weekday" {
			if !errors.Is(res.Err, context.DeadlineExceeded) {
				t.Errorf("Expected deadline exceeded, got %v", res.Err)
			}
			continue
		}
		if res.Err != nil || res.Text != "ok" {
			t.Errorf("Expected %s to succeed, got %q / %v", res.Name, res.Text, res.Err)
		}
	}
}

func TestCoordinatorInvalidRegion(t *testing.T) {
	calls := atomic.Int32{}
	recognizer := RecognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		calls.Add(1)
		return "text", nil
	})

	defs := []roi.Definition{
		{Name: "outside", Kind: models.FieldRegistration, Rect: roi.NormalizedRect{X: 0.9, Y: 0.9, W: 0.5, H: 0.5}},
		{Name: "inside", Kind: models.FieldFlightNumber, Rect: roi.NormalizedRect{X: 0.1, Y: 0.1, W: 0.2, H: 0.1}},
	}
	results := NewCoordinator(recognizer, 0, nil).Run(context.Background(), referenceImage(), defs)

	if !errors.Is(results[0].Err, apperrors.ErrInvalidROI) {
		t.Errorf("Expected InvalidROI, got %v", results[0].Err)
	}
	if results[1].Err != nil || results[1].Text != "text" {
		t.Errorf("Expected second region to succeed, got %+v", results[1])
	}
	if calls.Load() != 1 {
		t.Errorf("Expected recognizer to run once, ran %d times", calls.Load())
	}
}

func TestBarrierFiresOnceInEitherOrder(t *testing.T) {
	orders := map[string][]func(*Barrier) bool{
		"flight first": {(*Barrier).MarkFlightDone, (*Barrier).MarkCrewDone},
		"crew first":   {(*Barrier).MarkCrewDone, (*Barrier).MarkFlightDone},
	}

	for name, marks := range orders {
		t.Run(name, func(t *testing.T) {
			fired := 0
			b := NewBarrier(func() { fired++ })

			if !marks[0](b) {
				t.Error("Expected first mark to change state")
			}
			if b.Complete() {
				t.Error("Expected barrier incomplete after one side")
			}
			select {
			case <-b.Done():
				t.Fatal("Done closed after one side")
			default:
			}

			if !marks[1](b) {
				t.Error("Expected second mark to change state")
			}
			if !b.Complete() || fired != 1 {
				t.Errorf("Expected completion once, complete=%v fired=%d", b.Complete(), fired)
			}

			if marks[0](b) || marks[1](b) {
				t.Error("Expected repeated marks to be no-ops")
			}
			if fired != 1 {
				t.Errorf("Expected callback once, got %d", fired)
			}
			<-b.Done()
		})
	}
}

func TestBarrierRepeatedSameSide(t *testing.T) {
	fired := 0
	b := NewBarrier(func() { fired++ })
	b.MarkFlightDone()
	b.MarkFlightDone()
	if fired != 0 || b.Complete() {
		t.Errorf("Expected no completion from one side, fired=%d", fired)
	}
	b.MarkCrewDone()
	if fired != 1 {
		t.Errorf("Expected callback once, got %d", fired)
	}
}

func TestBarrierConcurrentMarks(t *testing.T) {
	var fired atomic.Int32
	b := NewBarrier(func() { fired.Add(1) })

	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			<-start
			if i%2 == 0 {
				b.MarkFlightDone()
			} else {
				b.MarkCrewDone()
			}
		}(i)
	}
	close(start)

	select {
	case <-b.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Barrier never completed")
	}
	if fired.Load() != 1 {
		t.Errorf("Expected callback once, got %d", fired.Load())
	}
}
