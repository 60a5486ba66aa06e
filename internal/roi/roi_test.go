package roi

import (
	stderrors "errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
)

func TestFromReference(t *testing.T) {
	rect, err := FromReference(Point{X: 300, Y: 200}, Point{X: 100, Y: 100}, Size{Width: 1000, Height: 500})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := NormalizedRect{X: 0.1, Y: 0.2, W: 0.2, H: 0.2}
	if rect != want {
		t.Errorf("Expected %v, got %v", want, rect)
	}

	if _, err := FromReference(Point{}, Point{X: 1, Y: 1}, Size{}); err == nil {
		t.Error("Expected error for zero reference size")
	}
}

func TestCropCatalogOnReferenceImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, int(ReferenceSize.Width), int(ReferenceSize.Height)))
	img.Set(130, 190, color.RGBA{R: 255, A: 255})

	for _, def := range append(FlightCatalog(), CrewCatalog()...) {
		sub, err := CropDefinition(img, def)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", def.Name, err)
			continue
		}
		if !sub.Bounds().In(img.Bounds()) {
			t.Errorf("%s: crop %v outside image %v", def.Name, sub.Bounds(), img.Bounds())
		}
	}

	sub, err := CropDefinition(img, FlightCatalog()[0])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := color.RGBAModel.Convert(sub.At(130, 190)).(color.RGBA); got.R != 255 {
		t.Errorf("Expected crop to share pixels with source, got %v", got)
	}
}

func TestCropIsContainedOrInvalid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := append(append(FlightCatalog(), CrewCatalog()...), CompactCrewCatalog()...)

	for i := 0; i < 200; i++ {
		w := 1 + rng.Intn(4000)
		h := 1 + rng.Intn(4000)
		ox := rng.Intn(50)
		oy := rng.Intn(50)
		img := image.NewGray(image.Rect(ox, oy, ox+w, oy+h))

		for _, def := range catalog {
			sub, err := CropDefinition(img, def)
			if err != nil {
				if !stderrors.Is(err, apperrors.ErrInvalidROI) {
					t.Fatalf("%s on %dx%d: expected InvalidROI, got %v", def.Name, w, h, err)
				}
				continue
			}
			b := sub.Bounds()
			if b.Empty() || !b.In(img.Bounds()) {
				t.Fatalf("%s on %dx%d: crop %v not inside %v", def.Name, w, h, b, img.Bounds())
			}
			if b.Dx() > w || b.Dy() > h {
				t.Fatalf("%s: crop larger than source", def.Name)
			}
		}
	}
}

func TestCropRejectsInvalidRects(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	cases := []struct {
		name string
		rect NormalizedRect
	}{
		{"zero width", NormalizedRect{X: 0.1, Y: 0.1, W: 0, H: 0.5}},
		{"negative height", NormalizedRect{X: 0.1, Y: 0.5, W: 0.2, H: -0.3}},
		{"past right edge", NormalizedRect{X: 0.8, Y: 0.1, W: 0.5, H: 0.2}},
		{"negative origin", NormalizedRect{X: -0.2, Y: 0.1, W: 0.5, H: 0.2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Crop(img, tc.rect)
			if !stderrors.Is(err, apperrors.ErrInvalidROI) {
				t.Errorf("Expected InvalidROI, got %v", err)
			}
		})
	}
}

type opaqueImage struct{ image.Image }

func TestCropCopiesWhenSubImageUnsupported(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.Set(5, 5, color.RGBA{G: 200, A: 255})

	sub, err := Crop(opaqueImage{src}, NormalizedRect{X: 0.5, Y: 0.5, W: 0.5, H: 0.5})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sub.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Errorf("Expected 5x5 copy at origin, got %v", sub.Bounds())
	}
	if got := color.RGBAModel.Convert(sub.At(0, 0)).(color.RGBA); got.G != 200 {
		t.Errorf("Expected copied pixel, got %v", got)
	}
}
