/**
 * ROI catalog and cropper
 *
 * Regions are authored as two corner points on a reference screenshot and
 * stored as fractions of the reference size, so they can be rescaled against
 * any capture that shares the reference aspect convention.
 */

package roi

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
)

// Point is a pixel position on the reference image
type Point struct {
	X float64
	Y float64
}

// Size is a pixel size
type Size struct {
	Width  float64
	Height float64
}

// NormalizedRect is a rectangle expressed as fractions of the image size
type NormalizedRect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Definition binds a named region to the field it carries
type Definition struct {
	Name string
	Kind models.FieldKind
	Rect NormalizedRect
}

// FromReference normalizes the rectangle spanned by two corner points.
// Corners may be given in any order.
func FromReference(p1, p2 Point, ref Size) (NormalizedRect, error) {
	if ref.Width <= 0 || ref.Height <= 0 {
		return NormalizedRect{}, fmt.Errorf("reference size must be positive, got %vx%v", ref.Width, ref.Height)
	}

	minX, maxX := math.Min(p1.X, p2.X), math.Max(p1.X, p2.X)
	minY, maxY := math.Min(p1.Y, p2.Y), math.Max(p1.Y, p2.Y)

	return NormalizedRect{
		X: minX / ref.Width,
		Y: minY / ref.Height,
		W: (maxX - minX) / ref.Width,
		H: (maxY - minY) / ref.Height,
	}, nil
}

// Scale maps the rectangle onto pixel bounds. The result is not clipped.
func (r NormalizedRect) Scale(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	x0 := bounds.Min.X + int(math.Floor(r.X*w))
	y0 := bounds.Min.Y + int(math.Floor(r.Y*h))
	x1 := bounds.Min.X + int(math.Floor((r.X+r.W)*w))
	y1 := bounds.Min.Y + int(math.Floor((r.Y+r.H)*h))

	// Raw Rectangle literal: image.Rect would canonicalize inverted corners.
	return image.Rectangle{Min: image.Point{X: x0, Y: y0}, Max: image.Point{X: x1, Y: y1}}
}

func (r NormalizedRect) String() string {
	return fmt.Sprintf("(%.4f,%.4f %.4fx%.4f)", r.X, r.Y, r.W, r.H)
}

// Crop returns the sub-image covered by rect. It fails with InvalidROI when
// the pixel rectangle is empty or not fully inside the image.
func Crop(img image.Image, rect NormalizedRect) (image.Image, error) {
	return cropNamed(img, "", rect)
}

// CropDefinition crops the region of a catalog entry.
func CropDefinition(img image.Image, def Definition) (image.Image, error) {
	return cropNamed(img, def.Name, def.Rect)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func cropNamed(img image.Image, name string, rect NormalizedRect) (image.Image, error) {
	if img == nil {
		return nil, apperrors.NewImageConversionError(fmt.Errorf("nil image"))
	}

	bounds := img.Bounds()
	pix := rect.Scale(bounds)

	if pix.Dx() <= 0 || pix.Dy() <= 0 || !pix.In(bounds) {
		return nil, apperrors.NewInvalidROIError(name, pix.String())
	}

	if si, ok := img.(subImager); ok {
		return si.SubImage(pix), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, pix.Dx(), pix.Dy()))
	draw.Draw(dst, dst.Bounds(), img, pix.Min, draw.Src)
	return dst, nil
}
