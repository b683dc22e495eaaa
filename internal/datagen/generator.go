// Package datagen synthesizes randomly annotated shape images and assembles
// them into datasets with training/validation/testing splits.
package datagen

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/noise"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

// GenerateOptions control synthetic image generation.
type GenerateOptions struct {
	Width  int // Image width in pixels
	Height int // Image height in pixels

	// Labels to draw. The label name selects the geometry: "rectangle",
	// "ellipse", or "triangle"; unknown names fall back to rectangles.
	// The label color is used as the fill color.
	Labels []entities.Label

	MaxShapes int // Upper bound on shapes per image (at least 1 is drawn)
	MinSize   int // Minimum shape extent in pixels
	MaxSize   int // Maximum shape extent in pixels

	// Augment applies a light Gaussian blur and additive noise after
	// drawing, so generated data is not pixel-perfect.
	Augment bool

	// Seed makes generation deterministic when non-zero.
	Seed int64
}

// GenerateRandomAnnotatedImage renders a white canvas with a random number of
// filled shapes and returns the pixels together with one ground-truth
// annotation per shape.
//
// Shapes keep their native geometry in the annotations (Box, Ellipse, or
// Polygon); callers that need axis-aligned boxes reduce them via
// ShapesToBoxes. Shape placement avoids heavy overlap so that every shape
// remains individually detectable.
func GenerateRandomAnnotatedImage(opts GenerateOptions) (image.Image, []entities.Annotation, error) {
	if opts.Width < 4*opts.MaxSize/3 || opts.Height < 4*opts.MaxSize/3 {
		return nil, nil, fmt.Errorf("image %dx%d too small for max shape size %d",
			opts.Width, opts.Height, opts.MaxSize)
	}
	if len(opts.Labels) == 0 {
		return nil, nil, fmt.Errorf("at least one label is required")
	}
	if opts.MinSize < 4 || opts.MaxSize < opts.MinSize {
		return nil, nil, fmt.Errorf("invalid shape size range [%d, %d]", opts.MinSize, opts.MaxSize)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			img.Set(x, y, color.White)
		}
	}

	count := 1
	if opts.MaxShapes > 1 {
		count = 1 + rng.Intn(opts.MaxShapes)
	}

	annotations := make([]entities.Annotation, 0, count)
	placed := make([]entities.Box, 0, count)

	for i := 0; i < count; i++ {
		label := opts.Labels[rng.Intn(len(opts.Labels))]

		bounds, ok := placeShape(rng, opts, placed)
		if !ok {
			// Canvas is crowded; stop placing rather than overlap
			break
		}
		placed = append(placed, normalizeRect(bounds, opts.Width, opts.Height))

		fill := labelFill(label)
		shape := drawShape(img, rng, label.Name, bounds, fill, opts.Width, opts.Height)

		annotations = append(annotations, entities.Annotation{
			Shape:  shape,
			Labels: []entities.ScoredLabel{{Label: label, Probability: 1.0}},
		})
	}

	var out image.Image = img
	if opts.Augment {
		out = Augment(img)
	}
	return out, annotations, nil
}

// placeShape picks a random bounding rectangle for a new shape that does not
// heavily overlap already placed shapes. Returns false when no free spot is
// found after a bounded number of attempts.
func placeShape(rng *rand.Rand, opts GenerateOptions, placed []entities.Box) (image.Rectangle, bool) {
	const maxAttempts = 25
	const margin = 2

	for attempt := 0; attempt < maxAttempts; attempt++ {
		w := opts.MinSize + rng.Intn(opts.MaxSize-opts.MinSize+1)
		h := opts.MinSize + rng.Intn(opts.MaxSize-opts.MinSize+1)
		x := margin + rng.Intn(maxInt(1, opts.Width-w-2*margin))
		y := margin + rng.Intn(maxInt(1, opts.Height-h-2*margin))

		r := image.Rect(x, y, x+w, y+h)
		candidate := normalizeRect(r, opts.Width, opts.Height)

		free := true
		for _, b := range placed {
			if candidate.IoU(b) > 0.05 {
				free = false
				break
			}
		}
		if free {
			return r, true
		}
	}
	return image.Rectangle{}, false
}

// drawShape rasterizes the geometry selected by the label name into the given
// pixel rectangle and returns the matching normalized annotation shape.
func drawShape(img *image.RGBA, rng *rand.Rand, labelName string, r image.Rectangle, fill color.RGBA, imgW, imgH int) entities.Shape {
	switch labelName {
	case "ellipse":
		fillEllipse(img, r, fill)
		return entities.Ellipse{
			X1: float64(r.Min.X) / float64(imgW),
			Y1: float64(r.Min.Y) / float64(imgH),
			X2: float64(r.Max.X) / float64(imgW),
			Y2: float64(r.Max.Y) / float64(imgH),
		}
	case "triangle":
		apex := fillTriangle(img, rng, r, fill)
		return entities.Polygon{Points: []entities.Point2D{
			{X: float64(apex) / float64(imgW), Y: float64(r.Min.Y) / float64(imgH)},
			{X: float64(r.Min.X) / float64(imgW), Y: float64(r.Max.Y) / float64(imgH)},
			{X: float64(r.Max.X) / float64(imgW), Y: float64(r.Max.Y) / float64(imgH)},
		}}
	default:
		fillRect(img, r, fill)
		return normalizeRect(r, imgW, imgH)
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func fillEllipse(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	rx := float64(r.Dx()) / 2
	ry := float64(r.Dy()) / 2

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1.0 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// fillTriangle rasterizes a bottom-anchored triangle: base along the bottom
// edge of the rectangle, apex at a random position on the top edge. Returns
// the apex x coordinate.
func fillTriangle(img *image.RGBA, rng *rand.Rand, r image.Rectangle, c color.RGBA) int {
	w := r.Dx()
	apex := r.Min.X + w/4 + rng.Intn(w/2+1)
	topY := r.Min.Y
	baseY := r.Max.Y - 1

	for y := topY; y <= baseY; y++ {
		t := float64(y-topY) / float64(baseY-topY)
		left := float64(apex) + t*float64(r.Min.X-apex)
		right := float64(apex) + t*float64(r.Max.X-1-apex)
		for x := int(left); x <= int(right); x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return apex
}

// Augment applies a light Gaussian blur and blends in low-opacity noise.
// Training uses it to perturb each image once per epoch so the classifier
// never sees the exact same pixels twice.
func Augment(img image.Image) image.Image {
	blurred := blur.Gaussian(img, 0.4)
	grain := noise.Generate(img.Bounds().Dx(), img.Bounds().Dy(), &noise.Options{
		NoiseFn:    noise.Gaussian,
		Monochrome: true,
	})
	return blend.Opacity(blurred, grain, 0.03)
}

func labelFill(label entities.Label) color.RGBA {
	if c, err := colorful.Hex(label.Color); err == nil {
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return color.RGBA{R: 60, G: 60, B: 60, A: 255}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func normalizeRect(r image.Rectangle, w, h int) entities.Box {
	return entities.NewBox(
		float64(r.Min.X)/float64(w),
		float64(r.Min.Y)/float64(h),
		float64(r.Max.X)/float64(w),
		float64(r.Max.Y)/float64(h),
	)
}
