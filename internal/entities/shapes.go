package entities

import (
	"fmt"
	"math"
)

// Point2D is a coordinate in normalized [0, 1] image space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is any annotation geometry that can be reduced to an axis-aligned
// bounding box in normalized coordinates.
type Shape interface {
	// BoundingBox returns the tightest axis-aligned box enclosing the shape,
	// clipped to the [0, 1] range.
	BoundingBox() Box
}

// Box is an axis-aligned rectangle in normalized coordinates.
//
// (X1, Y1) is the top-left corner and (X2, Y2) the bottom-right corner.
// A well-formed box satisfies X1 <= X2 and Y1 <= Y2.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBox returns a box with the given corners clipped to [0, 1].
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}.Clip()
}

// Clip constrains all four coordinates to the [0, 1] range.
func (b Box) Clip() Box {
	return Box{
		X1: clamp01(b.X1),
		Y1: clamp01(b.Y1),
		X2: clamp01(b.X2),
		Y2: clamp01(b.Y2),
	}
}

// Width returns X2 - X1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the normalized area of the box. Degenerate boxes have area 0.
func (b Box) Area() float64 {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return b.Width() * b.Height()
}

// IoU returns the intersection-over-union overlap with another box (0 to 1).
func (b Box) IoU(other Box) float64 {
	ix1 := math.Max(b.X1, other.X1)
	iy1 := math.Max(b.Y1, other.Y1)
	ix2 := math.Min(b.X2, other.X2)
	iy2 := math.Min(b.Y2, other.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// BoundingBox returns the box itself, clipped.
func (b Box) BoundingBox() Box { return b.Clip() }

func (b Box) String() string {
	return fmt.Sprintf("Box(%.3f,%.3f)-(%.3f,%.3f)", b.X1, b.Y1, b.X2, b.Y2)
}

// Ellipse is an axis-aligned ellipse inscribed in the rectangle
// (X1, Y1)-(X2, Y2), in normalized coordinates.
type Ellipse struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// BoundingBox returns the enclosing rectangle of the ellipse, clipped to [0, 1].
func (e Ellipse) BoundingBox() Box {
	return Box{X1: e.X1, Y1: e.Y1, X2: e.X2, Y2: e.Y2}.Clip()
}

// Polygon is a closed polygon defined by its vertices in normalized coordinates.
type Polygon struct {
	Points []Point2D `json:"points"`
}

// BoundingBox returns the min/max vertex envelope of the polygon, clipped
// to [0, 1]. An empty polygon reduces to a zero box.
func (p Polygon) BoundingBox() Box {
	if len(p.Points) == 0 {
		return Box{}
	}
	minX, minY := p.Points[0].X, p.Points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p.Points[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Box{X1: minX, Y1: minY, X2: maxX, Y2: maxY}.Clip()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
