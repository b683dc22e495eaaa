package entities

import (
	"image"

	"github.com/google/uuid"
)

// Image is an in-memory media item belonging to a dataset.
type Image struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Pixels image.Image `json:"-"`
}

// NewImage wraps decoded pixels with a name and a fresh identifier.
func NewImage(name string, pixels image.Image) *Image {
	return &Image{ID: uuid.New(), Name: name, Pixels: pixels}
}

// Width returns the pixel width of the media, or 0 when no pixels are attached.
func (i *Image) Width() int {
	if i.Pixels == nil {
		return 0
	}
	return i.Pixels.Bounds().Dx()
}

// Height returns the pixel height of the media, or 0 when no pixels are attached.
func (i *Image) Height() int {
	if i.Pixels == nil {
		return 0
	}
	return i.Pixels.Bounds().Dy()
}
