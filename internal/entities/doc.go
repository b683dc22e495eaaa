// Package entities defines the data model shared across the training lifecycle.
//
// The types in this package are interchange shapes: images, annotations,
// datasets, models, and evaluation results. They carry no behavior beyond
// construction, geometric reduction, and subset bookkeeping; all lifecycle
// logic lives in the task package.
//
// # Coordinate System
//
// All shape coordinates are normalized to the [0, 1] range relative to the
// media dimensions:
//   - (0, 0) is the top-left corner of the image
//   - (1, 1) is the bottom-right corner
//   - X increases rightward, Y increases downward
//
// Every shape kind (box, ellipse, polygon) reduces to an axis-aligned
// bounding box via BoundingBox(), clipped to [0, 1]. Training and evaluation
// operate exclusively on these reduced boxes.
//
// # Subsets
//
// Dataset items carry a Subset label (training, validation, testing) assigned
// after construction by a shuffled fractional split. A Dataset can be filtered
// to a single subset without copying the underlying items.
package entities
