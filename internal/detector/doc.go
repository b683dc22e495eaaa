// Package detector proposes candidate object regions in raster images and
// describes each region with geometric features.
//
// The pipeline is classical computer vision, not a neural network:
//
//  1. Edge detection: grayscale conversion and gradient thresholding
//  2. Contour finding: flood-fill over connected edge pixels
//  3. Proposal extraction: bounding box plus a fixed-size feature vector
//     per contour
//  4. Duplicate suppression: overlapping proposals are merged
//
// The feature vector captures how rectangular, elliptical, or cornered a
// region is. A classifier trained on these features (see the task package)
// assigns class probabilities to each proposal; the detector itself is
// class-agnostic.
//
// All proposal coordinates are reported both in pixel space (image bounds)
// and normalized [0, 1] space relative to the image dimensions.
//
// Detection works best on clean, high-contrast renderings; heavy noise or
// compression artifacts degrade contour quality.
package detector
