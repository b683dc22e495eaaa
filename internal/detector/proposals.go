package detector

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/shape-trainer/internal/entities"
)

// FeatureCount is the length of every proposal feature vector.
const FeatureCount = 6

// Indices into a proposal feature vector.
const (
	FeaturePerimeterRatio = iota // Contour length / rectangle perimeter
	FeatureFillRatio             // Foreground fraction of the bounding box
	FeatureAspect                // min(w,h) / max(w,h)
	FeatureCornerTop             // Occupancy of the two top bbox corners
	FeatureCornerBottom          // Occupancy of the two bottom bbox corners
	FeatureCircularity           // Contour length vs ellipse perimeter
)

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Proposal is a candidate object region with its describing features.
type Proposal struct {
	// Bounds is the pixel-space bounding box of the contour.
	Bounds image.Rectangle `json:"bounds"`

	// Box is the same region in normalized [0,1] coordinates.
	Box entities.Box `json:"box"`

	// Features is the geometric feature vector of length FeatureCount.
	Features []float64 `json:"features"`

	// ContourLength is the number of edge pixels in the contour.
	ContourLength int `json:"contour_length"`
}

// ProposeRegions finds candidate object regions in an image.
//
// Contours whose bounding box covers fewer than minArea square pixels are
// discarded as noise. Proposals are returned sorted by area, largest first,
// with near-duplicate regions suppressed.
func ProposeRegions(img image.Image, minArea int) []Proposal {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return nil
	}

	gray := grayPlane(img)
	background := backgroundGray(gray, width, height)
	edges := detectEdges(gray, width, height)
	contours := findContours(edges, width, height)

	proposals := make([]Proposal, 0, len(contours))
	for _, contour := range contours {
		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range contour {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}

		w := maxX - minX
		h := maxY - minY
		if w*h < minArea || w == 0 || h == 0 {
			continue
		}

		features := regionFeatures(contour, gray, background, minX, minY, maxX, maxY)

		proposals = append(proposals, Proposal{
			Bounds: image.Rect(minX+bounds.Min.X, minY+bounds.Min.Y, maxX+bounds.Min.X, maxY+bounds.Min.Y),
			Box: entities.NewBox(
				float64(minX)/float64(width),
				float64(minY)/float64(height),
				float64(maxX)/float64(width),
				float64(maxY)/float64(height),
			),
			Features:      features,
			ContourLength: len(contour),
		})
	}

	sort.Slice(proposals, func(i, j int) bool {
		return area(proposals[i].Bounds) > area(proposals[j].Bounds)
	})

	return suppressDuplicates(proposals)
}

// regionFeatures computes the feature vector for one contour and its
// bounding box (minX..maxX, minY..maxY in local pixel coordinates).
func regionFeatures(contour []Point, gray [][]uint8, background uint8, minX, minY, maxX, maxY int) []float64 {
	w := maxX - minX
	h := maxY - minY

	// Rectangle perimeter ratio: a perfect axis-aligned rectangle traces
	// exactly 2*(w+h) edge pixels.
	rectPerimeter := float64(2 * (w + h))
	perimRatio := float64(len(contour)) / rectPerimeter

	// Ellipse perimeter ratio via Ramanujan's approximation.
	a := float64(w) / 2
	b := float64(h) / 2
	ellipsePerimeter := math.Pi * (3*(a+b) - math.Sqrt((3*a+b)*(a+3*b)))
	circularity := 1 - math.Abs(float64(len(contour))-ellipsePerimeter)/ellipsePerimeter
	if circularity < 0 {
		circularity = 0
	}

	aspect := float64(min(w, h)) / float64(max(w, h))

	fill := fillRatio(gray, background, minX, minY, maxX, maxY)
	top, bottom := cornerOccupancy(contour, minX, minY, maxX, maxY)

	return []float64{perimRatio, fill, aspect, top, bottom, circularity}
}

// fillRatio returns the fraction of bounding-box pixels that differ from the
// image background. Filled rectangles approach 1.0, inscribed ellipses π/4,
// triangles one half.
func fillRatio(gray [][]uint8, background uint8, minX, minY, maxX, maxY int) float64 {
	total := 0
	foreground := 0
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			total++
			if absDiff(gray[y][x], background) > 40 {
				foreground++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(foreground) / float64(total)
}

// cornerOccupancy reports which bounding-box corners the contour touches.
// Returns the occupied fraction of the top corner pair and the bottom pair.
// Rectangles occupy all four corners, bottom-anchored triangles only the
// lower two, and ellipses none.
func cornerOccupancy(contour []Point, minX, minY, maxX, maxY int) (top, bottom float64) {
	r := min(maxX-minX, maxY-minY) / 8
	if r < 3 {
		r = 3
	}

	var tl, tr, bl, br bool
	for _, p := range contour {
		nearLeft := p.X-minX <= r
		nearRight := maxX-p.X <= r
		nearTop := p.Y-minY <= r
		nearBottom := maxY-p.Y <= r
		switch {
		case nearTop && nearLeft:
			tl = true
		case nearTop && nearRight:
			tr = true
		case nearBottom && nearLeft:
			bl = true
		case nearBottom && nearRight:
			br = true
		}
	}

	top = (boolToFloat(tl) + boolToFloat(tr)) / 2
	bottom = (boolToFloat(bl) + boolToFloat(br)) / 2
	return top, bottom
}

// grayPlane converts an image to a row-major grayscale plane using ITU-R
// BT.601 luminance weights.
func grayPlane(img image.Image) [][]uint8 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]uint8, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]uint8, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray[y][x] = uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
		}
	}
	return gray
}

// backgroundGray estimates the background level from the four image corners.
func backgroundGray(gray [][]uint8, width, height int) uint8 {
	sum := int(gray[0][0]) + int(gray[0][width-1]) + int(gray[height-1][0]) + int(gray[height-1][width-1])
	return uint8(sum / 4)
}

// detectEdges performs gradient-based edge detection on a grayscale plane.
//
// Pixels where the horizontal or vertical gradient exceeds 30 gray levels are
// marked as edges. Border pixels are never edges.
func detectEdges(gray [][]uint8, width, height int) [][]bool {
	const threshold = 30

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			dx := absDiff(gray[y][x], gray[y][x+1])
			dy := absDiff(gray[y][x], gray[y+1][x])
			if dx > threshold || dy > threshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// findContours groups connected edge pixels into contours using flood-fill
// with 8-connectivity. Contours smaller than 10 pixels are discarded as noise.
func findContours(edges [][]bool, width, height int) [][]Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := make([]Point, 0)
				floodFill(edges, visited, x, y, width, height, &contour)
				if len(contour) >= 10 {
					contours = append(contours, contour)
				}
			}
		}
	}
	return contours
}

// floodFill performs iterative stack-based flood-fill from a starting point,
// marking visited pixels and collecting them into the contour.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, contour *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// suppressDuplicates drops proposals that heavily overlap an already kept
// proposal. Input must be sorted by area descending; the larger region wins.
func suppressDuplicates(proposals []Proposal) []Proposal {
	kept := make([]Proposal, 0, len(proposals))
	for _, p := range proposals {
		dup := false
		for _, k := range kept {
			if p.Box.IoU(k.Box) > 0.8 {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	return kept
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
