package sim

import "github.com/pkg/errors"

// DepthFrame is a 2-D distance field in meters, row-major.
type DepthFrame struct {
	width  int
	height int
	data   []float32
}

// NewDepthFrame allocates a zeroed frame.
func NewDepthFrame(width, height int) (*DepthFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid depth frame size %dx%d", width, height)
	}
	return &DepthFrame{width: width, height: height, data: make([]float32, width*height)}, nil
}

// Width returns the frame width in pixels.
func (f *DepthFrame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *DepthFrame) Height() int { return f.height }

// At returns the distance at (x, y).
func (f *DepthFrame) At(x, y int) float32 { return f.data[y*f.width+x] }

// Set writes the distance at (x, y).
func (f *DepthFrame) Set(x, y int, d float32) { f.data[y*f.width+x] = d }

// HasData reports whether the frame holds any reading.
func (f *DepthFrame) HasData() bool { return f != nil && len(f.data) > 0 }
