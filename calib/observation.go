// Package calib implements intrinsics initialization from a single
// observation of a planar calibration target, plus the circle-fitting helpers
// used by alternative initialization strategies.
package calib

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Target is a planar grid of known 3-D points, addressable by flat index in
// row-major order.
type Target interface {
	Rows() int
	Cols() int
	// Size is the total number of grid points, Rows*Cols.
	Size() int
	// Point returns the target-frame coordinates of the grid point at the
	// given flat index.
	Point(index int) r3.Vector
}

// Observation is one view of a calibration target: per-grid-point image
// coordinates with validity flags, produced by an external corner detector.
type Observation interface {
	ImageWidth() int
	ImageHeight() int
	// ImageGridPoint returns the detected image coordinates of the corner at
	// (row, col) and whether that corner was observed.
	ImageGridPoint(row, col int) (r2.Point, bool)
	// ImagePoint is ImageGridPoint by flat index.
	ImagePoint(index int) (r2.Point, bool)
	// CornersImageFrame returns the image coordinates of all observed
	// corners, parallel to CornersTargetFrame.
	CornersImageFrame() []r2.Point
	// CornersTargetFrame returns the target-frame coordinates of all observed
	// corners, parallel to CornersImageFrame.
	CornersTargetFrame() []r3.Vector
	// Target returns the observed target, or nil if unknown.
	Target() Target
}

// GridTarget is a checkerboard-style planar target with evenly spaced rows
// and columns in the z = 0 plane of the target frame.
type GridTarget struct {
	rows, cols int
	spacing    float64
}

// NewGridTarget returns a rows x cols planar target with the given corner
// spacing in target-frame units.
func NewGridTarget(rows, cols int, spacing float64) (*GridTarget, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Errorf("target must have at least one row and column, got %dx%d", rows, cols)
	}
	if spacing <= 0 {
		return nil, errors.Errorf("target spacing must be positive, got %f", spacing)
	}
	return &GridTarget{rows: rows, cols: cols, spacing: spacing}, nil
}

// Rows returns the number of grid rows.
func (gt *GridTarget) Rows() int { return gt.rows }

// Cols returns the number of grid columns.
func (gt *GridTarget) Cols() int { return gt.cols }

// Size returns the total number of grid points.
func (gt *GridTarget) Size() int { return gt.rows * gt.cols }

// Point returns the target-frame coordinates of the grid point at the given
// flat row-major index.
func (gt *GridTarget) Point(index int) r3.Vector {
	row := index / gt.cols
	col := index % gt.cols
	return r3.Vector{X: float64(col) * gt.spacing, Y: float64(row) * gt.spacing, Z: 0}
}

// GridObservation is a concrete Observation backed by flat slices, built from
// detector output.
type GridObservation struct {
	width, height int
	target        Target
	imagePoints   []r2.Point
	observed      []bool
}

// NewGridObservation returns an observation of target with no corners
// detected yet.
func NewGridObservation(width, height int, target Target) (*GridObservation, error) {
	if width < 1 || height < 1 {
		return nil, errors.Errorf("image dimensions must be positive, got %dx%d", width, height)
	}
	if target == nil {
		return nil, errors.New("observation requires a target")
	}
	return &GridObservation{
		width:       width,
		height:      height,
		target:      target,
		imagePoints: make([]r2.Point, target.Size()),
		observed:    make([]bool, target.Size()),
	}, nil
}

// SetImagePoint records the detected image coordinates of the corner at the
// given flat index and marks it observed.
func (o *GridObservation) SetImagePoint(index int, p r2.Point) error {
	if index < 0 || index >= len(o.imagePoints) {
		return errors.Errorf("corner index %d out of range [0, %d)", index, len(o.imagePoints))
	}
	o.imagePoints[index] = p
	o.observed[index] = true
	return nil
}

// ClearImagePoint marks the corner at the given flat index unobserved.
func (o *GridObservation) ClearImagePoint(index int) error {
	if index < 0 || index >= len(o.imagePoints) {
		return errors.Errorf("corner index %d out of range [0, %d)", index, len(o.imagePoints))
	}
	o.imagePoints[index] = r2.Point{}
	o.observed[index] = false
	return nil
}

// ImageWidth returns the width of the observed image in pixels.
func (o *GridObservation) ImageWidth() int { return o.width }

// ImageHeight returns the height of the observed image in pixels.
func (o *GridObservation) ImageHeight() int { return o.height }

// ImageGridPoint returns the detected corner at (row, col), if observed.
func (o *GridObservation) ImageGridPoint(row, col int) (r2.Point, bool) {
	if row < 0 || row >= o.target.Rows() || col < 0 || col >= o.target.Cols() {
		return r2.Point{}, false
	}
	return o.ImagePoint(row*o.target.Cols() + col)
}

// ImagePoint returns the detected corner at the given flat index, if observed.
func (o *GridObservation) ImagePoint(index int) (r2.Point, bool) {
	if index < 0 || index >= len(o.imagePoints) || !o.observed[index] {
		return r2.Point{}, false
	}
	return o.imagePoints[index], true
}

// CornersImageFrame returns the image coordinates of all observed corners.
func (o *GridObservation) CornersImageFrame() []r2.Point {
	corners := make([]r2.Point, 0, len(o.imagePoints))
	for i, seen := range o.observed {
		if seen {
			corners = append(corners, o.imagePoints[i])
		}
	}
	return corners
}

// CornersTargetFrame returns the target-frame coordinates of all observed
// corners, parallel to CornersImageFrame.
func (o *GridObservation) CornersTargetFrame() []r3.Vector {
	corners := make([]r3.Vector, 0, len(o.imagePoints))
	for i, seen := range o.observed {
		if seen {
			corners = append(corners, o.target.Point(i))
		}
	}
	return corners
}

// Target returns the observed target.
func (o *GridObservation) Target() Target { return o.target }
