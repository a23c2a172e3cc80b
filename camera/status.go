package camera

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// ProjectionStatus explains why a projection succeeded or failed, so callers
// can skip or down-weight observations without conflating "behind the camera"
// with "out of frame".
type ProjectionStatus int

const (
	// KeypointVisible means the projection landed inside the image bounds and
	// the point is in front of the camera.
	KeypointVisible ProjectionStatus = iota
	// PointBehindCamera means the point has non-positive depth.
	PointBehindCamera
	// KeypointOutOfBounds means the math succeeded but the pixel falls outside
	// the image.
	KeypointOutOfBounds
	// ProjectionInvalid means the input was numerically degenerate, e.g. a
	// depth too close to zero to divide by.
	ProjectionInvalid
)

func (s ProjectionStatus) String() string {
	switch s {
	case KeypointVisible:
		return "KEYPOINT_VISIBLE"
	case PointBehindCamera:
		return "POINT_BEHIND_CAMERA"
	case KeypointOutOfBounds:
		return "KEYPOINT_OUT_OF_BOUNDS"
	case ProjectionInvalid:
		return "PROJECTION_INVALID"
	default:
		return fmt.Sprintf("ProjectionStatus(%d)", int(s))
	}
}

// ProjectionResult carries the projected keypoint together with its status.
// The keypoint is populated (possibly out of range) for every status except
// ProjectionInvalid. Results are created fresh per projection call and never
// mutated.
type ProjectionResult struct {
	Keypoint r2.Point
	Status   ProjectionStatus
}

// Visible reports whether the projection landed inside the image.
func (pr ProjectionResult) Visible() bool { return pr.Status == KeypointVisible }

// Equal compares status codes only, not keypoint values.
func (pr ProjectionResult) Equal(other ProjectionResult) bool {
	return pr.Status == other.Status
}

// HomogeneousPoint is a 4-vector [x, y, z, w] representing a point or, when
// w = 0, a direction at infinity. The sign of w encodes behind-camera
// semantics and is normalized before projection.
type HomogeneousPoint struct {
	X, Y, Z, W float64
}

// NewHomogeneousPoint lifts a Euclidean point to homogeneous coordinates with
// w = 1.
func NewHomogeneousPoint(p r3.Vector) HomogeneousPoint {
	return HomogeneousPoint{X: p.X, Y: p.Y, Z: p.Z, W: 1}
}

// Vector returns the [x, y, z] part.
func (hp HomogeneousPoint) Vector() r3.Vector {
	return r3.Vector{X: hp.X, Y: hp.Y, Z: hp.Z}
}

// Negated returns the antipodal representation.
func (hp HomogeneousPoint) Negated() HomogeneousPoint {
	return HomogeneousPoint{X: -hp.X, Y: -hp.Y, Z: -hp.Z, W: -hp.W}
}
