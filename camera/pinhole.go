package camera

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// depthEpsilon is the |z| below which perspective division is treated as
// numerically degenerate by the status-returning projection.
const depthEpsilon = 1e-12

// intrinsicsDimension is the size of the minimal intrinsics parameter vector
// [fu, fv, cu, cv].
const intrinsicsDimension = 4

// PinholeCamera is a pinhole projection model with a pluggable lens
// distortion. It maps 3-D rays in the camera frame to 2-D pixel keypoints and
// back, and supplies the analytic derivatives iterative optimizers need.
//
// The constructor performs no validation: fu/fv may be zero or negative and
// division by them is then the caller's problem. This mirrors how the model
// is used inside optimizers, which routinely construct and perturb cameras
// through states a validating constructor would reject.
//
// A PinholeCamera is safe for concurrent projection calls as long as no
// goroutine concurrently mutates it via Update, SetParameters,
// ResizeIntrinsics or the distortion's setters; the cached reciprocals are
// not synchronized.
type PinholeCamera struct {
	fu, fv float64 // focal lengths, pixels
	cu, cv float64 // principal point, pixels
	ru, rv int     // image resolution, pixels

	// cached, refreshed by every mutator that touches fu/fv
	recipFu, recipFv, fuOverFv float64

	distortion Distortion
}

// NewPinholeCamera returns a model with the given intrinsics, resolution and
// owned distortion. A nil distortion defaults to NoDistortion.
func NewPinholeCamera(fu, fv, cu, cv float64, ru, rv int, distortion Distortion) *PinholeCamera {
	if distortion == nil {
		distortion = &NoDistortion{}
	}
	cam := &PinholeCamera{fu: fu, fv: fv, cu: cu, cv: cv, ru: ru, rv: rv, distortion: distortion}
	cam.updateTemporaries()
	return cam
}

func (cam *PinholeCamera) updateTemporaries() {
	cam.recipFu = 1.0 / cam.fu
	cam.recipFv = 1.0 / cam.fv
	cam.fuOverFv = cam.fu / cam.fv
}

// Fu returns the horizontal focal length in pixels.
func (cam *PinholeCamera) Fu() float64 { return cam.fu }

// Fv returns the vertical focal length in pixels.
func (cam *PinholeCamera) Fv() float64 { return cam.fv }

// Cu returns the horizontal principal point coordinate.
func (cam *PinholeCamera) Cu() float64 { return cam.cu }

// Cv returns the vertical principal point coordinate.
func (cam *PinholeCamera) Cv() float64 { return cam.cv }

// Ru returns the horizontal resolution in pixels.
func (cam *PinholeCamera) Ru() int { return cam.ru }

// Rv returns the vertical resolution in pixels.
func (cam *PinholeCamera) Rv() int { return cam.rv }

// Distortion returns the owned distortion model.
func (cam *PinholeCamera) Distortion() Distortion { return cam.distortion }

// EuclideanToKeypoint projects a 3-D point in the camera frame to a pixel
// keypoint. The keypoint is written even on failure; the boolean is true iff
// the keypoint is inside the image bounds and the point is in front of the
// camera. Callers needing the failure reason use ProjectEuclidean.
func (cam *PinholeCamera) EuclideanToKeypoint(p r3.Vector) (r2.Point, bool) {
	rz := 1.0 / p.Z
	kp := cam.distortion.Distort(r2.Point{X: p.X * rz, Y: p.Y * rz})
	kp = r2.Point{X: cam.fu*kp.X + cam.cu, Y: cam.fv*kp.Y + cam.cv}
	return kp, cam.IsValid(kp) && p.Z > 0
}

// ProjectEuclidean projects p and classifies the outcome. The keypoint is
// populated for every status except ProjectionInvalid.
func (cam *PinholeCamera) ProjectEuclidean(p r3.Vector) ProjectionResult {
	if math.Abs(p.Z) <= depthEpsilon {
		return ProjectionResult{Status: ProjectionInvalid}
	}
	kp, _ := cam.EuclideanToKeypoint(p)
	switch {
	case p.Z < 0:
		return ProjectionResult{Keypoint: kp, Status: PointBehindCamera}
	case !cam.IsValid(kp):
		return ProjectionResult{Keypoint: kp, Status: KeypointOutOfBounds}
	default:
		return ProjectionResult{Keypoint: kp, Status: KeypointVisible}
	}
}

// HomogeneousToKeypoint projects a homogeneous point, normalizing the sign of
// w first so that points behind the camera are handled like their Euclidean
// counterparts.
func (cam *PinholeCamera) HomogeneousToKeypoint(ph HomogeneousPoint) (r2.Point, bool) {
	if ph.W < 0 {
		return cam.EuclideanToKeypoint(ph.Negated().Vector())
	}
	return cam.EuclideanToKeypoint(ph.Vector())
}

// ProjectHomogeneous projects a homogeneous point and classifies the outcome.
func (cam *PinholeCamera) ProjectHomogeneous(ph HomogeneousPoint) ProjectionResult {
	if ph.W < 0 {
		return cam.ProjectEuclidean(ph.Negated().Vector())
	}
	return cam.ProjectEuclidean(ph.Vector())
}

// KeypointToEuclidean back-projects a pixel keypoint to the ray direction
// through it, at depth z = 1. The boolean reports whether the input keypoint
// was inside the image bounds.
func (cam *PinholeCamera) KeypointToEuclidean(keypoint r2.Point) (r3.Vector, bool) {
	kp := r2.Point{
		X: (keypoint.X - cam.cu) * cam.recipFu,
		Y: (keypoint.Y - cam.cv) * cam.recipFv,
	}
	kp = cam.distortion.Undistort(kp)
	return r3.Vector{X: kp.X, Y: kp.Y, Z: 1}, cam.IsValid(keypoint)
}

// KeypointToHomogeneous back-projects a pixel keypoint to a direction at
// infinity (w = 0).
func (cam *PinholeCamera) KeypointToHomogeneous(keypoint r2.Point) (HomogeneousPoint, bool) {
	p, valid := cam.KeypointToEuclidean(keypoint)
	return HomogeneousPoint{X: p.X, Y: p.Y, Z: p.Z, W: 0}, valid
}

// IsValid reports whether the keypoint lies inside the image. The upper bound
// is exclusive: (ru-1, rv-1) is the last valid pixel.
func (cam *PinholeCamera) IsValid(keypoint r2.Point) bool {
	return keypoint.X >= 0 && keypoint.Y >= 0 &&
		keypoint.X < float64(cam.ru) && keypoint.Y < float64(cam.rv)
}

// IsEuclideanVisible reports whether p projects inside the image, discarding
// the keypoint.
func (cam *PinholeCamera) IsEuclideanVisible(p r3.Vector) bool {
	_, visible := cam.EuclideanToKeypoint(p)
	return visible
}

// IsHomogeneousVisible reports whether ph projects inside the image,
// discarding the keypoint.
func (cam *PinholeCamera) IsHomogeneousVisible(ph HomogeneousPoint) bool {
	_, visible := cam.HomogeneousToKeypoint(ph)
	return visible
}

// Update applies an additive perturbation to [fu, fv, cu, cv], the minimal
// parameter step used by incremental optimizers.
func (cam *PinholeCamera) Update(delta []float64) error {
	if len(delta) != intrinsicsDimension {
		return errors.Errorf("update step must have %d elements, got %d", intrinsicsDimension, len(delta))
	}
	cam.fu += delta[0]
	cam.fv += delta[1]
	cam.cu += delta[2]
	cam.cv += delta[3]
	cam.updateTemporaries()
	return nil
}

// Parameters returns [fu, fv, cu, cv] as a flat vector for generic optimizer
// interfaces.
func (cam *PinholeCamera) Parameters() []float64 {
	return []float64{cam.fu, cam.fv, cam.cu, cam.cv}
}

// SetParameters sets [fu, fv, cu, cv] and refreshes the cached reciprocals.
func (cam *PinholeCamera) SetParameters(params []float64) error {
	if len(params) != intrinsicsDimension {
		return errors.Errorf("parameter vector must have %d elements, got %d", intrinsicsDimension, len(params))
	}
	cam.fu, cam.fv, cam.cu, cam.cv = params[0], params[1], params[2], params[3]
	cam.updateTemporaries()
	return nil
}

// ParameterSize returns the length of the flat parameter vector.
func (cam *PinholeCamera) ParameterSize() int { return intrinsicsDimension }

// MinimalDimensions returns the number of intrinsics updated by Update.
func (cam *PinholeCamera) MinimalDimensions() int { return intrinsicsDimension }

// ResizeIntrinsics rescales the model for a resampled image: focal lengths,
// principal point and resolution all scale together.
func (cam *PinholeCamera) ResizeIntrinsics(scale float64) {
	cam.fu *= scale
	cam.fv *= scale
	cam.cu *= scale
	cam.cv *= scale
	cam.ru = int(float64(cam.ru) * scale)
	cam.rv = int(float64(cam.rv) * scale)
	cam.updateTemporaries()
}

// BorderRays back-projects the four image corners and four edge midpoints to
// homogeneous rays, useful for visualizing the field of view.
func (cam *PinholeCamera) BorderRays() []HomogeneousPoint {
	ru := float64(cam.ru)
	rv := float64(cam.rv)
	borders := []r2.Point{
		{X: 0, Y: 0},
		{X: 0, Y: rv * 0.5},
		{X: 0, Y: rv - 1.0},
		{X: ru - 1.0, Y: 0},
		{X: ru - 1.0, Y: rv * 0.5},
		{X: ru - 1.0, Y: rv - 1.0},
		{X: ru * 0.5, Y: 0},
		{X: ru * 0.5, Y: rv - 1.0},
	}
	rays := make([]HomogeneousPoint, len(borders))
	for i, kp := range borders {
		rays[i], _ = cam.KeypointToHomogeneous(kp)
	}
	return rays
}

// RandomKeypoint returns a uniform-random pixel inside the image bounds.
func (cam *PinholeCamera) RandomKeypoint() r2.Point {
	return r2.Point{
		X: rand.Float64() * float64(cam.ru), //nolint:gosec
		Y: rand.Float64() * float64(cam.rv), //nolint:gosec
	}
}

// RandomVisiblePoint returns a Euclidean point at the given depth that
// re-projects to a visible keypoint, built by back-projecting a random valid
// keypoint. A negative depth means a random depth in [0, 100).
func (cam *PinholeCamera) RandomVisiblePoint(depth float64) r3.Vector {
	kp := cam.RandomKeypoint()
	p, _ := cam.KeypointToEuclidean(kp)
	if depth < 0.0 {
		depth = rand.Float64() * 100.0 //nolint:gosec
	}
	// Scaling along the ray does not change the pointing direction.
	return p.Mul(depth / p.Norm())
}

// Equal is exact equality of every stored and cached scalar and of the owned
// distortion. It is value equality for whole camera configurations, not a
// tolerance comparison.
func (cam *PinholeCamera) Equal(other *PinholeCamera) bool {
	if other == nil {
		return false
	}
	return cam.fu == other.fu && cam.fv == other.fv &&
		cam.cu == other.cu && cam.cv == other.cv &&
		cam.ru == other.ru && cam.rv == other.rv &&
		cam.recipFu == other.recipFu && cam.recipFv == other.recipFv &&
		cam.fuOverFv == other.fuOverFv &&
		cam.distortion.Equal(other.distortion)
}

// SetFocalLength sets fu = fv = gamma and refreshes the cached reciprocals.
func (cam *PinholeCamera) SetFocalLength(gamma float64) {
	cam.fu = gamma
	cam.fv = gamma
	cam.updateTemporaries()
}

// SetResolutionAndCenter sets the image resolution and principal point,
// refreshing the caches.
func (cam *PinholeCamera) SetResolutionAndCenter(ru, rv int, cu, cv float64) {
	cam.ru, cam.rv = ru, rv
	cam.cu, cam.cv = cu, cv
	cam.updateTemporaries()
}
