// Package camera implements geometric camera models: pluggable lens
// distortion, pinhole projection with analytic Jacobians, and the
// validity/visibility predicates consumed by calibration and
// visual-odometry pipelines.
package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// RadialTangentialDistortionType models narrow-field lenses with radial and
	// tangential coefficients (also known as plumb-bob or Brown-Conrady).
	RadialTangentialDistortionType = DistortionType("radtan")
	// EquidistantDistortionType models wide-angle lenses with an
	// angle-polynomial mapping (also known as Kannala-Brandt).
	EquidistantDistortionType = DistortionType("equidistant")
	// FishEyeDistortionType is the one-parameter field-of-view model.
	FishEyeDistortionType = DistortionType("fisheye")
	// NoDistortionType is the identity model.
	NoDistortionType = DistortionType("none")
)

// Distortion maps a normalized (undistorted) image-plane point to its
// distorted counterpart and back, with analytic derivatives. Each instance is
// owned by exactly one projection model; implementations carry no shared
// state.
type Distortion interface {
	ModelType() DistortionType

	// Distort maps a normalized image-plane point to its distorted form.
	Distort(p r2.Point) r2.Point
	// DistortWithJacobian additionally returns the 2x2 derivative of the
	// distorted coordinates with respect to the input coordinates.
	DistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense)

	// Undistort inverts Distort. Models without a closed-form inverse solve
	// iteratively and converge for any point produced by Distort on a
	// physically valid ray.
	Undistort(p r2.Point) r2.Point
	// UndistortWithJacobian additionally returns the 2x2 derivative of the
	// undistorted coordinates with respect to the input, i.e. the inverse of
	// the forward Jacobian evaluated at the solution.
	UndistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense)

	// ParameterJacobian is the 2xD derivative of the distorted coordinates
	// with respect to the D model parameters, evaluated at p.
	ParameterJacobian(p r2.Point) *mat.Dense

	// MinimalDimensions returns D, the parameter count of the model.
	MinimalDimensions() int
	Parameters() []float64
	SetParameters(params []float64) error
	// Clear resets the parameters to the identity distortion.
	Clear()
	// Equal is exact parameter equality, not a tolerance comparison.
	Equal(other Distortion) bool
}

// NewDistortion returns a Distortion given a valid DistortionType and its
// parameters.
func NewDistortion(distortionType DistortionType, parameters []float64) (Distortion, error) {
	switch distortionType {
	case RadialTangentialDistortionType:
		return NewRadialTangential(parameters)
	case EquidistantDistortionType:
		return NewEquidistant(parameters)
	case FishEyeDistortionType:
		return NewFishEye(parameters)
	case NoDistortionType:
		return &NoDistortion{}, nil
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// InvalidDistortionError is used when distortion parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrapf(errors.New("invalid distortion parameters"), "%s", msg)
}

// checkParameterCount verifies the flat parameter slice has the length the
// model expects. Shape problems fail fast instead of silently truncating.
func checkParameterCount(got, want int, model DistortionType) error {
	if got != want {
		return InvalidDistortionError(
			errors.Errorf("%s model expects %d parameters, got %d", model, want, got).Error())
	}
	return nil
}

// NoDistortion is the identity model for an ideal pinhole lens.
type NoDistortion struct{}

// ModelType returns the type of distortion model.
func (nd *NoDistortion) ModelType() DistortionType { return NoDistortionType }

// Distort returns the point unchanged.
func (nd *NoDistortion) Distort(p r2.Point) r2.Point { return p }

// DistortWithJacobian returns the point unchanged and an identity Jacobian.
func (nd *NoDistortion) DistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	return p, identity2x2()
}

// Undistort returns the point unchanged.
func (nd *NoDistortion) Undistort(p r2.Point) r2.Point { return p }

// UndistortWithJacobian returns the point unchanged and an identity Jacobian.
func (nd *NoDistortion) UndistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	return p, identity2x2()
}

// ParameterJacobian returns an empty 2x0 matrix; the model has no parameters.
func (nd *NoDistortion) ParameterJacobian(p r2.Point) *mat.Dense {
	return &mat.Dense{}
}

// MinimalDimensions returns the parameter count of the model.
func (nd *NoDistortion) MinimalDimensions() int { return 0 }

// Parameters returns the parameters of the model as a list of floats.
func (nd *NoDistortion) Parameters() []float64 { return []float64{} }

// SetParameters accepts only an empty parameter list.
func (nd *NoDistortion) SetParameters(params []float64) error {
	return checkParameterCount(len(params), 0, NoDistortionType)
}

// Clear is a no-op; the model is always the identity.
func (nd *NoDistortion) Clear() {}

// Equal reports whether other is also the identity model.
func (nd *NoDistortion) Equal(other Distortion) bool {
	_, ok := other.(*NoDistortion)
	return ok
}

func identity2x2() *mat.Dense {
	return mat.NewDense(2, 2, []float64{1, 0, 0, 1})
}

// invert2x2 returns the inverse of a 2x2 Jacobian, or an identity matrix when
// the Jacobian is singular (degenerate geometry, caller sees an unusable but
// finite derivative).
func invert2x2(j *mat.Dense) *mat.Dense {
	a, b := j.At(0, 0), j.At(0, 1)
	c, d := j.At(1, 0), j.At(1, 1)
	det := a*d - b*c
	if det == 0 || math.IsNaN(det) {
		return identity2x2()
	}
	return mat.NewDense(2, 2, []float64{d / det, -b / det, -c / det, a / det})
}

// newtonUndistort inverts a forward distortion by Newton-Raphson, starting
// from the distorted point. The forward map and its Jacobian come from the
// model itself.
func newtonUndistort(model Distortion, distorted r2.Point) r2.Point {
	const maxIterations = 20
	const tolerance = 1e-10

	u := distorted
	for i := 0; i < maxIterations; i++ {
		est, jac := model.DistortWithJacobian(u)
		errX := est.X - distorted.X
		errY := est.Y - distorted.Y
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}
		a, b := jac.At(0, 0), jac.At(0, 1)
		c, d := jac.At(1, 0), jac.At(1, 1)
		det := a*d - b*c
		if det == 0 {
			break
		}
		u.X -= (d*errX - b*errY) / det
		u.Y -= (-c*errX + a*errY) / det
	}
	return u
}
