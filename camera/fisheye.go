package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// FishEye is the one-parameter field-of-view distortion model:
//
//	r_d = atan(2*r*tan(w/2)) / w
//	p_d = (r_d/r) * p
//
// where w is the nominal field of view in radians. w = 0 is the identity.
type FishEye struct {
	W float64
}

// NewFishEye builds the model from the flat parameter list [w].
func NewFishEye(params []float64) (*FishEye, error) {
	fe := &FishEye{}
	if len(params) == 0 {
		return fe, nil
	}
	if err := fe.SetParameters(params); err != nil {
		return nil, err
	}
	return fe, nil
}

// ModelType returns the type of distortion model.
func (fe *FishEye) ModelType() DistortionType { return FishEyeDistortionType }

// Distort maps a normalized image-plane point to its distorted form.
func (fe *FishEye) Distort(p r2.Point) r2.Point {
	if fe.W == 0 {
		return p
	}
	r := math.Hypot(p.X, p.Y)
	tanW2 := math.Tan(fe.W / 2.0)
	if r < 1e-12 {
		return r2.Point{X: p.X * 2.0 * tanW2 / fe.W, Y: p.Y * 2.0 * tanW2 / fe.W}
	}
	s := math.Atan(2.0*r*tanW2) / (fe.W * r)
	return r2.Point{X: s * p.X, Y: s * p.Y}
}

// DistortWithJacobian distorts p and returns the 2x2 derivative of the
// distorted point with respect to p.
func (fe *FishEye) DistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	if fe.W == 0 {
		return p, identity2x2()
	}
	r := math.Hypot(p.X, p.Y)
	tanW2 := math.Tan(fe.W / 2.0)
	if r < 1e-12 {
		s := 2.0 * tanW2 / fe.W
		jac := mat.NewDense(2, 2, []float64{s, 0, 0, s})
		return r2.Point{X: s * p.X, Y: s * p.Y}, jac
	}
	rd := math.Atan(2.0*r*tanW2) / fe.W
	s := rd / r
	drddr := 2.0 * tanW2 / (fe.W * (1.0 + 4.0*r*r*tanW2*tanW2))
	dsdr := (drddr - s) / r

	jac := mat.NewDense(2, 2, nil)
	jac.Set(0, 0, s+p.X*p.X*dsdr/r)
	jac.Set(0, 1, p.X*p.Y*dsdr/r)
	jac.Set(1, 0, jac.At(0, 1))
	jac.Set(1, 1, s+p.Y*p.Y*dsdr/r)
	return r2.Point{X: s * p.X, Y: s * p.Y}, jac
}

// Undistort inverts Distort in closed form: r = tan(r_d*w) / (2*tan(w/2)).
func (fe *FishEye) Undistort(p r2.Point) r2.Point {
	if fe.W == 0 {
		return p
	}
	rd := math.Hypot(p.X, p.Y)
	tanW2 := math.Tan(fe.W / 2.0)
	if rd < 1e-12 {
		s := fe.W / (2.0 * tanW2)
		return r2.Point{X: s * p.X, Y: s * p.Y}
	}
	r := math.Tan(rd*fe.W) / (2.0 * tanW2)
	s := r / rd
	return r2.Point{X: s * p.X, Y: s * p.Y}
}

// UndistortWithJacobian undistorts p and returns the 2x2 derivative of the
// undistorted point with respect to p.
func (fe *FishEye) UndistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	u := fe.Undistort(p)
	_, jac := fe.DistortWithJacobian(u)
	return u, invert2x2(jac)
}

// ParameterJacobian is the 2x1 derivative of the distorted point with respect
// to w.
func (fe *FishEye) ParameterJacobian(p r2.Point) *mat.Dense {
	r := math.Hypot(p.X, p.Y)
	if fe.W == 0 || r < 1e-12 {
		return mat.NewDense(2, 1, nil)
	}
	tanW2 := math.Tan(fe.W / 2.0)
	u := 2.0 * r * tanW2
	// d r_d / d w for r_d = atan(u)/w, with du/dw = r*(1 + tan²(w/2)).
	drddw := (r*(1.0+tanW2*tanW2)/(1.0+u*u) - math.Atan(u)/fe.W) / fe.W
	return mat.NewDense(2, 1, []float64{
		p.X / r * drddw,
		p.Y / r * drddw,
	})
}

// MinimalDimensions returns the parameter count of the model.
func (fe *FishEye) MinimalDimensions() int { return 1 }

// Parameters returns [w].
func (fe *FishEye) Parameters() []float64 { return []float64{fe.W} }

// SetParameters sets [w].
func (fe *FishEye) SetParameters(params []float64) error {
	if err := checkParameterCount(len(params), 1, FishEyeDistortionType); err != nil {
		return err
	}
	fe.W = params[0]
	return nil
}

// Clear resets w to zero, the identity distortion.
func (fe *FishEye) Clear() { fe.W = 0 }

// Equal is exact equality of model type and the parameter.
func (fe *FishEye) Equal(other Distortion) bool {
	o, ok := other.(*FishEye)
	if !ok {
		return false
	}
	return fe.W == o.W
}
