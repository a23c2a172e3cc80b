package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// Equidistant is the four-coefficient angle-polynomial distortion model for
// wide-angle lenses:
//
//	θ  = atan(r)
//	θd = θ*(1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸)
//	p_d = (θd/r) * p
//
// where r is the radius of the normalized image-plane point p.
type Equidistant struct {
	K1, K2, K3, K4 float64
}

// NewEquidistant builds the model from the flat parameter list [k1, k2, k3, k4].
func NewEquidistant(params []float64) (*Equidistant, error) {
	eq := &Equidistant{}
	if len(params) == 0 {
		return eq, nil
	}
	if err := eq.SetParameters(params); err != nil {
		return nil, err
	}
	return eq, nil
}

// ModelType returns the type of distortion model.
func (eq *Equidistant) ModelType() DistortionType { return EquidistantDistortionType }

func (eq *Equidistant) thetaD(theta float64) float64 {
	t2 := theta * theta
	return theta * (1.0 + t2*(eq.K1+t2*(eq.K2+t2*(eq.K3+t2*eq.K4))))
}

// dThetaD is dθd/dθ.
func (eq *Equidistant) dThetaD(theta float64) float64 {
	t2 := theta * theta
	return 1.0 + t2*(3.0*eq.K1+t2*(5.0*eq.K2+t2*(7.0*eq.K3+t2*9.0*eq.K4)))
}

// Distort maps a normalized image-plane point to its distorted form.
func (eq *Equidistant) Distort(p r2.Point) r2.Point {
	r := math.Hypot(p.X, p.Y)
	if r < 1e-12 {
		return p
	}
	s := eq.thetaD(math.Atan(r)) / r
	return r2.Point{X: s * p.X, Y: s * p.Y}
}

// DistortWithJacobian distorts p and returns the 2x2 derivative of the
// distorted point with respect to p.
func (eq *Equidistant) DistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	r := math.Hypot(p.X, p.Y)
	if r < 1e-12 {
		return p, identity2x2()
	}
	theta := math.Atan(r)
	td := eq.thetaD(theta)
	s := td / r
	// ds/dr through θ(r) = atan(r)
	dsdr := (eq.dThetaD(theta)/(1.0+r*r) - s) / r

	jac := mat.NewDense(2, 2, nil)
	jac.Set(0, 0, s+p.X*p.X*dsdr/r)
	jac.Set(0, 1, p.X*p.Y*dsdr/r)
	jac.Set(1, 0, jac.At(0, 1))
	jac.Set(1, 1, s+p.Y*p.Y*dsdr/r)
	return r2.Point{X: s * p.X, Y: s * p.Y}, jac
}

// Undistort inverts Distort by Newton-Raphson iteration.
func (eq *Equidistant) Undistort(p r2.Point) r2.Point {
	return newtonUndistort(eq, p)
}

// UndistortWithJacobian undistorts p and returns the 2x2 derivative of the
// undistorted point with respect to p.
func (eq *Equidistant) UndistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	u := newtonUndistort(eq, p)
	_, jac := eq.DistortWithJacobian(u)
	return u, invert2x2(jac)
}

// ParameterJacobian is the 2x4 derivative of the distorted point with respect
// to [k1, k2, k3, k4].
func (eq *Equidistant) ParameterJacobian(p r2.Point) *mat.Dense {
	r := math.Hypot(p.X, p.Y)
	if r < 1e-12 {
		return mat.NewDense(2, 4, nil)
	}
	theta := math.Atan(r)
	t3 := theta * theta * theta
	t5 := t3 * theta * theta
	t7 := t5 * theta * theta
	t9 := t7 * theta * theta
	return mat.NewDense(2, 4, []float64{
		p.X / r * t3, p.X / r * t5, p.X / r * t7, p.X / r * t9,
		p.Y / r * t3, p.Y / r * t5, p.Y / r * t7, p.Y / r * t9,
	})
}

// MinimalDimensions returns the parameter count of the model.
func (eq *Equidistant) MinimalDimensions() int { return 4 }

// Parameters returns [k1, k2, k3, k4].
func (eq *Equidistant) Parameters() []float64 {
	return []float64{eq.K1, eq.K2, eq.K3, eq.K4}
}

// SetParameters sets [k1, k2, k3, k4].
func (eq *Equidistant) SetParameters(params []float64) error {
	if err := checkParameterCount(len(params), 4, EquidistantDistortionType); err != nil {
		return err
	}
	eq.K1, eq.K2, eq.K3, eq.K4 = params[0], params[1], params[2], params[3]
	return nil
}

// Clear resets all coefficients to zero, the identity of the angle polynomial.
func (eq *Equidistant) Clear() {
	eq.K1, eq.K2, eq.K3, eq.K4 = 0, 0, 0, 0
}

// Equal is exact equality of model type and all coefficients.
func (eq *Equidistant) Equal(other Distortion) bool {
	o, ok := other.(*Equidistant)
	if !ok {
		return false
	}
	return eq.K1 == o.K1 && eq.K2 == o.K2 && eq.K3 == o.K3 && eq.K4 == o.K4
}
