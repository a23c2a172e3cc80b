package camera

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// RadialTangential is the four-parameter radial-tangential (plumb-bob)
// distortion model:
//
//	x_d = x*(1 + k1*r² + k2*r⁴) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y*(1 + k1*r² + k2*r⁴) + 2*p2*x*y + p1*(r² + 2*y²)
//
// where (x, y) is a normalized image-plane point and r² = x² + y².
type RadialTangential struct {
	K1, K2 float64
	P1, P2 float64
}

// NewRadialTangential builds the model from the flat parameter list
// [k1, k2, p1, p2].
func NewRadialTangential(params []float64) (*RadialTangential, error) {
	rt := &RadialTangential{}
	if len(params) == 0 {
		return rt, nil
	}
	if err := rt.SetParameters(params); err != nil {
		return nil, err
	}
	return rt, nil
}

// ModelType returns the type of distortion model.
func (rt *RadialTangential) ModelType() DistortionType { return RadialTangentialDistortionType }

// Distort maps a normalized image-plane point to its distorted form.
func (rt *RadialTangential) Distort(p r2.Point) r2.Point {
	mx2 := p.X * p.X
	my2 := p.Y * p.Y
	mxy := p.X * p.Y
	rho2 := mx2 + my2
	rad := rt.K1*rho2 + rt.K2*rho2*rho2
	return r2.Point{
		X: p.X + p.X*rad + 2.0*rt.P1*mxy + rt.P2*(rho2+2.0*mx2),
		Y: p.Y + p.Y*rad + 2.0*rt.P2*mxy + rt.P1*(rho2+2.0*my2),
	}
}

// DistortWithJacobian distorts p and returns the 2x2 derivative of the
// distorted point with respect to p.
func (rt *RadialTangential) DistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	mx2 := p.X * p.X
	my2 := p.Y * p.Y
	mxy := p.X * p.Y
	rho2 := mx2 + my2
	rad := rt.K1*rho2 + rt.K2*rho2*rho2

	jac := mat.NewDense(2, 2, nil)
	jac.Set(0, 0, 1.0+rad+2.0*rt.K1*mx2+4.0*rt.K2*rho2*mx2+2.0*rt.P1*p.Y+6.0*rt.P2*p.X)
	jac.Set(1, 0, 2.0*rt.K1*mxy+4.0*rt.K2*rho2*mxy+2.0*rt.P1*p.X+2.0*rt.P2*p.Y)
	jac.Set(0, 1, jac.At(1, 0))
	jac.Set(1, 1, 1.0+rad+2.0*rt.K1*my2+4.0*rt.K2*rho2*my2+6.0*rt.P1*p.Y+2.0*rt.P2*p.X)

	return rt.Distort(p), jac
}

// Undistort inverts Distort by Newton-Raphson iteration.
func (rt *RadialTangential) Undistort(p r2.Point) r2.Point {
	return newtonUndistort(rt, p)
}

// UndistortWithJacobian undistorts p and returns the 2x2 derivative of the
// undistorted point with respect to p.
func (rt *RadialTangential) UndistortWithJacobian(p r2.Point) (r2.Point, *mat.Dense) {
	u := newtonUndistort(rt, p)
	_, jac := rt.DistortWithJacobian(u)
	return u, invert2x2(jac)
}

// ParameterJacobian is the 2x4 derivative of the distorted point with respect
// to [k1, k2, p1, p2].
func (rt *RadialTangential) ParameterJacobian(p r2.Point) *mat.Dense {
	mx2 := p.X * p.X
	my2 := p.Y * p.Y
	mxy := p.X * p.Y
	rho2 := mx2 + my2
	rho4 := rho2 * rho2
	return mat.NewDense(2, 4, []float64{
		p.X * rho2, p.X * rho4, 2.0 * mxy, rho2 + 2.0*mx2,
		p.Y * rho2, p.Y * rho4, rho2 + 2.0*my2, 2.0 * mxy,
	})
}

// MinimalDimensions returns the parameter count of the model.
func (rt *RadialTangential) MinimalDimensions() int { return 4 }

// Parameters returns [k1, k2, p1, p2].
func (rt *RadialTangential) Parameters() []float64 {
	return []float64{rt.K1, rt.K2, rt.P1, rt.P2}
}

// SetParameters sets [k1, k2, p1, p2].
func (rt *RadialTangential) SetParameters(params []float64) error {
	if err := checkParameterCount(len(params), 4, RadialTangentialDistortionType); err != nil {
		return err
	}
	rt.K1, rt.K2, rt.P1, rt.P2 = params[0], params[1], params[2], params[3]
	return nil
}

// Clear resets all coefficients to zero, the identity distortion.
func (rt *RadialTangential) Clear() {
	rt.K1, rt.K2, rt.P1, rt.P2 = 0, 0, 0, 0
}

// Equal is exact equality of model type and all coefficients.
func (rt *RadialTangential) Equal(other Distortion) bool {
	o, ok := other.(*RadialTangential)
	if !ok {
		return false
	}
	return rt.K1 == o.K1 && rt.K2 == o.K2 && rt.P1 == o.P1 && rt.P2 == o.P2
}
