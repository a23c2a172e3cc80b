package camera

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// numericDistortJacobian is a central-difference check of the analytic
// point Jacobians.
func numericDistortJacobian(model Distortion, p r2.Point) *mat.Dense {
	const h = 1e-7
	xp := model.Distort(r2.Point{X: p.X + h, Y: p.Y})
	xm := model.Distort(r2.Point{X: p.X - h, Y: p.Y})
	yp := model.Distort(r2.Point{X: p.X, Y: p.Y + h})
	ym := model.Distort(r2.Point{X: p.X, Y: p.Y - h})
	return mat.NewDense(2, 2, []float64{
		(xp.X - xm.X) / (2 * h), (yp.X - ym.X) / (2 * h),
		(xp.Y - xm.Y) / (2 * h), (yp.Y - ym.Y) / (2 * h),
	})
}

// numericParameterJacobian perturbs each model parameter in turn.
func numericParameterJacobian(t *testing.T, model Distortion, p r2.Point) *mat.Dense {
	t.Helper()
	const h = 1e-7
	dim := model.MinimalDimensions()
	out := mat.NewDense(2, dim, nil)
	base := model.Parameters()
	for i := 0; i < dim; i++ {
		params := append([]float64{}, base...)
		params[i] += h
		test.That(t, model.SetParameters(params), test.ShouldBeNil)
		plus := model.Distort(p)
		params[i] -= 2 * h
		test.That(t, model.SetParameters(params), test.ShouldBeNil)
		minus := model.Distort(p)
		out.Set(0, i, (plus.X-minus.X)/(2*h))
		out.Set(1, i, (plus.Y-minus.Y)/(2*h))
	}
	test.That(t, model.SetParameters(base), test.ShouldBeNil)
	return out
}

func checkDistortionDerivatives(t *testing.T, model Distortion, p r2.Point) {
	t.Helper()
	_, jac := model.DistortWithJacobian(p)
	numeric := numericDistortJacobian(model, p)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			test.That(t, jac.At(r, c), test.ShouldAlmostEqual, numeric.At(r, c), 1e-5)
		}
	}

	paramJac := model.ParameterJacobian(p)
	numericParams := numericParameterJacobian(t, model, p)
	for c := 0; c < model.MinimalDimensions(); c++ {
		test.That(t, paramJac.At(0, c), test.ShouldAlmostEqual, numericParams.At(0, c), 1e-5)
		test.That(t, paramJac.At(1, c), test.ShouldAlmostEqual, numericParams.At(1, c), 1e-5)
	}
}

func checkRoundTrip(t *testing.T, model Distortion, p r2.Point, tol float64) {
	t.Helper()
	d := model.Distort(p)
	u := model.Undistort(d)
	test.That(t, u.X, test.ShouldAlmostEqual, p.X, tol)
	test.That(t, u.Y, test.ShouldAlmostEqual, p.Y, tol)

	// the undistort Jacobian is the inverse of the distort Jacobian
	_, jd := model.DistortWithJacobian(p)
	_, ju := model.UndistortWithJacobian(d)
	var prod mat.Dense
	prod.Mul(ju, jd)
	test.That(t, prod.At(0, 0), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, prod.At(1, 1), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, prod.At(0, 1), test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, prod.At(1, 0), test.ShouldAlmostEqual, 0, 1e-6)
}

func TestNewDistortion(t *testing.T) {
	for _, tc := range []struct {
		model  DistortionType
		params []float64
	}{
		{RadialTangentialDistortionType, []float64{-0.2, 0.05, 0.001, -0.001}},
		{EquidistantDistortionType, []float64{0.01, 0.002, -0.001, 0.0005}},
		{FishEyeDistortionType, []float64{0.9}},
		{NoDistortionType, []float64{}},
	} {
		d, err := NewDistortion(tc.model, tc.params)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, d.ModelType(), test.ShouldEqual, tc.model)
		test.That(t, d.MinimalDimensions(), test.ShouldEqual, len(tc.params))
		test.That(t, d.Parameters(), test.ShouldResemble, tc.params)
	}

	_, err := NewDistortion(DistortionType("bogus"), nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistortion(RadialTangentialDistortionType, []float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistortion(FishEyeDistortionType, []float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRadialTangential(t *testing.T) {
	rt, err := NewRadialTangential([]float64{-0.2, 0.05, 0.001, -0.0005})
	test.That(t, err, test.ShouldBeNil)

	// the origin is a fixed point of the model
	origin := rt.Distort(r2.Point{})
	test.That(t, origin.X, test.ShouldEqual, 0.0)
	test.That(t, origin.Y, test.ShouldEqual, 0.0)

	for _, p := range []r2.Point{{X: 0.1, Y: -0.05}, {X: -0.3, Y: 0.25}, {X: 0.4, Y: 0.4}} {
		checkRoundTrip(t, rt, p, 1e-8)
		checkDistortionDerivatives(t, rt, p)
	}

	rt.Clear()
	p := r2.Point{X: 0.2, Y: -0.3}
	test.That(t, rt.Distort(p), test.ShouldResemble, p)
}

func TestEquidistant(t *testing.T) {
	eq, err := NewEquidistant([]float64{0.01, -0.002, 0.001, -0.0005})
	test.That(t, err, test.ShouldBeNil)

	for _, p := range []r2.Point{{X: 0.2, Y: 0.1}, {X: -0.5, Y: 0.4}, {X: 0.05, Y: -0.8}} {
		checkRoundTrip(t, eq, p, 1e-8)
		checkDistortionDerivatives(t, eq, p)
	}

	// near the optical axis the map degenerates to the identity
	tiny := eq.Distort(r2.Point{X: 1e-14, Y: 0})
	test.That(t, tiny.X, test.ShouldAlmostEqual, 1e-14, 1e-20)
}

func TestFishEye(t *testing.T) {
	fe, err := NewFishEye([]float64{0.9})
	test.That(t, err, test.ShouldBeNil)

	for _, p := range []r2.Point{{X: 0.3, Y: -0.2}, {X: -0.6, Y: 0.5}, {X: 0.9, Y: 0.8}} {
		checkRoundTrip(t, fe, p, 1e-10)
		checkDistortionDerivatives(t, fe, p)
	}

	// w = 0 is the identity
	fe.Clear()
	p := r2.Point{X: 0.4, Y: 0.1}
	test.That(t, fe.Distort(p), test.ShouldResemble, p)
	test.That(t, fe.Undistort(p), test.ShouldResemble, p)
}

func TestNoDistortionModel(t *testing.T) {
	nd := &NoDistortion{}
	p := r2.Point{X: 1.5, Y: -2.5}
	test.That(t, nd.Distort(p), test.ShouldResemble, p)
	test.That(t, nd.Undistort(p), test.ShouldResemble, p)
	_, jac := nd.DistortWithJacobian(p)
	test.That(t, jac.At(0, 0), test.ShouldEqual, 1.0)
	test.That(t, jac.At(1, 1), test.ShouldEqual, 1.0)
	test.That(t, nd.MinimalDimensions(), test.ShouldEqual, 0)
	test.That(t, nd.SetParameters([]float64{1}), test.ShouldNotBeNil)
}

func TestDistortionEquality(t *testing.T) {
	a, err := NewRadialTangential([]float64{-0.2, 0.05, 0.001, -0.0005})
	test.That(t, err, test.ShouldBeNil)
	b, err := NewRadialTangential([]float64{-0.2, 0.05, 0.001, -0.0005})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Equal(b), test.ShouldBeTrue)

	b.K1 += 1e-12
	test.That(t, a.Equal(b), test.ShouldBeFalse)

	// different model types never compare equal
	fe, err := NewFishEye([]float64{0.9})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Equal(fe), test.ShouldBeFalse)
	test.That(t, fe.Equal(&NoDistortion{}), test.ShouldBeFalse)
}

func TestUndistortConvergence(t *testing.T) {
	// iterative inversion must converge for anything Distort produces on a
	// physically valid ray
	rt, err := NewRadialTangential([]float64{-0.3, 0.1, 0.002, -0.001})
	test.That(t, err, test.ShouldBeNil)
	for x := -0.5; x <= 0.5; x += 0.125 {
		for y := -0.4; y <= 0.4; y += 0.1 {
			p := r2.Point{X: x, Y: y}
			u := rt.Undistort(rt.Distort(p))
			test.That(t, math.Hypot(u.X-p.X, u.Y-p.Y), test.ShouldBeLessThan, 1e-7)
		}
	}
}
