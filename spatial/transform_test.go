package spatial

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func rotZ(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

func TestIdentityTransform(t *testing.T) {
	rt := NewRigidTransform()
	p := r3.Vector{X: 1, Y: -2, Z: 3}
	test.That(t, rt.TransformPoint(p), test.ShouldResemble, p)
	test.That(t, rt.Translation(), test.ShouldResemble, r3.Vector{})
}

func TestTransformFromRT(t *testing.T) {
	rt, err := NewRigidTransformFromRT(rotZ(math.Pi/2), r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)

	// a quarter turn about z maps x onto y
	p := rt.TransformPoint(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, p.X, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, p.Y, test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, p.Z, test.ShouldAlmostEqual, 3, 1e-12)

	_, err = NewRigidTransformFromRT(mat.NewDense(2, 2, nil), r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInverse(t *testing.T) {
	rt, err := NewRigidTransformFromRT(rotZ(0.7), r3.Vector{X: 0.3, Y: -1.1, Z: 2.5})
	test.That(t, err, test.ShouldBeNil)

	p := r3.Vector{X: -0.4, Y: 0.9, Z: 1.2}
	back := rt.Inverse().TransformPoint(rt.TransformPoint(p))
	test.That(t, back.X, test.ShouldAlmostEqual, p.X, 1e-12)
	test.That(t, back.Y, test.ShouldAlmostEqual, p.Y, 1e-12)
	test.That(t, back.Z, test.ShouldAlmostEqual, p.Z, 1e-12)

	// composing with the inverse gives the identity
	ident := rt.Compose(rt.Inverse()).Matrix()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, ident.At(i, j), test.ShouldAlmostEqual, want, 1e-12)
		}
	}
}

func TestCompose(t *testing.T) {
	a, err := NewRigidTransformFromRT(rotZ(0.3), r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	b, err := NewRigidTransformFromRT(rotZ(-0.8), r3.Vector{X: 0, Y: 2, Z: -1})
	test.That(t, err, test.ShouldBeNil)

	p := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	composed := a.Compose(b).TransformPoint(p)
	chained := a.TransformPoint(b.TransformPoint(p))
	test.That(t, composed.X, test.ShouldAlmostEqual, chained.X, 1e-12)
	test.That(t, composed.Y, test.ShouldAlmostEqual, chained.Y, 1e-12)
	test.That(t, composed.Z, test.ShouldAlmostEqual, chained.Z, 1e-12)
}

func TestSetAndCopies(t *testing.T) {
	rt := NewRigidTransform()
	test.That(t, rt.Set(mat.NewDense(3, 3, nil)), test.ShouldNotBeNil)

	other, err := NewRigidTransformFromRT(rotZ(1.1), r3.Vector{X: 4, Y: 5, Z: 6})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rt.Set(other.Matrix()), test.ShouldBeNil)
	test.That(t, rt.Translation(), test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})

	// mutating the returned copies must not touch the transform
	m := rt.Matrix()
	m.Set(0, 3, 99)
	rot := rt.Rotation()
	rot.Set(0, 0, 99)
	test.That(t, rt.Translation().X, test.ShouldEqual, 4.0)
	test.That(t, rt.Matrix().At(0, 0), test.ShouldAlmostEqual, math.Cos(1.1), 1e-12)
}
