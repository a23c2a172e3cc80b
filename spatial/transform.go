// Package spatial provides the rigid transformation type used to express
// camera poses relative to a calibration target.
package spatial

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RigidTransform is a rotation plus translation stored as a 4x4 homogeneous
// matrix. Applying it to a point expresses that point in the transform's
// destination frame.
type RigidTransform struct {
	m *mat.Dense // 4x4
}

// NewRigidTransform returns the identity transform.
func NewRigidTransform() *RigidTransform {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return &RigidTransform{m: m}
}

// NewRigidTransformFromMatrix builds a transform from a 4x4 homogeneous
// matrix. The matrix is copied.
func NewRigidTransformFromMatrix(m mat.Matrix) (*RigidTransform, error) {
	rt := NewRigidTransform()
	if err := rt.Set(m); err != nil {
		return nil, err
	}
	return rt, nil
}

// NewRigidTransformFromRT builds a transform from a 3x3 rotation matrix and a
// translation vector.
func NewRigidTransformFromRT(rot mat.Matrix, t r3.Vector) (*RigidTransform, error) {
	r, c := rot.Dims()
	if r != 3 || c != 3 {
		return nil, errors.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rot.At(i, j))
		}
	}
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	m.Set(3, 3, 1)
	return &RigidTransform{m: m}, nil
}

// Set overwrites the transform with the given 4x4 homogeneous matrix.
func (rt *RigidTransform) Set(m mat.Matrix) error {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return errors.Errorf("homogeneous transform must be 4x4, got %dx%d", r, c)
	}
	rt.m.Copy(m)
	return nil
}

// Matrix returns a copy of the 4x4 homogeneous matrix.
func (rt *RigidTransform) Matrix() *mat.Dense {
	return mat.DenseCopyOf(rt.m)
}

// Rotation returns a copy of the 3x3 rotation block.
func (rt *RigidTransform) Rotation() *mat.Dense {
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, rt.m.At(i, j))
		}
	}
	return rot
}

// Translation returns the translation column.
func (rt *RigidTransform) Translation() r3.Vector {
	return r3.Vector{X: rt.m.At(0, 3), Y: rt.m.At(1, 3), Z: rt.m.At(2, 3)}
}

// TransformPoint applies the transform to a 3-D point.
func (rt *RigidTransform) TransformPoint(p r3.Vector) r3.Vector {
	m := rt.m
	return r3.Vector{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}

// Compose returns rt * other, the transform applying other first.
func (rt *RigidTransform) Compose(other *RigidTransform) *RigidTransform {
	out := mat.NewDense(4, 4, nil)
	out.Mul(rt.m, other.m)
	return &RigidTransform{m: out}
}

// Inverse returns the inverse transform, computed in closed form as
// [Rᵀ, -Rᵀt] for a rigid motion rather than by general matrix inversion.
func (rt *RigidTransform) Inverse() *RigidTransform {
	rot := rt.Rotation()
	t := rt.Translation()
	inv := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv.Set(i, j, rot.At(j, i))
		}
	}
	inv.Set(0, 3, -(rot.At(0, 0)*t.X + rot.At(1, 0)*t.Y + rot.At(2, 0)*t.Z))
	inv.Set(1, 3, -(rot.At(0, 1)*t.X + rot.At(1, 1)*t.Y + rot.At(2, 1)*t.Z))
	inv.Set(2, 3, -(rot.At(0, 2)*t.X + rot.At(1, 2)*t.Y + rot.At(2, 2)*t.Z))
	inv.Set(3, 3, 1)
	return &RigidTransform{m: inv}
}
