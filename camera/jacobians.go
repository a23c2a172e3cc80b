package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// EuclideanToKeypointWithJacobian projects p and returns the 2x3 derivative
// of the keypoint with respect to p, chained through the distortion Jacobian
// and the perspective division.
func (cam *PinholeCamera) EuclideanToKeypointWithJacobian(p r3.Vector) (r2.Point, *mat.Dense, bool) {
	rz := 1.0 / p.Z
	rz2 := rz * rz

	kp, jd := cam.distortion.DistortWithJacobian(r2.Point{X: p.X * rz, Y: p.Y * rz})

	jac := mat.NewDense(2, 3, nil)
	jac.Set(0, 0, cam.fu*jd.At(0, 0)*rz)
	jac.Set(0, 1, cam.fu*jd.At(0, 1)*rz)
	jac.Set(0, 2, -cam.fu*(p.X*jd.At(0, 0)+p.Y*jd.At(0, 1))*rz2)
	jac.Set(1, 0, cam.fv*jd.At(1, 0)*rz)
	jac.Set(1, 1, cam.fv*jd.At(1, 1)*rz)
	jac.Set(1, 2, -cam.fv*(p.X*jd.At(1, 0)+p.Y*jd.At(1, 1))*rz2)

	kp = r2.Point{X: cam.fu*kp.X + cam.cu, Y: cam.fv*kp.Y + cam.cv}
	return kp, jac, cam.IsValid(kp) && p.Z > 0
}

// HomogeneousToKeypointWithJacobian projects a homogeneous point and returns
// the 2x4 derivative of the keypoint with respect to [x, y, z, w]; the w
// column is zero. For w < 0 the antipode is projected and the point columns
// are negated accordingly.
func (cam *PinholeCamera) HomogeneousToKeypointWithJacobian(ph HomogeneousPoint) (r2.Point, *mat.Dense, bool) {
	jac := mat.NewDense(2, 4, nil)
	flip := ph.W < 0
	p := ph.Vector()
	if flip {
		p = p.Mul(-1)
	}
	kp, j3, valid := cam.EuclideanToKeypointWithJacobian(p)
	sign := 1.0
	if flip {
		sign = -1.0
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			jac.Set(r, c, sign*j3.At(r, c))
		}
	}
	return kp, jac, valid
}

// KeypointToEuclideanWithJacobian back-projects a keypoint and returns the
// 3x2 derivative of the ray with respect to the keypoint: the reciprocal
// focal-length diagonal composed with the distortion inverse Jacobian. The z
// row is zero.
func (cam *PinholeCamera) KeypointToEuclideanWithJacobian(keypoint r2.Point) (r3.Vector, *mat.Dense, bool) {
	kp := r2.Point{
		X: (keypoint.X - cam.cu) * cam.recipFu,
		Y: (keypoint.Y - cam.cv) * cam.recipFv,
	}
	kp, jd := cam.distortion.UndistortWithJacobian(kp)

	jac := mat.NewDense(3, 2, nil)
	jac.Set(0, 0, cam.recipFu*jd.At(0, 0))
	jac.Set(0, 1, cam.recipFu*jd.At(0, 1))
	jac.Set(1, 0, cam.recipFv*jd.At(1, 0))
	jac.Set(1, 1, cam.recipFv*jd.At(1, 1))

	return r3.Vector{X: kp.X, Y: kp.Y, Z: 1}, jac, cam.IsValid(keypoint)
}

// KeypointToHomogeneousWithJacobian back-projects a keypoint to a direction
// (w = 0) and returns the 4x2 derivative; the w row is zero.
func (cam *PinholeCamera) KeypointToHomogeneousWithJacobian(keypoint r2.Point) (HomogeneousPoint, *mat.Dense, bool) {
	p, j3, valid := cam.KeypointToEuclideanWithJacobian(keypoint)
	jac := mat.NewDense(4, 2, nil)
	for r := 0; r < 3; r++ {
		jac.Set(r, 0, j3.At(r, 0))
		jac.Set(r, 1, j3.At(r, 1))
	}
	return HomogeneousPoint{X: p.X, Y: p.Y, Z: p.Z, W: 0}, jac, valid
}

// EuclideanToKeypointIntrinsicsJacobian is the 2x4 derivative of the
// projected keypoint with respect to [fu, fv, cu, cv], holding p fixed.
func (cam *PinholeCamera) EuclideanToKeypointIntrinsicsJacobian(p r3.Vector) *mat.Dense {
	rz := 1.0 / p.Z
	kp := cam.distortion.Distort(r2.Point{X: p.X * rz, Y: p.Y * rz})

	jac := mat.NewDense(2, 4, nil)
	jac.Set(0, 0, kp.X)
	jac.Set(0, 2, 1)
	jac.Set(1, 1, kp.Y)
	jac.Set(1, 3, 1)
	return jac
}

// EuclideanToKeypointDistortionJacobian is the 2xD derivative of the
// projected keypoint with respect to the distortion parameters, holding p
// fixed.
func (cam *PinholeCamera) EuclideanToKeypointDistortionJacobian(p r3.Vector) *mat.Dense {
	rz := 1.0 / p.Z
	jac := cam.distortion.ParameterJacobian(r2.Point{X: p.X * rz, Y: p.Y * rz})
	rows, cols := jac.Dims()
	if rows == 0 || cols == 0 {
		return jac
	}
	for c := 0; c < cols; c++ {
		jac.Set(0, c, cam.fu*jac.At(0, c))
		jac.Set(1, c, cam.fv*jac.At(1, c))
	}
	return jac
}

// HomogeneousToKeypointIntrinsicsJacobian normalizes the sign of w and
// delegates to the Euclidean variant.
func (cam *PinholeCamera) HomogeneousToKeypointIntrinsicsJacobian(ph HomogeneousPoint) *mat.Dense {
	if ph.W < 0 {
		return cam.EuclideanToKeypointIntrinsicsJacobian(ph.Vector().Mul(-1))
	}
	return cam.EuclideanToKeypointIntrinsicsJacobian(ph.Vector())
}

// HomogeneousToKeypointDistortionJacobian normalizes the sign of w and
// delegates to the Euclidean variant.
func (cam *PinholeCamera) HomogeneousToKeypointDistortionJacobian(ph HomogeneousPoint) *mat.Dense {
	if ph.W < 0 {
		return cam.EuclideanToKeypointDistortionJacobian(ph.Vector().Mul(-1))
	}
	return cam.EuclideanToKeypointDistortionJacobian(ph.Vector())
}
