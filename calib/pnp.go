package calib

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/spatial"
)

// minPnPCorrespondences is the fewest 2-D/3-D matches a pose solve accepts.
const minPnPCorrespondences = 4

// PoseSolver recovers the pose of a camera from 2-D/3-D point
// correspondences. Image points are normalized, unit-focal-length pinhole
// coordinates (identity intrinsics). The returned transform maps world-frame
// points into the camera frame. Solvers are synchronous and report failure
// through the error.
type PoseSolver interface {
	Solve(imagePoints []r2.Point, worldPoints []r3.Vector) (*spatial.RigidTransform, error)
}

// PlanarPoseSolver solves for pose against a planar world (the calibration
// target plane z = 0) by fitting the world-to-image homography and
// decomposing it into a rotation and translation.
type PlanarPoseSolver struct{}

// Solve recovers the camera-from-world pose from at least 4 correspondences
// with a planar world. World z coordinates are ignored; the target plane is
// assumed to be z = 0.
func (PlanarPoseSolver) Solve(imagePoints []r2.Point, worldPoints []r3.Vector) (*spatial.RigidTransform, error) {
	if len(imagePoints) != len(worldPoints) {
		return nil, errors.Errorf("correspondence count mismatch: %d image points, %d world points",
			len(imagePoints), len(worldPoints))
	}
	if len(imagePoints) < minPnPCorrespondences {
		return nil, errors.Errorf("at least %d correspondences are needed, got %d",
			minPnPCorrespondences, len(imagePoints))
	}

	homography, err := fitHomography(imagePoints, worldPoints)
	if err != nil {
		return nil, err
	}

	h1 := r3.Vector{X: homography.At(0, 0), Y: homography.At(1, 0), Z: homography.At(2, 0)}
	h2 := r3.Vector{X: homography.At(0, 1), Y: homography.At(1, 1), Z: homography.At(2, 1)}
	h3 := r3.Vector{X: homography.At(0, 2), Y: homography.At(1, 2), Z: homography.At(2, 2)}

	norm1 := h1.Norm()
	norm2 := h2.Norm()
	if norm1 == 0 || norm2 == 0 {
		return nil, errors.New("degenerate homography, zero column norm")
	}
	lambda := 2.0 / (norm1 + norm2)
	// The homography scale is sign-ambiguous; pick the sign that puts the
	// world plane in front of the camera.
	if h3.Z < 0 {
		lambda = -lambda
	}

	r1 := h1.Mul(lambda)
	r2col := h2.Mul(lambda)
	r3col := r1.Cross(r2col)
	t := h3.Mul(lambda)

	rot, err := orthonormalizeRotation(mat.NewDense(3, 3, []float64{
		r1.X, r2col.X, r3col.X,
		r1.Y, r2col.Y, r3col.Y,
		r1.Z, r2col.Z, r3col.Z,
	}))
	if err != nil {
		return nil, err
	}
	return spatial.NewRigidTransformFromRT(rot, t)
}

// fitHomography estimates the 3x3 homography H with world (X, Y, 1) mapping
// to image (x, y, 1), as the SVD null vector of the stacked 2n x 9 DLT
// system.
func fitHomography(imagePoints []r2.Point, worldPoints []r3.Vector) (*mat.Dense, error) {
	n := len(imagePoints)
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		wx, wy := worldPoints[i].X, worldPoints[i].Y
		ix, iy := imagePoints[i].X, imagePoints[i].Y
		a.SetRow(2*i, []float64{wx, wy, 1, 0, 0, 0, -ix * wx, -ix * wy, -ix})
		a.SetRow(2*i+1, []float64{0, 0, 0, wx, wy, 1, -iy * wx, -iy * wy, -iy})
	}

	// The system is wide at the 4-point minimum (8x9), where a thin
	// factorization stops short of the null space. All 9 right singular
	// vectors are needed to reach the smallest one.
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFullV); !ok {
		return nil, errors.New("failed to factorize homography system")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, cols := v.Dims()
	h := v.ColView(cols - 1)
	return mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), h.AtVec(8),
	}), nil
}

// orthonormalizeRotation projects an approximate rotation onto SO(3) via SVD
// (R = U*Vᵀ), fixing the determinant sign if the projection mirrors.
func orthonormalizeRotation(approx *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(approx, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize rotation")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rot := mat.NewDense(3, 3, nil)
	rot.Mul(&u, v.T())
	if mat.Det(rot) < 0 {
		// mirror: flip the last column of U
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}
	if math.IsNaN(rot.At(0, 0)) {
		return nil, errors.New("rotation orthonormalization produced NaN")
	}
	return rot, nil
}
