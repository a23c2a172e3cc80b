package calib

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/camera"
	"go.viam.com/camcal/spatial"
)

// minCornersPerRow is the corner count a grid row must exceed before its line
// fit is attempted, and the point count a reprojection score must exceed to
// be trusted.
const minCornersPerRow = 3

// radialLineThreshold rejects fitted lines whose direction cosines are nearly
// radial; such rows carry no focal-length information.
const radialLineThreshold = 0.95

// InitializeIntrinsics bootstraps cam's intrinsics from one observation of a
// gridded calibration target. The principal point is set to the image center,
// distortion is cleared, and each grid row is scanned for a non-radial line
// whose curvature implies a candidate focal length; the candidate minimizing
// mean reprojection error (scored with a pose from solver) wins. Returns
// false if no row yields a usable candidate, leaving fu = fv = 0.
//
// Rows are scanned sequentially; the first row achieving a given minimum
// keeps it.
//
// Developed after the pinhole bootstrapping in camodocal
// (https://github.com/hengli/camodocal).
func InitializeIntrinsics(
	cam *camera.PinholeCamera,
	obs Observation,
	solver PoseSolver,
	logger golog.Logger,
) bool {
	target := obs.Target()
	if target == nil {
		logger.Error("the calibration observation has no target object")
		return false
	}

	// First, initialize the image center at the center of the image.
	cu := (float64(obs.ImageWidth()) - 1.0) / 2.0
	cv := (float64(obs.ImageHeight()) - 1.0) / 2.0
	cam.SetResolutionAndCenter(obs.ImageWidth(), obs.ImageHeight(), cu, cv)
	cam.Distortion().Clear()

	gamma0 := 0.0
	minReprojErr := math.Inf(1)
	success := false

	// Find a non-radial row line to initialize the focal length.
	for row := 0; row < target.Rows(); row++ {
		rows := make([]float64, 0, target.Cols()*4)
		count := 0
		for col := 0; col < target.Cols(); col++ {
			imagePoint, seen := obs.ImageGridPoint(row, col)
			if !seen {
				continue
			}
			u := imagePoint.X - cu
			v := imagePoint.Y - cv
			rows = append(rows, u, v, 0.5, -0.5*(u*u+v*v))
			count++
		}
		if count <= minCornersPerRow {
			logger.Debugf("skipping row %d because it only had %d corners, minimum: %d",
				row, count, minCornersPerRow)
			continue
		}

		c, err := solveNullVector(mat.NewDense(count, 4, rows))
		if err != nil {
			logger.Debugf("skipping row %d: %v", row, err)
			continue
		}

		t := c[0]*c[0] + c[1]*c[1] + c[2]*c[3]
		if t < 0 {
			logger.Debugf("skipping a bad SVD solution on row %d", row)
			continue
		}

		// check that the line image is not radial
		d := math.Sqrt(1.0 / t)
		nx := c[0] * d
		ny := c[1] * d
		if math.Hypot(nx, ny) > radialLineThreshold {
			logger.Debugf("skipping a radial line on row %d", row)
			continue
		}

		nz := math.Sqrt(1.0 - nx*nx - ny*ny)
		gamma := math.Abs(c[2] * d / nz)

		logger.Debugf("testing a focal length estimate of %f", gamma)
		cam.SetFocalLength(gamma)

		targetFromCamera, err := estimatePose(cam, obs, solver, logger)
		if err != nil {
			logger.Debugf("skipping row %d as the pose estimation failed: %v", row, err)
			continue
		}

		reprojErr, numReprojected := reprojectionError(cam, obs, targetFromCamera)
		if numReprojected <= minCornersPerRow {
			continue
		}
		avgReprojErr := reprojErr / float64(numReprojected)
		if avgReprojErr < minReprojErr {
			logger.Debugf("row %d produced the new best estimate: %f < %f",
				row, avgReprojErr, minReprojErr)
			minReprojErr = avgReprojErr
			gamma0 = gamma
			success = true
		}
	}

	cam.SetFocalLength(gamma0)
	return success
}

// solveNullVector returns the right singular vector of a belonging to its
// smallest singular value.
func solveNullVector(a *mat.Dense) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize line-fit system")
	}
	var v mat.Dense
	svd.VTo(&v)
	rows, cols := v.Dims()
	null := make([]float64, rows)
	for i := range null {
		null[i] = v.At(i, cols-1)
	}
	return null, nil
}

// estimatePose recovers the pose of the calibration target relative to the
// camera under cam's current (distortion-free) candidate intrinsics. The
// observed corners are converted to a unit-focal-length pinhole view by
// back-projecting through cam and perspective-dividing; corners that do not
// back-project in front of the camera are dropped. The returned transform
// takes points from the camera frame to the target frame.
func estimatePose(
	cam *camera.PinholeCamera,
	obs Observation,
	solver PoseSolver,
	logger golog.Logger,
) (*spatial.RigidTransform, error) {
	imageCorners := obs.CornersImageFrame()
	targetCorners := obs.CornersTargetFrame()

	normalized := make([]r2.Point, 0, len(imageCorners))
	world := make([]r3.Vector, 0, len(targetCorners))
	for i := range imageCorners {
		backProjection, valid := cam.KeypointToEuclidean(imageCorners[i])
		if !valid || backProjection.Z <= 0.0 {
			logger.Debugf("skipping point %d: image point %v, back projection %v, valid: %t",
				i, imageCorners[i], backProjection, valid)
			continue
		}
		normalized = append(normalized, r2.Point{
			X: backProjection.X / backProjection.Z,
			Y: backProjection.Y / backProjection.Z,
		})
		world = append(world, targetCorners[i])
	}

	if len(world) < minPnPCorrespondences {
		return nil, errors.Errorf("at least %d points are needed for calling PnP, found %d",
			minPnPCorrespondences, len(world))
	}

	cameraFromTarget, err := solver.Solve(normalized, world)
	if err != nil {
		return nil, errors.Wrap(err, "pose solve failed")
	}
	return cameraFromTarget.Inverse(), nil
}

// reprojectionError sums the pixel distance between every validly observed
// target point and its projection under cam and the given target-from-camera
// pose, returning the summed error and the number of points used.
func reprojectionError(
	cam *camera.PinholeCamera,
	obs Observation,
	targetFromCamera *spatial.RigidTransform,
) (float64, int) {
	outErr := 0.0
	count := 0
	cameraFromTarget := targetFromCamera.Inverse()

	target := obs.Target()
	for i := 0; i < target.Size(); i++ {
		observed, seen := obs.ImagePoint(i)
		if !seen {
			continue
		}
		projected, visible := cam.EuclideanToKeypoint(cameraFromTarget.TransformPoint(target.Point(i)))
		if !visible {
			continue
		}
		outErr += math.Hypot(observed.X-projected.X, observed.Y-projected.Y)
		count++
	}
	return outErr, count
}
