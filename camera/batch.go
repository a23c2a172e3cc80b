package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/camcal/utils"
)

// EuclideanToKeypointBatch projects every point, in parallel, returning the
// keypoints and per-point visibility flags at matching indexes. Points are
// independent so no ordering is imposed between them. The camera must not be
// mutated while a batch call is in flight.
func (cam *PinholeCamera) EuclideanToKeypointBatch(pts []r3.Vector) ([]r2.Point, []bool) {
	keypoints := make([]r2.Point, len(pts))
	visible := make([]bool, len(pts))
	utils.ParallelForEach(len(pts), func(i int) {
		keypoints[i], visible[i] = cam.EuclideanToKeypoint(pts[i])
	})
	return keypoints, visible
}

// HomogeneousToKeypointBatch projects every homogeneous point in parallel.
func (cam *PinholeCamera) HomogeneousToKeypointBatch(pts []HomogeneousPoint) ([]r2.Point, []bool) {
	keypoints := make([]r2.Point, len(pts))
	visible := make([]bool, len(pts))
	utils.ParallelForEach(len(pts), func(i int) {
		keypoints[i], visible[i] = cam.HomogeneousToKeypoint(pts[i])
	})
	return keypoints, visible
}

// KeypointToEuclideanBatch back-projects every keypoint in parallel,
// returning the rays and per-keypoint in-bounds flags at matching indexes.
func (cam *PinholeCamera) KeypointToEuclideanBatch(keypoints []r2.Point) ([]r3.Vector, []bool) {
	pts := make([]r3.Vector, len(keypoints))
	valid := make([]bool, len(keypoints))
	utils.ParallelForEach(len(keypoints), func(i int) {
		pts[i], valid[i] = cam.KeypointToEuclidean(keypoints[i])
	})
	return pts, valid
}
