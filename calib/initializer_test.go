package calib

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/camcal/camera"
	"go.viam.com/camcal/spatial"
)

// viewingPose returns a camera-from-target pose tilting the camera and
// placing the target center at the given depth.
func viewingPose(t *testing.T, target Target, depth float64) *spatial.RigidTransform {
	t.Helper()
	rot := matMul(rotX(0.25), rotY(-0.15))
	center := r3.Vector{
		X: float64(target.Cols()-1) / 2.0 * 0.07,
		Y: float64(target.Rows()-1) / 2.0 * 0.07,
		Z: 0,
	}
	rc := r3.Vector{
		X: rot.At(0, 0)*center.X + rot.At(0, 1)*center.Y,
		Y: rot.At(1, 0)*center.X + rot.At(1, 1)*center.Y,
		Z: rot.At(2, 0)*center.X + rot.At(2, 1)*center.Y,
	}
	pose, err := spatial.NewRigidTransformFromRT(rot, r3.Vector{X: -rc.X, Y: -rc.Y, Z: depth - rc.Z})
	test.That(t, err, test.ShouldBeNil)
	return pose
}

// synthesizeObservation projects every target corner through trueCam under
// the camera-from-target pose, recording the visible ones.
func synthesizeObservation(
	t *testing.T,
	trueCam *camera.PinholeCamera,
	target Target,
	pose *spatial.RigidTransform,
) (*GridObservation, int) {
	t.Helper()
	obs, err := NewGridObservation(trueCam.Ru(), trueCam.Rv(), target)
	test.That(t, err, test.ShouldBeNil)
	seen := 0
	for i := 0; i < target.Size(); i++ {
		kp, visible := trueCam.EuclideanToKeypoint(pose.TransformPoint(target.Point(i)))
		if !visible {
			continue
		}
		test.That(t, obs.SetImagePoint(i, kp), test.ShouldBeNil)
		seen++
	}
	return obs, seen
}

func distortedTestCamera(t *testing.T) *camera.PinholeCamera {
	t.Helper()
	rt, err := camera.NewRadialTangential([]float64{-0.4, 0.15, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	return camera.NewPinholeCamera(400, 400, 320, 240, 640, 480, rt)
}

func TestInitializeIntrinsics(t *testing.T) {
	logger := golog.NewTestLogger(t)
	trueCam := distortedTestCamera(t)
	target, err := NewGridTarget(6, 7, 0.07)
	test.That(t, err, test.ShouldBeNil)

	pose := viewingPose(t, target, 0.4)
	obs, seen := synthesizeObservation(t, trueCam, target, pose)
	test.That(t, seen, test.ShouldEqual, target.Size())

	junk, err := camera.NewRadialTangential([]float64{0.5, 0.5, 0.5, 0.5})
	test.That(t, err, test.ShouldBeNil)
	cam := camera.NewPinholeCamera(0, 0, 0, 0, 0, 0, junk)

	ok := InitializeIntrinsics(cam, obs, PlanarPoseSolver{}, logger)
	test.That(t, ok, test.ShouldBeTrue)

	// the principal point sits at the image center and distortion is cleared
	test.That(t, cam.Cu(), test.ShouldEqual, 319.5)
	test.That(t, cam.Cv(), test.ShouldEqual, 239.5)
	test.That(t, cam.Ru(), test.ShouldEqual, 640)
	test.That(t, cam.Rv(), test.ShouldEqual, 480)
	test.That(t, cam.Distortion().Parameters(), test.ShouldResemble, []float64{0, 0, 0, 0})

	// the bootstrap focal length is coarse but must land in a plausible range
	test.That(t, cam.Fu(), test.ShouldEqual, cam.Fv())
	test.That(t, cam.Fu(), test.ShouldBeGreaterThan, 100.0)
	test.That(t, cam.Fu(), test.ShouldBeLessThan, 2000.0)
}

func TestInitializeIntrinsicsUndistortedView(t *testing.T) {
	// with no lens distortion every fitted row line is straight, so its image
	// is radial and carries no focal length information
	logger := golog.NewTestLogger(t)
	trueCam := camera.NewPinholeCamera(400, 400, 320, 240, 640, 480, nil)
	target, err := NewGridTarget(6, 7, 0.07)
	test.That(t, err, test.ShouldBeNil)

	obs, _ := synthesizeObservation(t, trueCam, target, viewingPose(t, target, 0.4))

	cam := camera.NewPinholeCamera(0, 0, 0, 0, 0, 0, nil)
	ok := InitializeIntrinsics(cam, obs, PlanarPoseSolver{}, logger)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, cam.Fu(), test.ShouldEqual, 0.0)
	test.That(t, cam.Fv(), test.ShouldEqual, 0.0)
}

func TestInitializeIntrinsicsTooFewCorners(t *testing.T) {
	// three corners per row is below the minimum for a line fit
	logger := golog.NewTestLogger(t)
	trueCam := distortedTestCamera(t)
	target, err := NewGridTarget(6, 3, 0.07)
	test.That(t, err, test.ShouldBeNil)

	obs, _ := synthesizeObservation(t, trueCam, target, viewingPose(t, target, 0.4))

	cam := camera.NewPinholeCamera(0, 0, 0, 0, 0, 0, nil)
	ok := InitializeIntrinsics(cam, obs, PlanarPoseSolver{}, logger)
	test.That(t, ok, test.ShouldBeFalse)
}

type targetlessObservation struct{}

func (targetlessObservation) ImageWidth() int  { return 640 }
func (targetlessObservation) ImageHeight() int { return 480 }

func (targetlessObservation) ImageGridPoint(int, int) (r2.Point, bool) { return r2.Point{}, false }
func (targetlessObservation) ImagePoint(int) (r2.Point, bool)          { return r2.Point{}, false }

func (targetlessObservation) CornersImageFrame() []r2.Point   { return nil }
func (targetlessObservation) CornersTargetFrame() []r3.Vector { return nil }
func (targetlessObservation) Target() Target                  { return nil }

func TestInitializeIntrinsicsNoTarget(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cam := camera.NewPinholeCamera(0, 0, 0, 0, 0, 0, nil)
	ok := InitializeIntrinsics(cam, targetlessObservation{}, PlanarPoseSolver{}, logger)
	test.That(t, ok, test.ShouldBeFalse)
}
