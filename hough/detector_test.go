package hough

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// radius 1000, step 100, search region +/-500 on each axis
func centeredDetector(t *testing.T) *CircleDetector {
	t.Helper()
	d, err := NewCircleDetector(1000, Constraints{
		Step:   100,
		XLower: -500,
		XUpper: 500,
		YLower: -500,
		YUpper: 500,
	})
	test.That(t, err, test.ShouldBeNil)
	return d
}

func TestConstructionRejected(t *testing.T) {
	good := Constraints{Step: 100, XLower: -500, XUpper: 500, YLower: -500, YUpper: 500}

	_, err := NewCircleDetector(0, good)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewCircleDetector(-1000, good)
	test.That(t, err, test.ShouldNotBeNil)

	bad := good
	bad.Step = 0
	_, err = NewCircleDetector(1000, bad)
	test.That(t, err, test.ShouldNotBeNil)

	bad = good
	bad.XUpper = bad.XLower
	_, err = NewCircleDetector(1000, bad)
	test.That(t, err, test.ShouldNotBeNil)

	bad = good
	bad.YLower, bad.YUpper = 500, -500
	_, err = NewCircleDetector(1000, bad)
	test.That(t, err, test.ShouldNotBeNil)

	// region narrower than one bin
	bad = good
	bad.XLower, bad.XUpper = 0, 50
	_, err = NewCircleDetector(1000, bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGridAxis(t *testing.T) {
	a := newGridAxis(-500, 500, 100)
	test.That(t, a.count, test.ShouldEqual, 10)

	// bin centers ascend from lower in step increments; upper is excluded
	test.That(t, a.center(0), test.ShouldEqual, -500.0)
	test.That(t, a.center(9), test.ShouldEqual, 400.0)
	for i := 1; i < a.count; i++ {
		test.That(t, a.center(i), test.ShouldEqual, a.center(i-1)+100)
	}

	test.That(t, a.indexOf(0), test.ShouldEqual, 5)
	test.That(t, a.indexOf(-500), test.ShouldEqual, 0)
	test.That(t, a.indexOf(499), test.ShouldEqual, 9)

	// out-of-range coordinates clamp to the edge bins
	test.That(t, a.indexOf(-100000), test.ShouldEqual, 0)
	test.That(t, a.indexOf(100000), test.ShouldEqual, 9)
}

func TestSinglePointOnCircle(t *testing.T) {
	d := centeredDetector(t)

	// (1000, 0) is exactly one radius from the bin at the origin, so that
	// bin collects the kernel's peak value 1/step
	res := d.Detect([]Point{{X: 1000, Y: 0}})
	test.That(t, res.X, test.ShouldEqual, 0)
	test.That(t, res.Y, test.ShouldEqual, 0)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.01, 1e-12)
}

func TestPointInsideSupport(t *testing.T) {
	d := centeredDetector(t)

	// (1050, 0) is 50 mils off a circle centered at the origin, but the
	// candidate at (100, -300) passes closer still: distance sqrt(992500),
	// under 4 mils off the nominal radius
	res := d.Detect([]Point{{X: 1050, Y: 0}})
	test.That(t, res.X, test.ShouldEqual, 100)
	test.That(t, res.Y, test.ShouldEqual, -300)
	want := (1.0 - (1000.0-math.Sqrt(992500.0))/100.0) / 100.0
	test.That(t, res.Weight, test.ShouldAlmostEqual, want, 1e-12)
}

func TestTieBreakFirstWins(t *testing.T) {
	// a single voting row: centers (0, 0) and (100, 0) both see (1050, 0)
	// at 50 mils off the radius, and the bin scanned first keeps the peak
	d, err := NewCircleDetector(1000, Constraints{
		Step:   100,
		XLower: -500,
		XUpper: 500,
		YLower: 0,
		YUpper: 200,
	})
	test.That(t, err, test.ShouldBeNil)

	res := d.Detect([]Point{{X: 1050, Y: 0}})
	test.That(t, res.X, test.ShouldEqual, 0)
	test.That(t, res.Y, test.ShouldEqual, 0)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.005, 1e-12)
}

func TestPointNearRegionEdge(t *testing.T) {
	d := centeredDetector(t)

	// (1200, 0) is out of reach of the origin bin but exactly one radius
	// from the candidate at (200, 0)
	res := d.Detect([]Point{{X: 1200, Y: 0}})
	test.That(t, res.X, test.ShouldEqual, 200)
	test.That(t, res.Y, test.ShouldEqual, 0)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.01, 1e-12)
}

func TestPointOutsideSupport(t *testing.T) {
	d := centeredDetector(t)

	// (2000, 0) is more than radius + step from every candidate center,
	// so no bin receives a vote
	res := d.Detect([]Point{{X: 2000, Y: 0}})
	test.That(t, res, test.ShouldResemble, Result{})
}

func TestEmptyProfile(t *testing.T) {
	d := centeredDetector(t)
	test.That(t, d.Detect(nil), test.ShouldResemble, Result{})
	test.That(t, d.Detect([]Point{}), test.ShouldResemble, Result{})
}

func TestFourPointCircle(t *testing.T) {
	d := centeredDetector(t)

	// Quadrant points of the circle centered at the origin. The bottom
	// point (0, -1000) sits below the center and its vote window only
	// reaches one step above it, so three of the four points vote at the
	// origin bin.
	res := d.Detect([]Point{
		{X: 1000, Y: 0},
		{X: -1000, Y: 0},
		{X: 0, Y: 1000},
		{X: 0, Y: -1000},
	})
	test.That(t, res.X, test.ShouldEqual, 0)
	test.That(t, res.Y, test.ShouldEqual, 0)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.03, 1e-12)
}

func TestShiftedCircle(t *testing.T) {
	d := centeredDetector(t)

	// same circle translated to (200, 200)
	res := d.Detect([]Point{
		{X: 1200, Y: 200},
		{X: -800, Y: 200},
		{X: 200, Y: 1200},
		{X: 200, Y: -800},
	})
	test.That(t, res.X, test.ShouldEqual, 200)
	test.That(t, res.Y, test.ShouldEqual, 200)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.03, 1e-12)
}

func TestClampingAtRegionEdge(t *testing.T) {
	d, err := NewCircleDetector(1000, Constraints{
		Step:   100,
		XLower: 0,
		XUpper: 500,
		YLower: 0,
		YUpper: 500,
	})
	test.That(t, err, test.ShouldBeNil)

	// the vote window around (1000, 0) is clamped into the region; the
	// corner bin at (0, 0) is the in-region center closest to the circle
	res := d.Detect([]Point{{X: 1000, Y: 0}})
	test.That(t, res.X, test.ShouldEqual, 0)
	test.That(t, res.Y, test.ShouldEqual, 0)
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.01, 1e-12)
}

func TestPeakEqualsMaxBin(t *testing.T) {
	d := centeredDetector(t)

	res := d.Detect([]Point{
		{X: 1200, Y: 200},
		{X: -800, Y: 200},
		{X: 200, Y: 1200},
		{X: 950, Y: 100},
	})
	test.That(t, res.Weight, test.ShouldEqual, mat.Max(d.bins))
}

func TestFarPointContributesNothing(t *testing.T) {
	d := centeredDetector(t)

	circle := []Point{{X: 1000, Y: 0}, {X: 0, Y: 1000}}
	want := d.Detect(circle)

	got := d.Detect(append(circle, Point{X: 50000, Y: 50000}))
	test.That(t, got, test.ShouldResemble, want)
}

func TestDeterminism(t *testing.T) {
	profile := []Point{
		{X: 1000, Y: 0},
		{X: 1050, Y: -30},
		{X: -980, Y: 40},
		{X: 10, Y: 990},
	}

	d1 := centeredDetector(t)
	d2 := centeredDetector(t)

	first := d1.Detect(profile)

	// repeated calls on one detector are bitwise identical, and a second
	// detector built from the same parameters agrees
	test.That(t, d1.Detect(profile), test.ShouldResemble, first)
	test.That(t, d2.Detect(profile), test.ShouldResemble, first)
	test.That(t, d2.Detect(profile), test.ShouldResemble, first)
}

func TestDetectorIndependence(t *testing.T) {
	d1 := centeredDetector(t)
	d2 := centeredDetector(t)

	// a detect on one instance does not disturb another
	d1.Detect([]Point{{X: 1050, Y: 0}})
	res := d2.Detect([]Point{{X: 1000, Y: 0}})
	test.That(t, res.Weight, test.ShouldAlmostEqual, 0.01, 1e-12)
}
