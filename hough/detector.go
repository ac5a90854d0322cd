package hough

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Constraints bound the region of interest searched for circle centers.
// Coordinates are in 1/1000 inches, the same units the scan head reports
// profile data in. Smaller step sizes increase result resolution.
type Constraints struct {
	Step   int `json:"step_size"`
	XLower int `json:"x_lower"`
	XUpper int `json:"x_upper"`
	YLower int `json:"y_lower"`
	YUpper int `json:"y_upper"`
}

// Point is a single sample of a laser profile, in 1/1000 inches. Brightness
// is carried through from the sensor layer; the transform ignores it.
type Point struct {
	X          int
	Y          int
	Brightness int
}

// Result is the candidate center with the greatest accumulated weight.
// Higher weights imply greater confidence that a circle was detected.
// A profile that produced no votes yields the zero Result.
type Result struct {
	Weight float64
	X      int
	Y      int
}

// gridAxis quantizes one axis of the search region into bins of width step,
// the k-th bin centered at lower + k*step.
type gridAxis struct {
	lower   int
	step    int
	count   int
	centers []float64
}

func newGridAxis(lower, upper, step int) gridAxis {
	count := (upper - lower) / step
	centers := make([]float64, count)
	c := float64(lower)
	for i := range centers {
		centers[i] = c
		c += float64(step)
	}
	return gridAxis{lower: lower, step: step, count: count, centers: centers}
}

// indexOf clamps rather than rejects: coordinates outside the region map to
// the nearest edge bin, so an out-of-region point still votes on whatever
// part of its window overlaps the region.
func (a gridAxis) indexOf(coord int) int {
	i := (coord - a.lower) / a.step
	if i < 0 {
		return 0
	}
	if i > a.count-1 {
		return a.count - 1
	}
	return i
}

func (a gridAxis) center(i int) float64 { return a.centers[i] }

// CircleDetector finds the most likely center of a circle of known radius in
// a laser profile. Each profile sample votes, weighted by a triangular kernel
// on its radial distance, into a grid of candidate centers; the best bin wins.
//
// The bin buffer is allocated once and reused, so a single detector must not
// be used from multiple goroutines at once. Distinct detectors are
// independent; construct one per worker.
type CircleDetector struct {
	radius int
	xAxis  gridAxis
	yAxis  gridAxis
	kernel distuv.Triangle
	bins   *mat.Dense
}

// NewCircleDetector returns a detector for circles of the given radius
// (1/1000 inches) searching the region described by c.
func NewCircleDetector(radius int, c Constraints) (*CircleDetector, error) {
	if radius <= 0 {
		return nil, errors.Errorf("radius must be positive, got %d", radius)
	}
	if c.Step <= 0 {
		return nil, errors.Errorf("step_size must be positive, got %d", c.Step)
	}
	if c.XLower >= c.XUpper {
		return nil, errors.Errorf("x range [%d, %d] is not increasing", c.XLower, c.XUpper)
	}
	if c.YLower >= c.YUpper {
		return nil, errors.Errorf("y range [%d, %d] is not increasing", c.YLower, c.YUpper)
	}
	if c.XUpper-c.XLower < c.Step || c.YUpper-c.YLower < c.Step {
		return nil, errors.Errorf("search region is narrower than one step (%d)", c.Step)
	}

	d := &CircleDetector{
		radius: radius,
		xAxis:  newGridAxis(c.XLower, c.XUpper, c.Step),
		yAxis:  newGridAxis(c.YLower, c.YUpper, c.Step),
		// symmetric triangular pdf: peak 1/step at the target radius,
		// support [radius-step, radius+step]
		kernel: distuv.NewTriangle(
			float64(radius-c.Step), float64(radius+c.Step), float64(radius), nil),
	}
	d.bins = mat.NewDense(d.yAxis.count, d.xAxis.count, nil)
	return d, nil
}

// Detect runs one transform over the profile and returns the peak. The
// profile is only read; an empty profile returns the zero Result.
func (d *CircleDetector) Detect(profile []Point) Result {
	var best Result

	d.bins.Zero()

	step := d.xAxis.step // X and Y share one step size
	radius := d.radius
	upperLim := float64((radius + step) * (radius + step))
	lowerLim := float64((radius - step) * (radius - step))

	for _, p := range profile {
		xStart := d.xAxis.indexOf(p.X - radius - step)
		xEnd := d.xAxis.indexOf(p.X + radius + step)
		yStart := d.yAxis.indexOf(p.Y - radius - step)
		// The window reaches only one step above each sample: the scan head
		// images surfaces from above, so a sampled arc sits above its center.
		yEnd := d.yAxis.indexOf(p.Y + step)

		for y := yStart; y < yEnd; y++ {
			cy := d.yAxis.center(y)
			dy := float64(p.Y) - cy
			for x := xStart; x < xEnd; x++ {
				cx := d.xAxis.center(x)
				dx := float64(p.X) - cx
				rSqr := dx*dx + dy*dy

				// outside the kernel's support; skip the square root
				if rSqr < lowerLim || rSqr > upperLim {
					continue
				}

				w := d.bins.At(y, x) + d.kernel.Prob(math.Sqrt(rSqr))
				d.bins.Set(y, x, w)
				if w > best.Weight {
					best.Weight = w
					best.X = int(cx)
					best.Y = int(cy)
				}
			}
		}
	}

	return best
}
