package calib

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// IntersectCircles returns the intersection points of two circles: empty when
// the circles are disjoint or one is nested inside the other, one point when
// they touch, two otherwise.
func IntersectCircles(x1, y1, r1, x2, y2, r2v float64) []r2.Point {
	d := math.Hypot(x1-x2, y1-y2)
	if d > r1+r2v {
		// Circles do not intersect.
		return nil
	}
	if d < math.Abs(r1-r2v) {
		// One circle is contained within the other.
		return nil
	}

	a := (r1*r1 - r2v*r2v + d*d) / (2.0 * d)
	h := math.Sqrt(r1*r1 - a*a)

	x3 := x1 + a*(x2-x1)/d
	y3 := y1 + a*(y2-y1)/d

	if h < 1e-10 {
		// Two circles touch at one point.
		return []r2.Point{{X: x3, Y: y3}}
	}

	return []r2.Point{
		{X: x3 + h*(y2-y1)/d, Y: y3 - h*(x2-x1)/d},
		{X: x3 - h*(y2-y1)/d, Y: y3 + h*(x2-x1)/d},
	}
}

// FitCircle fits a circle to the points with the modified least squares
// method of D. Umbach and K. Jones, "A Few Methods for Fitting Circles to
// Data", IEEE Transactions on Instrumentation and Measurement, 2000. The
// returned radius is the mean distance from the points to the fitted center.
func FitCircle(points []r2.Point) (r2.Point, float64, error) {
	if len(points) < 3 {
		return r2.Point{}, 0, errors.Errorf("circle fit needs at least 3 points, got %d", len(points))
	}

	var sumX, sumY float64
	var sumXX, sumXY, sumYY float64
	var sumXXX, sumXXY, sumXYY, sumYYY float64
	for _, p := range points {
		x, y := p.X, p.Y
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
		sumYY += y * y
		sumXXX += x * x * x
		sumXXY += x * x * y
		sumXYY += x * y * y
		sumYYY += y * y * y
	}

	n := float64(len(points))
	a := n*sumXX - sumX*sumX
	b := n*sumXY - sumX*sumY
	c := n*sumYY - sumY*sumY
	d := 0.5 * (n*sumXYY - sumX*sumYY + n*sumXXX - sumX*sumXX)
	e := 0.5 * (n*sumXXY - sumY*sumXX + n*sumYYY - sumY*sumYY)

	det := a*c - b*b
	if math.Abs(det) < 1e-15 {
		return r2.Point{}, 0, errors.New("circle fit is degenerate, points may be collinear")
	}

	center := r2.Point{
		X: (d*c - b*e) / det,
		Y: (a*e - b*d) / det,
	}

	sumR := 0.0
	for _, p := range points {
		sumR += math.Hypot(p.X-center.X, p.Y-center.Y)
	}
	return center, sumR / n, nil
}
