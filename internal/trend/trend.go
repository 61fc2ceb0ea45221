// Package trend fits reference curves to scatter data.
//
// Both estimators sort their input by x first and return nil ("no trend")
// instead of letting NaN or Inf reach the output.
package trend

import (
	"math"
	"sort"

	"car-market-lab/internal/domain"
)

// SamplePoints is the number of samples in a quadratic polyline.
const SamplePoints = 101

// sortedByX returns a copy of points ordered by x ascending.
// Points with a non-finite coordinate are dropped.
func sortedByX(points []domain.Point) []domain.Point {
	out := make([]domain.Point, 0, len(points))
	for _, p := range points {
		if finite(p.X) && finite(p.Y) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].X < out[j].X
	})
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Linear fits an ordinary least-squares line and returns exactly the two
// endpoints {minX, fit(minX)}, {maxX, fit(maxX)}.
// Returns nil for fewer than 2 points or when all x are equal.
func Linear(points []domain.Point) []domain.Point {
	pts := sortedByX(points)
	n := float64(len(pts))
	if len(pts) < 2 {
		return nil
	}

	minX, maxX := pts[0].X, pts[len(pts)-1].X
	if minX == maxX {
		return nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range pts {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	out := []domain.Point{
		{X: minX, Y: slope*minX + intercept},
		{X: maxX, Y: slope*maxX + intercept},
	}
	for _, p := range out {
		if !finite(p.Y) {
			return nil
		}
	}
	return out
}

// singularTolerance scales with n³, the magnitude of the normal-equation
// determinant when x is normalized to [-1, 1].
const singularTolerance = 1e-9

// Quadratic fits y = a·x² + b·x + c by solving the 3×3 normal equations with
// Cramer's rule and returns SamplePoints evenly spaced samples from minX to
// maxX inclusive.
//
// x is re-centred to the midpoint and scaled by the half-range before the
// power sums are taken; the fitted curve is the same, the sums stay in [-n, n].
// Returns nil for fewer than 3 distinct x values or a singular system.
func Quadratic(points []domain.Point) []domain.Point {
	pts := sortedByX(points)
	if len(pts) < 2 {
		return nil
	}
	if distinctX(pts) < 3 {
		return nil
	}

	minX, maxX := pts[0].X, pts[len(pts)-1].X
	mid := (minX + maxX) / 2
	half := (maxX - minX) / 2

	n := float64(len(pts))
	var s1, s2, s3, s4, sy, suy, su2y float64
	for _, p := range pts {
		u := (p.X - mid) / half
		u2 := u * u
		s1 += u
		s2 += u2
		s3 += u2 * u
		s4 += u2 * u2
		sy += p.Y
		suy += u * p.Y
		su2y += u2 * p.Y
	}

	// | s4 s3 s2 | |a|   | su2y |
	// | s3 s2 s1 | |b| = | suy  |
	// | s2 s1 n  | |c|   | sy   |
	det := det3(s4, s3, s2, s3, s2, s1, s2, s1, n)
	if math.Abs(det) <= singularTolerance*n*n*n {
		return nil
	}
	a := det3(su2y, s3, s2, suy, s2, s1, sy, s1, n) / det
	b := det3(s4, su2y, s2, s3, suy, s1, s2, sy, n) / det
	c := det3(s4, s3, su2y, s3, s2, suy, s2, s1, sy) / det

	out := make([]domain.Point, SamplePoints)
	for i := 0; i < SamplePoints; i++ {
		t := float64(i) / float64(SamplePoints-1)
		u := -1 + 2*t
		x := minX + (maxX-minX)*t
		if i == SamplePoints-1 {
			x = maxX
		}
		y := a*u*u + b*u + c
		if !finite(y) {
			return nil
		}
		out[i] = domain.Point{X: x, Y: y}
	}
	return out
}

// det3 returns the determinant of the row-major 3×3 matrix.
func det3(a11, a12, a13, a21, a22, a23, a31, a32, a33 float64) float64 {
	return a11*(a22*a33-a23*a32) -
		a12*(a21*a33-a23*a31) +
		a13*(a21*a32-a22*a31)
}

func distinctX(sorted []domain.Point) int {
	count := 0
	for i, p := range sorted {
		if i == 0 || p.X != sorted[i-1].X {
			count++
		}
	}
	return count
}
