package preprocess

import (
	"image"
	"math"
	"sort"
)

// RotatedRect is a rectangle of arbitrary orientation.
// Angle is the direction of one of its edges in degrees, measured
// counter-clockwise from the x axis with y pointing up, normalized to [-90, 0).
type RotatedRect struct {
	CenterX, CenterY float64
	Width, Height    float64
	Angle            float64
}

// CorrectionAngle turns the angle of a bounding rectangle into the rotation
// that makes it axis aligned. Rectangles tilted past 45 degrees are treated
// as closer to vertical.
func CorrectionAngle(theta float64) float64 {
	if theta < -45 {
		return -(90 + theta)
	}
	return -theta
}

// foregroundExtremes returns the leftmost and rightmost dark pixel of every
// row. Their convex hull equals the hull of all dark pixels.
func foregroundExtremes(g *image.Gray, threshold uint8) []image.Point {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var pts []image.Point
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		left := -1
		for x, v := range row {
			if v <= threshold {
				left = x
				break
			}
		}
		if left < 0 {
			continue
		}
		right := left
		for x := w - 1; x > left; x-- {
			if row[x] <= threshold {
				right = x
				break
			}
		}
		pts = append(pts, image.Pt(left, y))
		if right != left {
			pts = append(pts, image.Pt(right, y))
		}
	}
	return pts
}

// ConvexHull returns the hull of pts in counter-clockwise order (image
// coordinates) using the monotone chain algorithm. Collinear points are dropped.
func ConvexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, len(pts))
		copy(out, pts)
		if len(out) == 2 && out[0] == out[1] {
			out = out[:1]
		}
		return out
	}

	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// MinAreaRect finds the rectangle of minimum area enclosing pts by testing
// every hull edge as a rectangle side.
func MinAreaRect(pts []image.Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{Angle: -90}
	case 1:
		return RotatedRect{CenterX: float64(hull[0].X), CenterY: float64(hull[0].Y), Angle: -90}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		p, q := hull[i], hull[(i+1)%n]
		dx, dy := float64(q.X-p.X), float64(q.Y-p.Y)
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, h := range hull {
			u := float64(h.X)*ux + float64(h.Y)*uy
			v := float64(h.X)*vx + float64(h.Y)*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		width, height := maxU-minU, maxV-minV
		area := width * height
		if area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				CenterX: cu*ux + cv*vx,
				CenterY: cu*uy + cv*vy,
				Width:   width,
				Height:  height,
				// flip y so the angle reads counter-clockwise
				Angle: normalizeAngle(math.Atan2(-dy, dx) * 180 / math.Pi),
			}
		}
	}
	return best
}

// normalizeAngle folds an edge direction into [-90, 0). Rectangle edges are
// perpendicular so the angle only matters modulo 90 degrees.
func normalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 90)
	if a >= 0 {
		a -= 90
	}
	return a
}
