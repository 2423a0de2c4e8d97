package marker

import "math"

type point struct {
	x, y float64
}

// cubicBezier evaluates the curve from p0 to p3 with control points p1, p2
// at parameter t in [0, 1].
func cubicBezier(p0, p1, p2, p3 point, t float64) point {
	u := 1 - t
	return point{
		x: u*u*u*p0.x + 3*u*u*t*p1.x + 3*u*t*t*p2.x + t*t*t*p3.x,
		y: u*u*u*p0.y + 3*u*u*t*p1.y + 3*u*t*t*p2.y + t*t*t*p3.y,
	}
}

const (
	bezierSteps = 32
	arcSteps    = 64
)

// pinOutline flattens the tapered pin silhouette into a closed polygon:
// bottom tip, cubic Bezier up the left side to the circle's left tangent
// point, a semicircular arc across the top, and a mirrored Bezier back down
// to the tip.
func pinOutline(cx, cy, r, bottomY float64) []point {
	tip := point{cx, bottomY}
	left := point{cx - r, cy}
	right := point{cx + r, cy}

	outline := make([]point, 0, 2*bezierSteps+arcSteps+2)

	// Left side: tip up to the circle edge, pulled in towards the circle.
	cp1 := point{cx, bottomY - r*0.7}
	cp2 := point{cx - r, cy + r*0.6}
	for i := 0; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		outline = append(outline, cubicBezier(tip, cp1, cp2, left, t))
	}

	// Top semicircle from the left tangent point over the apex to the right.
	// Image coordinates grow downward, so the upper half spans 180..360
	// degrees with angles measured clockwise from 3 o'clock.
	for i := 1; i < arcSteps; i++ {
		theta := math.Pi + float64(i)/arcSteps*math.Pi
		outline = append(outline, point{cx + r*math.Cos(theta), cy + r*math.Sin(theta)})
	}

	// Right side: circle edge back down to the tip.
	cp1 = point{cx + r, cy + r*0.6}
	cp2 = point{cx, bottomY - r*0.7}
	for i := 0; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		outline = append(outline, cubicBezier(right, cp1, cp2, tip, t))
	}

	return outline
}

// pointInPolygon reports containment using the even-odd ray casting rule.
func pointInPolygon(x, y float64, poly []point) bool {
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.y > y) != (pj.y > y) &&
			x < (pj.x-pi.x)*(y-pi.y)/(pj.y-pi.y)+pi.x {
			inside = !inside
		}
		j = i
	}
	return inside
}
