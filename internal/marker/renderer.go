// Package marker rasterizes map marker glyphs for location clusters: a
// teardrop pin whose circular head is split into equal colored wedges, one
// per cluster member, with the member count drawn on top.
package marker

import (
	"image"
	"image/color"
	"math"
	"strconv"
)

// Layout constants in density-independent units, scaled by the caller's
// display density at render time.
const (
	markerSizeDp       = 30.0
	borderWidthDp      = 1.0
	textSizeDp         = 14.0
	textOutlineWidthDp = 1.5
	heightFactor       = 1.5
)

// fallbackGray fills the pin when no member colors are supplied.
var fallbackGray = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
var black = color.RGBA{A: 255}

// Render draws the tapered cluster pin.
//
// The circular head is divided into len(colors) equal angular wedges starting
// at 12 o'clock and proceeding clockwise, in the caller-supplied order;
// callers pre-sort colors so repeated renders of the same cluster are
// visually stable. An empty colors slice falls back to a neutral gray fill.
// The count is drawn centered in the head as white digits with a black
// outline so it stays legible on any wedge color.
//
// Render is a pure function of its inputs.
func Render(colors []color.RGBA, count int, density float64) *image.RGBA {
	img, geo := newPinCanvas(density)

	fill := func(x, y float64) color.RGBA {
		if len(colors) == 0 {
			return fallbackGray
		}
		return wedgeColor(colors, x, y, geo.cx, geo.cy)
	}
	paintPin(img, geo, fill)

	drawCount(img, strconv.Itoa(count), geo, density)
	return img
}

// RenderPin draws the same silhouette filled with a single solid color and no
// count label. Single-member clusters use this plain pin; the multi-wedge
// glyph is reserved for real clusters.
func RenderPin(c color.RGBA, density float64) *image.RGBA {
	img, geo := newPinCanvas(density)
	paintPin(img, geo, func(x, y float64) color.RGBA { return c })
	return img
}

// pinGeometry carries the derived layout for one render.
type pinGeometry struct {
	width, height int
	cx, cy        float64
	r             float64
	border        float64
	outline       []point
}

func newPinCanvas(density float64) (*image.RGBA, pinGeometry) {
	markerSize := int(markerSizeDp * density)
	border := borderWidthDp * density

	width := markerSize
	height := int(float64(markerSize) * heightFactor)

	cx := float64(width) / 2
	cy := float64(markerSize) / 2
	radius := float64(markerSize)/2 - border
	r := radius + border/2
	bottomY := float64(height) - border

	geo := pinGeometry{
		width:  width,
		height: height,
		cx:     cx,
		cy:     cy,
		r:      r,
		border: border,
		outline: pinOutline(cx, cy, r, bottomY),
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), geo
}

// paintPin fills the silhouette with the given per-pixel color function and
// strokes the white border along the outline.
func paintPin(img *image.RGBA, geo pinGeometry, fill func(x, y float64) color.RGBA) {
	for py := 0; py < geo.height; py++ {
		for px := 0; px < geo.width; px++ {
			x, y := float64(px)+0.5, float64(py)+0.5
			if pointInPolygon(x, y, geo.outline) {
				img.SetRGBA(px, py, fill(x, y))
			}
		}
	}
	strokeOutline(img, geo.outline, geo.border)
}

// wedgeColor assigns a pixel to its angular wedge. Angles are measured
// clockwise from 12 o'clock to match the wedge layout, which starts the
// first wedge at the top of the circle.
func wedgeColor(colors []color.RGBA, x, y, cx, cy float64) color.RGBA {
	theta := math.Atan2(y-cy, x-cx) * 180 / math.Pi // clockwise, 0 at 3 o'clock
	a := math.Mod(theta+90+360, 360)

	step := 360.0 / float64(len(colors))
	idx := int(a / step)
	if idx >= len(colors) {
		idx = len(colors) - 1
	}
	return colors[idx]
}

// strokeOutline stamps a round brush along the polygon perimeter.
func strokeOutline(img *image.RGBA, poly []point, width float64) {
	brush := math.Max(width/2, 0.75)

	stamp := func(p point) {
		for dy := -brush; dy <= brush; dy++ {
			for dx := -brush; dx <= brush; dx++ {
				if dx*dx+dy*dy > brush*brush {
					continue
				}
				img.SetRGBA(int(p.x+dx), int(p.y+dy), white)
			}
		}
	}

	for i := 0; i < len(poly); i++ {
		a, b := poly[i], poly[(i+1)%len(poly)]
		dist := math.Hypot(b.x-a.x, b.y-a.y)
		steps := int(dist*2) + 1
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			stamp(point{a.x + (b.x-a.x)*t, a.y + (b.y-a.y)*t})
		}
	}
}
