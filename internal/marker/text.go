package marker

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawCount renders the member count centered in the pin head: a black
// outline pass first, then a white fill pass, so the digits stay readable
// against any wedge color.
func drawCount(img *image.RGBA, text string, geo pinGeometry, density float64) {
	scale := int(math.Round(textSizeDp * density / float64(basicfont.Face7x13.Height)))
	if scale < 1 {
		scale = 1
	}
	outlineW := int(math.Round(textOutlineWidthDp * density))
	if outlineW < 1 {
		outlineW = 1
	}

	mask := renderTextMask(text)
	w := mask.Bounds().Dx() * scale
	h := mask.Bounds().Dy() * scale
	x0 := int(geo.cx) - w/2
	y0 := int(geo.cy) - h/2

	for dy := -outlineW; dy <= outlineW; dy++ {
		for dx := -outlineW; dx <= outlineW; dx++ {
			if dx*dx+dy*dy > outlineW*outlineW {
				continue
			}
			blitMask(img, mask, scale, x0+dx, y0+dy, black)
		}
	}
	blitMask(img, mask, scale, x0, y0, white)
}

// renderTextMask draws the digits into a 1x alpha mask with the bitmap face;
// blitMask scales it up by integer replication.
func renderTextMask(text string) *image.Alpha {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	mask := image.NewAlpha(image.Rect(0, 0, width, face.Height))

	d := font.Drawer{
		Dst:  mask,
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)
	return mask
}

func blitMask(img *image.RGBA, mask *image.Alpha, scale, x0, y0 int, c color.RGBA) {
	bounds := mask.Bounds()
	for ty := 0; ty < bounds.Dy()*scale; ty++ {
		for tx := 0; tx < bounds.Dx()*scale; tx++ {
			if mask.AlphaAt(tx/scale, ty/scale).A > 0 {
				img.SetRGBA(x0+tx, y0+ty, c)
			}
		}
	}
}
