// Package render holds raster effects shared by the composer and the UI.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// ShadowOptions configures a drop shadow.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// TextShadowOptions is a small, tight shadow that keeps light text readable
// on bright photos.
func TextShadowOptions() ShadowOptions {
	return ShadowOptions{
		Radius:  2,
		Offset:  image.Pt(2, 2),
		Opacity: 0.6,
	}
}

// Scaled returns o with radius and offset multiplied by scale, so a shadow
// specified in points matches a raster rendered at that scale.
func (o ShadowOptions) Scaled(scale float64) ShadowOptions {
	if scale <= 0 || scale == 1 {
		return o
	}
	return ShadowOptions{
		Radius:  int(math.Round(float64(o.Radius) * scale)),
		Offset:  image.Pt(int(math.Round(float64(o.Offset.X)*scale)), int(math.Round(float64(o.Offset.Y)*scale))),
		Opacity: o.Opacity,
	}
}

// ShadowResult is the output of ApplyShadow.
type ShadowResult struct {
	// Image holds the shadow with the source drawn over it, zero based.
	Image *image.RGBA
	// Offset is where the source's top-left corner ended up in Image.
	Offset image.Point
}

// ApplyShadow returns img composited over a blurred copy of its alpha mask.
// The canvas grows to hold the shadow.
func ApplyShadow(img *image.RGBA, opts ShadowOptions) ShadowResult {
	if img == nil {
		return ShadowResult{}
	}
	if img.Bounds().Empty() || opts.Opacity <= 0 {
		return ShadowResult{Image: img}
	}
	opacity := math.Min(opts.Opacity, 1)
	radius := max(opts.Radius, 0)

	src := img.Bounds()
	padded := src.Inset(-radius)
	shadow := padded.Add(opts.Offset)
	union := src.Union(shadow)

	mask := alphaMask(img, padded)
	blurred := boxBlur(mask, radius)

	dst := image.NewRGBA(union.Sub(union.Min))
	if a := uint8(opacity*255 + 0.5); a > 0 {
		ink := image.NewUniform(color.RGBA{A: a})
		draw.DrawMask(dst, shadow.Sub(union.Min), ink, image.Point{}, blurred, image.Point{}, draw.Over)
	}
	draw.Draw(dst, src.Sub(union.Min), img, src.Min, draw.Over)
	return ShadowResult{Image: dst, Offset: src.Min.Sub(union.Min)}
}

// DrawShadowed draws src onto dst with its top-left corner at at, with a
// shadow underneath.
func DrawShadowed(dst *image.RGBA, src *image.RGBA, at image.Point, opts ShadowOptions) {
	res := ApplyShadow(src, opts)
	if res.Image == nil {
		return
	}
	origin := at.Sub(res.Offset)
	draw.Draw(dst, res.Image.Bounds().Sub(res.Image.Bounds().Min).Add(origin), res.Image, res.Image.Bounds().Min, draw.Over)
}

// alphaMask copies the alpha channel of img into a zero-based mask covering
// bounds.
func alphaMask(img *image.RGBA, bounds image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(bounds.Sub(bounds.Min))
	r := img.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a := img.RGBAAt(x, y).A; a != 0 {
				mask.SetAlpha(x-bounds.Min.X, y-bounds.Min.Y, color.Alpha{A: a})
			}
		}
	}
	return mask
}

// boxBlur is a separable box blur using running prefix sums.
func boxBlur(src *image.Alpha, radius int) *image.Alpha {
	b := src.Bounds()
	out := image.NewAlpha(b)
	if radius <= 0 {
		copy(out.Pix, src.Pix)
		return out
	}
	w, h := b.Dx(), b.Dy()
	tmp := image.NewAlpha(b)

	sum := make([]int, max(w, h)+1)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			sum[x+1] = sum[x] + int(row[x])
		}
		for x := 0; x < w; x++ {
			lo, hi := max(x-radius, 0), min(x+radius, w-1)
			tmp.Pix[y*tmp.Stride+x] = uint8((sum[hi+1] - sum[lo]) / (hi - lo + 1))
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			sum[y+1] = sum[y] + int(tmp.Pix[y*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			lo, hi := max(y-radius, 0), min(y+radius, h-1)
			out.Pix[y*out.Stride+x] = uint8((sum[hi+1] - sum[lo]) / (hi - lo + 1))
		}
	}
	return out
}
