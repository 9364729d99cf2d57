// Package resample implements area-weighted image resizing in 19.12 fixed
// point, with letterbox padding and EXIF orientation applied on output.
//
// Each destination pixel is the average of every source pixel its footprint
// overlaps, weighted by the overlapping area. When the accumulated sums no
// longer fit in a Fixed the pixel is recomputed with the same weights in
// float64.
package resample

import (
	"math"

	"media-scanner/internal/imagebuf"
	"media-scanner/internal/logging"
	"media-scanner/internal/scanerr"
)

// Resize returns src scaled according to opts. When the output would be
// identical to src the result aliases src's pixels instead of copying them;
// callers must release the result before src in that case.
func Resize(src *imagebuf.Image, opts Options) (*imagebuf.Image, error) {
	if src == nil || !src.Allocated() {
		return nil, scanerr.New(scanerr.KindUnallocated, "resample", "source pixels not allocated")
	}
	plan, err := ComputePlan(src.Width, src.Height, src.Orientation, opts)
	if err != nil {
		return nil, err
	}
	if plan.Identity() {
		return imagebuf.AliasOf(src), nil
	}

	hasAlpha := src.HasAlpha || (plan.Padded() && opts.Background == nil)
	channels := src.Channels
	if hasAlpha && !src.HasAlpha {
		channels++
	}

	dst := imagebuf.New(plan.OutWidth, plan.OutHeight, channels, hasAlpha)
	if err := dst.Allocate(); err != nil {
		return nil, err
	}
	if plan.Padded() && opts.Background != nil {
		pix := dst.Pixels()
		bg := *opts.Background
		for i := range pix {
			pix[i] = bg
		}
	}

	r := resampler{src: src, dst: dst, plan: plan, alpha: src.HasAlpha}
	r.run()
	if r.fallbacks > 0 {
		logging.Debug("resample: %d pixels of %dx%d -> %dx%d recomputed in floating point",
			r.fallbacks, plan.SrcWidth, plan.SrcHeight, plan.OutWidth, plan.OutHeight)
		if opts.OnFallback != nil {
			opts.OnFallback()
		}
	}
	return dst, nil
}

type resampler struct {
	src   *imagebuf.Image
	dst   *imagebuf.Image
	plan  Plan
	alpha bool

	fallbacks int
}

// span is one source cell overlapped by a destination pixel.
type span struct {
	idx    int
	weight Fixed
}

func (r *resampler) run() {
	p := r.plan
	wScale := Div(FromInt(p.SrcWidth), FromInt(p.InnerWidth))
	hScale := Div(FromInt(p.SrcHeight), FromInt(p.InnerHeight))

	// The x spans are the same for every row.
	xs := make([][]span, p.InnerWidth)
	for x := range xs {
		xs[x] = spans(Mul(FromInt(x), wScale), Mul(FromInt(x+1), wScale), p.SrcWidth)
	}

	srcPix := r.src.Pixels()
	dstPix := r.dst.Pixels()
	for y := 0; y < p.InnerHeight; y++ {
		ys := spans(Mul(FromInt(y), hScale), Mul(FromInt(y+1), hScale), p.SrcHeight)
		for x := 0; x < p.InnerWidth; x++ {
			px, ok := r.fixedPixel(srcPix, xs[x], ys)
			if !ok {
				px = r.floatPixel(srcPix, xs[x], ys)
				r.fallbacks++
			}
			ox, oy := p.Orientation.Map(x+p.PadX, y+p.PadY, p.Width, p.Height)
			dstPix[oy*p.OutWidth+ox] = px
		}
	}
}

// spans lists the source cells covering [s1, s2) with their fractional
// overlap. Indexes are clamped to the source edge.
func spans(s1, s2 Fixed, limit int) []span {
	var out []span
	s := s1
	for s < s2 {
		var portion Fixed
		switch {
		case s.Floor() == s1.Floor():
			portion = one - (s - s.Floor())
			if portion > s2-s1 {
				portion = s2 - s1
			}
			s = s.Floor()
		case s == s2.Floor():
			portion = s2 - s2.Floor()
		default:
			portion = one
		}
		out = append(out, span{idx: min(s.Int(), limit-1), weight: portion})
		s += one
	}
	if len(out) == 0 {
		// Footprint below fixed-point resolution.
		out = append(out, span{idx: min(s1.Int(), limit-1), weight: one})
	}
	return out
}

func (r *resampler) fixedPixel(srcPix []uint32, xs, ys []span) (uint32, bool) {
	var red, green, blue, alpha, spixels int64
	w := r.plan.SrcWidth
	for _, sy := range ys {
		row := srcPix[sy.idx*w : (sy.idx+1)*w]
		for _, sx := range xs {
			pc := Mul(sx.weight, sy.weight)
			cr, cg, cb, ca := imagebuf.Unpack(row[sx.idx])
			red += int64(Mul(FromInt(int(cr)), pc))
			green += int64(Mul(FromInt(int(cg)), pc))
			blue += int64(Mul(FromInt(int(cb)), pc))
			if r.alpha {
				alpha += int64(Mul(FromInt(int(ca)), pc))
			}
			spixels += int64(pc)
		}
	}
	if red > math.MaxInt32 || green > math.MaxInt32 || blue > math.MaxInt32 ||
		alpha > math.MaxInt32 || spixels > math.MaxInt32 {
		return 0, false
	}
	if spixels == 0 {
		// Weights below fixed-point resolution.
		return 0, false
	}

	// Divide by the total weight directly; a 12-bit reciprocal loses most
	// of its precision once a pixel covers more than a few dozen sources.
	scale := func(v int64) uint8 {
		c := Fixed((v << fracBits) / spixels)
		if c > FromInt(255) {
			c = FromInt(255)
		}
		if c < 0 {
			c = 0
		}
		return uint8(c.Int())
	}
	a := uint8(255)
	if r.alpha {
		a = scale(alpha)
	}
	return imagebuf.Pack(scale(red), scale(green), scale(blue), a), true
}

// floatPixel repeats fixedPixel with float64 accumulators.
func (r *resampler) floatPixel(srcPix []uint32, xs, ys []span) uint32 {
	var red, green, blue, alpha, spixels float64
	w := r.plan.SrcWidth
	for _, sy := range ys {
		yw := sy.weight.Float()
		row := srcPix[sy.idx*w : (sy.idx+1)*w]
		for _, sx := range xs {
			pc := sx.weight.Float() * yw
			cr, cg, cb, ca := imagebuf.Unpack(row[sx.idx])
			red += float64(cr) * pc
			green += float64(cg) * pc
			blue += float64(cb) * pc
			if r.alpha {
				alpha += float64(ca) * pc
			}
			spixels += pc
		}
	}
	if spixels == 0 {
		return imagebuf.Pack(0, 0, 0, 255)
	}
	scale := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Floor(v/spixels))))
	}
	a := uint8(255)
	if r.alpha {
		a = scale(alpha)
	}
	return imagebuf.Pack(scale(red), scale(green), scale(blue), a)
}
