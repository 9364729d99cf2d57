package resample

import (
	"media-scanner/internal/imagebuf"
	"media-scanner/internal/scanerr"
)

// Options describes one requested output size.
type Options struct {
	// Width and Height of the displayed output. A zero dimension is derived
	// from the source aspect ratio; both zero keeps the source size.
	Width  int
	Height int

	// KeepAspect letterboxes the source inside Width x Height instead of
	// stretching it.
	KeepAspect bool

	// Background is the packed fill colour for the letterbox bars. Nil fills
	// with transparent black.
	Background *uint32

	// OnFallback, if set, is called when the fixed-point accumulators
	// overflow and a pixel block is recomputed in floating point.
	OnFallback func()
}

// Plan is the geometry of one resize, computed once per call.
type Plan struct {
	SrcWidth, SrcHeight int

	// Width and Height of the destination before orientation is applied.
	Width, Height int

	// Inner rectangle receiving the resampled source, and its offset.
	InnerWidth, InnerHeight int
	PadX, PadY              int

	// Output raster dimensions, swapped for orientations 5 to 8.
	OutWidth, OutHeight int

	Orientation imagebuf.Orientation
}

// Padded reports whether the plan letterboxes the source.
func (p Plan) Padded() bool {
	return p.InnerWidth != p.Width || p.InnerHeight != p.Height
}

// Identity reports whether the plan leaves the source untouched.
func (p Plan) Identity() bool {
	return p.OutWidth == p.SrcWidth && p.OutHeight == p.SrcHeight &&
		p.Orientation == imagebuf.OrientNormal && !p.Padded()
}

// ComputePlan resolves opts against a srcW x srcH raster stored with
// orientation o.
func ComputePlan(srcW, srcH int, o imagebuf.Orientation, opts Options) (Plan, error) {
	if srcW <= 0 || srcH <= 0 {
		return Plan{}, scanerr.Errorf(scanerr.KindMalformed, "resample: plan",
			"invalid source size %dx%d", srcW, srcH)
	}
	if opts.Width < 0 || opts.Height < 0 {
		return Plan{}, scanerr.Errorf(scanerr.KindMalformed, "resample: plan",
			"invalid target size %dx%d", opts.Width, opts.Height)
	}
	if !o.Valid() {
		o = imagebuf.OrientNormal
	}

	// Displayed source size.
	dispW, dispH := srcW, srcH
	if o.Swaps() {
		dispW, dispH = srcH, srcW
	}

	outW, outH := opts.Width, opts.Height
	switch {
	case outW == 0 && outH == 0:
		outW, outH = dispW, dispH
	case outW == 0:
		outW = max(1, (dispW*outH+dispH/2)/dispH)
	case outH == 0:
		outH = max(1, (dispH*outW+dispW/2)/dispW)
	}

	if srcW > maxDimension || srcH > maxDimension || outW > maxDimension || outH > maxDimension {
		return Plan{}, scanerr.Errorf(scanerr.KindMalformed, "resample: plan",
			"size %dx%d to %dx%d out of fixed-point range", srcW, srcH, outW, outH)
	}

	p := Plan{
		SrcWidth:    srcW,
		SrcHeight:   srcH,
		Width:       outW,
		Height:      outH,
		OutWidth:    outW,
		OutHeight:   outH,
		Orientation: o,
	}
	if o.Swaps() {
		p.Width, p.Height = outH, outW
	}
	p.InnerWidth, p.InnerHeight = p.Width, p.Height

	if opts.KeepAspect {
		// Compare srcW/srcH with Width/Height without division.
		lhs := int64(srcW) * int64(p.Height)
		rhs := int64(p.Width) * int64(srcH)
		switch {
		case lhs > rhs:
			p.InnerHeight = int(ceilDiv(int64(p.Width)*int64(srcH), int64(srcW)))
			p.InnerHeight = min(max(p.InnerHeight, 1), p.Height)
			p.PadY = (p.Height - p.InnerHeight) / 2
		case lhs < rhs:
			p.InnerWidth = int(ceilDiv(int64(p.Height)*int64(srcW), int64(srcH)))
			p.InnerWidth = min(max(p.InnerWidth, 1), p.Width)
			p.PadX = (p.Width - p.InnerWidth) / 2
		}
	}
	return p, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
