package imagebuf

import (
	"image"
	"image/color"
	"testing"

	qt "github.com/frankban/quicktest"

	"media-scanner/internal/scanerr"
)

func TestPackUnpack(t *testing.T) {
	c := qt.New(t)

	p := Pack(1, 2, 3, 4)
	c.Assert(p, qt.Equals, uint32(0x04030201))
	r, g, b, a := Unpack(p)
	c.Assert([]uint8{r, g, b, a}, qt.DeepEquals, []uint8{1, 2, 3, 4})
}

func TestAllocate(t *testing.T) {
	c := qt.New(t)

	im := New(3, 2, 4, true)
	c.Assert(im.Allocated(), qt.IsFalse)
	c.Assert(im.Allocate(), qt.IsNil)
	c.Assert(im.Allocated(), qt.IsTrue)
	c.Assert(im.Pixels(), qt.HasLen, 6)

	im.Set(2, 1, Pack(9, 9, 9, 9))
	c.Assert(im.At(2, 1), qt.Equals, Pack(9, 9, 9, 9))
	c.Assert(im.Pixels()[5], qt.Equals, Pack(9, 9, 9, 9))

	im.Release()
	c.Assert(im.Allocated(), qt.IsFalse)

	// Pooled slices come back zeroed.
	again := New(2, 2, 4, true)
	c.Assert(again.Allocate(), qt.IsNil)
	for _, p := range again.Pixels() {
		c.Assert(p, qt.Equals, uint32(0))
	}
}

func TestAllocateInvalid(t *testing.T) {
	c := qt.New(t)

	for _, dims := range [][2]int{{0, 5}, {5, -1}, {1 << 20, 1 << 20}} {
		err := New(dims[0], dims[1], 3, false).Allocate()
		c.Assert(scanerr.Is(err, scanerr.KindMalformed), qt.IsTrue, qt.Commentf("%v", dims))
	}
}

func TestAlias(t *testing.T) {
	c := qt.New(t)

	src := New(2, 2, 3, false)
	c.Assert(src.Allocate(), qt.IsNil)
	src.Set(0, 0, Pack(10, 20, 30, 255))

	a := AliasOf(src)
	c.Assert(a.IsAlias(), qt.IsTrue)
	c.Assert(a.At(0, 0), qt.Equals, src.At(0, 0))

	// An alias of an alias points at the owner.
	aa := AliasOf(a)
	aa.Set(1, 1, 7)
	c.Assert(src.At(1, 1), qt.Equals, uint32(7))

	a.Release()
	aa.Release()
	c.Assert(a.Allocated(), qt.IsFalse)
	c.Assert(src.Allocated(), qt.IsTrue)
	c.Assert(src.At(0, 0), qt.Equals, Pack(10, 20, 30, 255))
}

func TestFromImage(t *testing.T) {
	c := qt.New(t)

	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.Pix = []uint8{0x10, 0xf0}
	im, err := FromImage(gray)
	c.Assert(err, qt.IsNil)
	c.Assert(im.Channels, qt.Equals, 1)
	c.Assert(im.HasAlpha, qt.IsFalse)
	c.Assert(im.Pixels(), qt.DeepEquals, []uint32{Pack(0x10, 0x10, 0x10, 0xff), Pack(0xf0, 0xf0, 0xf0, 0xff)})

	nrgba := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	nrgba.SetNRGBA(0, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	im, err = FromImage(nrgba)
	c.Assert(err, qt.IsNil)
	c.Assert(im.Channels, qt.Equals, 4)
	c.Assert(im.At(0, 1), qt.Equals, Pack(1, 2, 3, 4))

	rgba := image.NewRGBA(image.Rect(5, 5, 6, 6))
	rgba.SetRGBA(5, 5, color.RGBA{R: 100, G: 50, B: 0, A: 255})
	im, err = FromImage(rgba)
	c.Assert(err, qt.IsNil)
	c.Assert(im.At(0, 0), qt.Equals, Pack(100, 50, 0, 255))
	c.Assert(im.HasAlpha, qt.IsFalse)
	c.Assert(im.Channels, qt.Equals, 3)
}

func TestToImage(t *testing.T) {
	c := qt.New(t)

	im := New(2, 1, 3, false)
	_, err := im.ToImage()
	c.Assert(scanerr.Is(err, scanerr.KindUnallocated), qt.IsTrue)

	c.Assert(im.Allocate(), qt.IsNil)
	im.Set(0, 0, Pack(1, 2, 3, 0))
	out, err := im.ToImage()
	c.Assert(err, qt.IsNil)
	n := out.(*image.NRGBA)
	c.Assert(n.Pix[:4], qt.DeepEquals, []uint8{1, 2, 3, 0xff})

	g := New(1, 1, 1, false)
	c.Assert(g.Allocate(), qt.IsNil)
	g.Set(0, 0, Pack(77, 77, 77, 255))
	out, err = g.ToImage()
	c.Assert(err, qt.IsNil)
	c.Assert(out.(*image.Gray).Pix, qt.DeepEquals, []uint8{77})
}

func TestOrientationMap(t *testing.T) {
	c := qt.New(t)

	// 3x2 raster, top-left pixel.
	tests := []struct {
		o            Orientation
		wantX, wantY int
	}{
		{OrientNormal, 0, 0},
		{OrientMirrorH, 2, 0},
		{OrientRotate180, 2, 1},
		{OrientMirrorV, 0, 1},
		{OrientTranspose, 0, 0},
		{OrientRotate90, 1, 0},
		{OrientTransverse, 1, 2},
		{OrientRotate270, 0, 2},
	}
	for _, tt := range tests {
		c.Run(tt.o.String(), func(c *qt.C) {
			x, y := tt.o.Map(0, 0, 3, 2)
			c.Assert([2]int{x, y}, qt.Equals, [2]int{tt.wantX, tt.wantY})
			c.Assert(tt.o.Valid(), qt.IsTrue)
		})
	}

	c.Assert(Orientation(0).Valid(), qt.IsFalse)
	c.Assert(Orientation(9).String(), qt.Equals, "orientation(9)")
	c.Assert(OrientRotate90.Swaps(), qt.IsTrue)
	c.Assert(OrientRotate180.Swaps(), qt.IsFalse)
}

func TestOrientationMapIsPermutation(t *testing.T) {
	c := qt.New(t)

	const w, h = 4, 3
	for o := OrientNormal; o <= OrientRotate270; o++ {
		ow, oh := w, h
		if o.Swaps() {
			ow, oh = h, w
		}
		seen := make(map[[2]int]bool)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				ox, oy := o.Map(x, y, w, h)
				c.Assert(ox >= 0 && ox < ow && oy >= 0 && oy < oh, qt.IsTrue, qt.Commentf("%v (%d,%d)", o, x, y))
				seen[[2]int{ox, oy}] = true
			}
		}
		c.Assert(seen, qt.HasLen, w*h)
	}
}
