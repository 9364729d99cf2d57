// Package imagebuf holds the decoded raster shared by the format decoders, the
// resampler and the thumbnail encoder.
//
// Pixels are packed one per uint32 as R | G<<8 | B<<16 | A<<24, row major,
// Width*Height entries. An Image either owns its pixel slice or aliases the
// pixels of another Image; the alias state exists only for the same-size
// thumbnail path, where copying would be wasted work.
package imagebuf

import (
	"image"
	"image/color"
	"sync"

	"media-scanner/internal/scanerr"
)

// maxPixels bounds Width*Height regardless of any configured budget.
const maxPixels = 1 << 30

// Image is one decoded raster.
type Image struct {
	Width    int
	Height   int
	Channels int // 1 gray, 2 gray+alpha, 3 RGB, 4 RGBA
	HasAlpha bool

	Orientation Orientation

	// Encoded holds the compressed thumbnail once the image has been encoded.
	Encoded []byte

	owned []uint32
	alias *Image
}

// New returns an unallocated image.
func New(width, height, channels int, hasAlpha bool) *Image {
	return &Image{
		Width:       width,
		Height:      height,
		Channels:    channels,
		HasAlpha:    hasAlpha,
		Orientation: OrientNormal,
	}
}

var pixelPool = sync.Pool{
	New: func() any { return new([]uint32) },
}

// Allocate gives the image an owned, zeroed pixel slice of Width*Height
// entries. Allocating twice is a no-op as long as the dimensions still match.
func (im *Image) Allocate() error {
	if im.Width <= 0 || im.Height <= 0 {
		return scanerr.Errorf(scanerr.KindMalformed, "imagebuf: allocate",
			"invalid dimensions %dx%d", im.Width, im.Height)
	}
	n := im.Width * im.Height
	if n/im.Width != im.Height || n > maxPixels {
		return scanerr.Errorf(scanerr.KindMalformed, "imagebuf: allocate",
			"dimensions %dx%d too large", im.Width, im.Height)
	}
	if im.alias != nil {
		im.alias = nil
	}
	if len(im.owned) == n {
		return nil
	}
	im.releaseOwned()

	// Pooled slices that are too small are dropped.
	if p := pixelPool.Get().(*[]uint32); cap(*p) >= n {
		pix := (*p)[:n]
		clear(pix)
		im.owned = pix
		return nil
	}
	im.owned = make([]uint32, n)
	return nil
}

// Allocated reports whether the image has pixels, owned or aliased.
func (im *Image) Allocated() bool {
	return im.Pixels() != nil
}

// IsAlias reports whether the pixels belong to another image.
func (im *Image) IsAlias() bool { return im.alias != nil }

// Pixels returns the packed pixel slice, or nil if none was allocated.
func (im *Image) Pixels() []uint32 {
	if im.alias != nil {
		return im.alias.Pixels()
	}
	return im.owned
}

// AliasOf returns an image that shares src's pixels without copying them.
// Releasing the alias never releases src.
func AliasOf(src *Image) *Image {
	root := src
	for root.alias != nil {
		root = root.alias
	}
	return &Image{
		Width:       src.Width,
		Height:      src.Height,
		Channels:    src.Channels,
		HasAlpha:    src.HasAlpha,
		Orientation: OrientNormal,
		alias:       root,
	}
}

// Release drops the pixels. Owned slices go back to the pool; an alias only
// forgets its source.
func (im *Image) Release() {
	if im.alias != nil {
		im.alias = nil
		return
	}
	im.releaseOwned()
}

func (im *Image) releaseOwned() {
	if im.owned == nil {
		return
	}
	p := im.owned[:0]
	im.owned = nil
	pixelPool.Put(&p)
}

// Pack builds a packed pixel.
func Pack(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// Unpack splits a packed pixel into its channels.
func Unpack(p uint32) (r, g, b, a uint8) {
	return uint8(p), uint8(p >> 8), uint8(p >> 16), uint8(p >> 24)
}

// At returns the pixel at (x, y). The image must be allocated.
func (im *Image) At(x, y int) uint32 {
	return im.Pixels()[y*im.Width+x]
}

// Set stores the pixel at (x, y). The image must be allocated.
func (im *Image) Set(x, y int, p uint32) {
	im.Pixels()[y*im.Width+x] = p
}

// FromImage converts the output of an external decoder.
func FromImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	channels, hasAlpha := 4, true
	switch s := src.(type) {
	case *image.Gray, *image.Gray16:
		channels, hasAlpha = 1, false
	case *image.YCbCr, *image.CMYK:
		channels, hasAlpha = 3, false
	case *image.Paletted:
		channels, hasAlpha = 3, false
		for _, c := range s.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				channels, hasAlpha = 4, true
				break
			}
		}
	}

	if o, ok := src.(interface{ Opaque() bool }); ok && hasAlpha && o.Opaque() {
		channels, hasAlpha = 3, false
	}

	im := New(w, h, channels, hasAlpha)
	if err := im.Allocate(); err != nil {
		return nil, err
	}
	pix := im.owned

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := s.Pix[y*s.Stride : y*s.Stride+w*4]
			out := pix[y*w : (y+1)*w]
			for x := range out {
				out[x] = Pack(row[4*x], row[4*x+1], row[4*x+2], row[4*x+3])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := s.Pix[y*s.Stride : y*s.Stride+w]
			out := pix[y*w : (y+1)*w]
			for x := range out {
				out[x] = Pack(row[x], row[x], row[x], 0xff)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				pix[y*w+x] = Pack(c.R, c.G, c.B, c.A)
			}
		}
	}
	return im, nil
}

// ToImage converts the image for an external encoder: *image.Gray for
// single channel images, *image.NRGBA otherwise.
func (im *Image) ToImage() (image.Image, error) {
	pix := im.Pixels()
	if pix == nil {
		return nil, scanerr.New(scanerr.KindUnallocated, "imagebuf: to image", "pixels not allocated")
	}
	rect := image.Rect(0, 0, im.Width, im.Height)

	if im.Channels == 1 && !im.HasAlpha {
		g := image.NewGray(rect)
		for i, p := range pix {
			g.Pix[i] = uint8(p)
		}
		return g, nil
	}

	n := image.NewNRGBA(rect)
	for i, p := range pix {
		r, g, b, a := Unpack(p)
		if !im.HasAlpha {
			a = 0xff
		}
		n.Pix[4*i] = r
		n.Pix[4*i+1] = g
		n.Pix[4*i+2] = b
		n.Pix[4*i+3] = a
	}
	return n, nil
}
