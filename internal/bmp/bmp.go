// Package bmp decodes Windows bitmaps into an imagebuf.Image.
//
// Uncompressed 1, 4, 8, 16, 24 and 32 bit images are supported, including
// BITFIELDS and ALPHABITFIELDS channel masks. RLE and embedded JPEG/PNG
// payloads, and OS/2 headers, are reported as unsupported.
package bmp

import (
	"fmt"
	"io"

	"media-scanner/internal/bytebuf"
	"media-scanner/internal/imagebuf"
	"media-scanner/internal/scanerr"
)

const (
	fileHeaderSize = 14

	compRGB            = 0
	compRLE8           = 1
	compRLE4           = 2
	compBitfields      = 3
	compJPEG           = 4
	compPNG            = 5
	compAlphaBitfields = 6

	maxPalette = 256
)

// Header is the parsed file and info header.
type Header struct {
	Width        int
	Height       int
	BitsPerPixel int
	Compression  uint32
	TopDown      bool
	HasAlpha     bool
	PixelOffset  uint32
	HeaderSize   uint32
	Colors       int // palette entries, 0 for direct colour
}

type bitfield struct {
	mask  uint32
	shift uint
	max   uint32
}

func newBitfield(mask uint32) bitfield {
	f := bitfield{mask: mask}
	if mask == 0 {
		return f
	}
	for mask&1 == 0 {
		f.shift++
		mask >>= 1
	}
	f.max = mask
	return f
}

// scale maps a masked sample onto 0..255.
func (f bitfield) scale(v uint32) uint8 {
	if f.mask == 0 {
		return 0
	}
	s := (v & f.mask) >> f.shift
	if f.max == 0xff {
		return uint8(s)
	}
	return uint8((uint64(s)*255 + uint64(f.max)/2) / uint64(f.max))
}

// Decoder holds the state of one decode. It is created by NewDecoder, which
// reads the headers, and used once.
type Decoder struct {
	h         Header
	buf       *bytebuf.Buffer
	r         io.Reader
	blockSize int

	pos     int64 // file offset of the buffer front
	palette []uint32
	fields  [4]bitfield // r, g, b, a
}

// NewDecoder reads the BMP headers. The buffer's window must start at the
// beginning of the file.
func NewDecoder(buf *bytebuf.Buffer, r io.Reader, blockSize int) (*Decoder, error) {
	if blockSize <= 0 {
		blockSize = bytebuf.DefaultBlockSize
	}
	d := &Decoder{buf: buf, r: r, blockSize: blockSize}
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	return d, nil
}

// Codec names the pixel encoding, e.g. "rgb24" or "bitfields16".
func (h Header) Codec() string {
	name := "rgb"
	switch h.Compression {
	case compBitfields:
		name = "bitfields"
	case compAlphaBitfields:
		name = "alphabitfields"
	}
	return fmt.Sprintf("%s%d", name, h.BitsPerPixel)
}

// Header returns the parsed header.
func (d *Decoder) Header() Header { return d.h }

// DecodeConfig reads only the headers.
func DecodeConfig(buf *bytebuf.Buffer, r io.Reader, blockSize int) (Header, error) {
	d, err := NewDecoder(buf, r, blockSize)
	if err != nil {
		return Header{}, err
	}
	return d.h, nil
}

// Decode reads a whole bitmap.
func Decode(buf *bytebuf.Buffer, r io.Reader, blockSize int) (*imagebuf.Image, error) {
	d, err := NewDecoder(buf, r, blockSize)
	if err != nil {
		return nil, err
	}
	return d.Decode()
}

func (d *Decoder) ensure(n int, what string) error {
	if err := d.buf.EnsureAvailable(n, d.r, d.blockSize); err != nil {
		return scanerr.Wrap(scanerr.KindInsufficientData, "bmp: "+what, err)
	}
	return nil
}

func (d *Decoder) consume(n int) {
	d.buf.Next(n)
	d.pos += int64(n)
}

func (d *Decoder) readHeader() error {
	if err := d.ensure(fileHeaderSize+4, "file header"); err != nil {
		return err
	}
	magic := d.buf.Next(2)
	if magic[0] != 'B' || magic[1] != 'M' {
		return scanerr.New(scanerr.KindUnsupported, "bmp", "not a BMP file")
	}
	d.buf.Next(8) // file size, reserved
	d.h.PixelOffset = d.buf.U32LE()
	d.h.HeaderSize = d.buf.U32LE()
	d.pos = fileHeaderSize + 4

	switch d.h.HeaderSize {
	case 12, 64:
		return scanerr.Errorf(scanerr.KindUnsupported, "bmp", "OS/2 header of %d bytes", d.h.HeaderSize)
	case 40, 52, 56, 108, 124:
	default:
		return scanerr.Errorf(scanerr.KindMalformed, "bmp", "info header of %d bytes", d.h.HeaderSize)
	}

	rest := int(d.h.HeaderSize) - 4
	if err := d.ensure(rest, "info header"); err != nil {
		return err
	}
	width := d.buf.I32LE()
	height := d.buf.I32LE()
	d.buf.Next(2) // planes
	d.h.BitsPerPixel = int(d.buf.U16LE())
	d.h.Compression = d.buf.U32LE()
	d.buf.Next(12) // image size, resolution
	colorsUsed := d.buf.U32LE()
	d.buf.Next(4) // important colours
	rest -= 36

	var masks [4]uint32
	if d.h.HeaderSize >= 52 {
		masks[0], masks[1], masks[2] = d.buf.U32LE(), d.buf.U32LE(), d.buf.U32LE()
		rest -= 12
	}
	if d.h.HeaderSize >= 56 {
		masks[3] = d.buf.U32LE()
		rest -= 4
	}
	d.buf.Next(rest)
	d.pos = fileHeaderSize + int64(d.h.HeaderSize)

	if width <= 0 || height == 0 || height == -1<<31 {
		return scanerr.Errorf(scanerr.KindMalformed, "bmp", "invalid dimensions %dx%d", width, height)
	}
	d.h.Width = int(width)
	d.h.Height = int(height)
	if height < 0 {
		d.h.TopDown = true
		d.h.Height = -d.h.Height
	}

	switch d.h.Compression {
	case compRGB, compBitfields, compAlphaBitfields:
	case compRLE8, compRLE4:
		return scanerr.Errorf(scanerr.KindUnsupported, "bmp", "RLE compression %d", d.h.Compression)
	case compJPEG, compPNG:
		return scanerr.Errorf(scanerr.KindUnsupported, "bmp", "compression %d", d.h.Compression)
	default:
		return scanerr.Errorf(scanerr.KindUnsupported, "bmp", "unknown compression %d", d.h.Compression)
	}

	switch d.h.BitsPerPixel {
	case 1, 4, 8:
		if d.h.Compression != compRGB {
			return scanerr.Errorf(scanerr.KindMalformed, "bmp", "compression %d with %d bpp", d.h.Compression, d.h.BitsPerPixel)
		}
		if colorsUsed > maxPalette {
			return scanerr.Errorf(scanerr.KindMalformed, "bmp", "palette of %d colours", colorsUsed)
		}
		d.h.Colors = int(colorsUsed)
		if d.h.Colors == 0 {
			d.h.Colors = 1 << d.h.BitsPerPixel
		}
	case 16, 32:
	case 24:
		if d.h.Compression != compRGB {
			return scanerr.Errorf(scanerr.KindMalformed, "bmp", "compression %d with 24 bpp", d.h.Compression)
		}
	default:
		return scanerr.Errorf(scanerr.KindUnsupported, "bmp", "%d bits per pixel", d.h.BitsPerPixel)
	}

	if d.h.Compression == compBitfields || d.h.Compression == compAlphaBitfields {
		if d.h.HeaderSize == 40 {
			n := 12
			if d.h.Compression == compAlphaBitfields {
				n = 16
			}
			if err := d.ensure(n, "bitfields"); err != nil {
				return err
			}
			masks[0], masks[1], masks[2] = d.buf.U32LE(), d.buf.U32LE(), d.buf.U32LE()
			masks[3] = 0
			if n == 16 {
				masks[3] = d.buf.U32LE()
			}
			d.pos += int64(n)
		}
		if masks[0] == 0 && masks[1] == 0 && masks[2] == 0 {
			return scanerr.New(scanerr.KindMalformed, "bmp", "empty bitfield masks")
		}
	} else {
		switch d.h.BitsPerPixel {
		case 16:
			masks = [4]uint32{0x7c00, 0x03e0, 0x001f, 0}
		case 32:
			masks = [4]uint32{0x00ff0000, 0x0000ff00, 0x000000ff, 0}
		}
	}
	if d.h.BitsPerPixel == 16 || d.h.BitsPerPixel == 32 {
		for i, m := range masks {
			d.fields[i] = newBitfield(m)
		}
		d.h.HasAlpha = masks[3] != 0
	}
	return nil
}

// Decode reads the palette and pixel rows.
func (d *Decoder) Decode() (*imagebuf.Image, error) {
	if d.h.Colors > 0 {
		if err := d.readPalette(); err != nil {
			return nil, err
		}
	}
	if err := d.skipToPixels(); err != nil {
		return nil, err
	}

	if stride := rowStride(d.h.Width, d.h.BitsPerPixel); stride > bytebuf.MaxLength {
		return nil, scanerr.Errorf(scanerr.KindMalformed, "bmp", "row of %d bytes exceeds limit of %d", stride, bytebuf.MaxLength)
	}

	channels := 3
	if d.h.HasAlpha {
		channels = 4
	}
	im := imagebuf.New(d.h.Width, d.h.Height, channels, d.h.HasAlpha)
	if err := im.Allocate(); err != nil {
		return nil, err
	}
	if err := d.readRows(im); err != nil {
		im.Release()
		return nil, err
	}
	return im, nil
}

func (d *Decoder) readPalette() error {
	n := d.h.Colors * 4
	if err := d.ensure(n, "palette"); err != nil {
		return err
	}
	d.palette = make([]uint32, d.h.Colors)
	for i := range d.palette {
		p := d.buf.Next(4)
		d.palette[i] = imagebuf.Pack(p[2], p[1], p[0], 0xff)
	}
	d.pos += int64(n)
	return nil
}

// skipToPixels drops any gap between the headers and the pixel offset.
func (d *Decoder) skipToPixels() error {
	off := int64(d.h.PixelOffset)
	if off < d.pos {
		return scanerr.Errorf(scanerr.KindMalformed, "bmp", "pixel offset %d inside headers ending at %d", off, d.pos)
	}
	if gap := off - d.pos; gap > 0 {
		if err := d.buf.Discard(gap, d.r); err != nil {
			return scanerr.Wrap(scanerr.KindInsufficientData, "bmp: pixel offset", err)
		}
		d.pos = off
	}
	return nil
}

func (d *Decoder) readRows(im *imagebuf.Image) error {
	w, h, bpp := d.h.Width, d.h.Height, d.h.BitsPerPixel
	stride := rowStride(w, bpp)
	// The last row may omit its padding.
	used := (w*bpp + 7) / 8

	pix := im.Pixels()
	for srcRow := 0; srcRow < h; srcRow++ {
		need := stride
		if srcRow == h-1 {
			need = used
		}
		if err := d.ensure(need, fmt.Sprintf("row %d", srcRow)); err != nil {
			return err
		}
		row := d.buf.Bytes()[:used]

		dstRow := h - 1 - srcRow
		if d.h.TopDown {
			dstRow = srcRow
		}
		out := pix[dstRow*w : (dstRow+1)*w]
		d.decodeRow(row, out)

		n := min(stride, d.buf.Len())
		d.consume(n)
	}
	return nil
}

// rowStride is the size of one row padded to 4 bytes.
func rowStride(width, bpp int) int {
	return ((width*bpp + 31) / 32) * 4
}

func (d *Decoder) index(i byte) uint32 {
	if int(i) < len(d.palette) {
		return d.palette[i]
	}
	// Out of range indexes render black rather than failing the file.
	return imagebuf.Pack(0, 0, 0, 0xff)
}

func (d *Decoder) decodeRow(row []byte, out []uint32) {
	switch d.h.BitsPerPixel {
	case 1:
		for x := range out {
			out[x] = d.index((row[x/8] >> (7 - uint(x%8))) & 1)
		}
	case 4:
		for x := range out {
			v := row[x/2]
			if x&1 == 0 {
				v >>= 4
			}
			out[x] = d.index(v & 0x0f)
		}
	case 8:
		for x := range out {
			out[x] = d.index(row[x])
		}
	case 24:
		for x := range out {
			out[x] = imagebuf.Pack(row[3*x+2], row[3*x+1], row[3*x], 0xff)
		}
	case 16, 32:
		for x := range out {
			var v uint32
			if d.h.BitsPerPixel == 16 {
				v = uint32(row[2*x]) | uint32(row[2*x+1])<<8
			} else {
				v = uint32(row[4*x]) | uint32(row[4*x+1])<<8 | uint32(row[4*x+2])<<16 | uint32(row[4*x+3])<<24
			}
			a := uint8(0xff)
			if d.fields[3].mask != 0 {
				a = d.fields[3].scale(v)
			}
			out[x] = imagebuf.Pack(d.fields[0].scale(v), d.fields[1].scale(v), d.fields[2].scale(v), a)
		}
	}
}
