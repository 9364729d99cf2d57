package media

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"

	"github.com/deepteams/webp"
	"github.com/gen2brain/jpegn"
	"golang.org/x/image/tiff"

	"media-scanner/internal/scanerr"
)

// codec adapts an external decoder. Both functions read from the buffer's
// hand-off reader, so bytes already sniffed are not read twice.
type codec struct {
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

var codecs = map[Format]codec{
	FormatJPEG: {
		config: jpegn.DecodeConfig,
		decode: func(r io.Reader) (image.Image, error) { return jpegn.Decode(r) },
	},
	FormatPNG:  {config: png.DecodeConfig, decode: png.Decode},
	FormatGIF:  {config: gif.DecodeConfig, decode: gif.Decode},
	FormatWebP: {config: webp.DecodeConfig, decode: webp.Decode},
	FormatTIFF: {config: tiff.DecodeConfig, decode: tiff.Decode},
}

// codecError classifies an error returned by an external decoder.
func codecError(format Format, op string, err error) error {
	var se *scanerr.Error
	switch {
	case errors.As(err, &se):
		return scanerr.Wrap(se.Kind, string(format)+": "+op, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return scanerr.Wrap(scanerr.KindInsufficientData, string(format)+": "+op, err)
	case errors.Is(err, jpegn.ErrUnsupported):
		return scanerr.Wrap(scanerr.KindUnsupported, string(format)+": "+op, err)
	}
	var unsupported png.UnsupportedError
	if errors.As(err, &unsupported) {
		return scanerr.Wrap(scanerr.KindUnsupported, string(format)+": "+op, err)
	}
	return scanerr.Wrap(scanerr.KindMalformed, string(format)+": "+op, err)
}

// configHasAlpha guesses from a header whether the image carries alpha.
func configHasAlpha(cfg image.Config) bool {
	switch m := cfg.ColorModel.(type) {
	case color.Palette:
		for _, c := range m {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}
	switch cfg.ColorModel {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}
