package media

import (
	"io"

	"github.com/bep/imagemeta"

	"media-scanner/internal/imagebuf"
	"media-scanner/internal/logging"
)

var exifFormats = map[Format]imagemeta.ImageFormat{
	FormatJPEG: imagemeta.JPEG,
	FormatTIFF: imagemeta.TIFF,
	FormatPNG:  imagemeta.PNG,
	FormatWebP: imagemeta.WebP,
}

// readOrientation returns the EXIF orientation of r, or OrientNormal when
// there is none. Metadata errors never fail the file.
func readOrientation(r io.ReadSeeker, format Format) imagebuf.Orientation {
	imf, ok := exifFormats[format]
	if !ok {
		return imagebuf.OrientNormal
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return imagebuf.OrientNormal
	}

	orientation := imagebuf.OrientNormal
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           r,
		ImageFormat: imf,
		Sources:     imagemeta.EXIF,
		HandleTag: func(ti imagemeta.TagInfo) error {
			if ti.Tag != "Orientation" {
				return nil
			}
			if o := imagebuf.Orientation(exifInt(ti.Value)); o.Valid() {
				orientation = o
			}
			return imagemeta.ErrStopWalking
		},
	})
	if err != nil {
		logging.Debug("exif: %s metadata unreadable: %v", format, err)
	}
	return orientation
}

func exifInt(v any) int {
	switch n := v.(type) {
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
