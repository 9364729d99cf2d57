package media

import (
	"bytes"
	"time"

	"github.com/disintegration/imaging"

	"media-scanner/internal/imagebuf"
	"media-scanner/internal/metrics"
	"media-scanner/internal/scanerr"
)

// resolveFormat picks the concrete output format for img.
func resolveFormat(f OutputFormat, img *imagebuf.Image) OutputFormat {
	switch f {
	case OutputJPEG, OutputPNG:
		return f
	}
	if img.HasAlpha {
		return OutputPNG
	}
	return OutputJPEG
}

// encodeThumbnail compresses img and stores the bytes in img.Encoded. PNG
// output is grayscale for single channel images and RGB(A) otherwise; JPEG
// drops alpha.
func encodeThumbnail(img *imagebuf.Image, spec ThumbnailSpec) (Thumbnail, error) {
	format := resolveFormat(spec.Format, img)
	start := time.Now()

	src, err := img.ToImage()
	if err != nil {
		return Thumbnail{}, err
	}

	var buf bytes.Buffer
	switch format {
	case OutputPNG:
		err = imaging.Encode(&buf, src, imaging.PNG)
	default:
		err = imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(spec.quality()))
	}
	if err != nil {
		metrics.ThumbnailsTotal.WithLabelValues(string(format), "error").Inc()
		return Thumbnail{}, scanerr.Wrap(scanerr.KindIO, "thumbnail: encode "+string(format), err)
	}

	img.Encoded = buf.Bytes()
	metrics.ThumbnailEncodeDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	metrics.ThumbnailBytes.WithLabelValues(string(format)).Observe(float64(len(img.Encoded)))
	metrics.ThumbnailsTotal.WithLabelValues(string(format), "success").Inc()

	mime := "image/jpeg"
	if format == OutputPNG {
		mime = "image/png"
	}
	return Thumbnail{
		Width:    img.Width,
		Height:   img.Height,
		Format:   format,
		MimeType: mime,
		Bytes:    len(img.Encoded),
		Data:     img.Encoded,
	}, nil
}
