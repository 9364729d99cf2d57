package media

import (
	"fmt"
	"strconv"
	"strings"

	"media-scanner/internal/imagebuf"
	"media-scanner/internal/resample"
)

// OutputFormat is the encoding of a thumbnail.
type OutputFormat string

const (
	// OutputAuto picks PNG for thumbnails with alpha and JPEG otherwise.
	OutputAuto OutputFormat = "auto"
	// OutputJPEG encodes thumbnails as JPEG.
	OutputJPEG OutputFormat = "jpeg"
	// OutputPNG encodes thumbnails as PNG.
	OutputPNG OutputFormat = "png"
)

const (
	// MaxThumbnailSpecs bounds the number of thumbnails produced per image.
	MaxThumbnailSpecs = 8

	// DefaultQuality is the JPEG quality used when a spec does not set one.
	DefaultQuality = 90
)

// ThumbnailSpec is one requested thumbnail.
type ThumbnailSpec struct {
	Format OutputFormat

	// Width and Height of the thumbnail; zero derives it from the aspect ratio.
	Width  int
	Height int

	KeepAspect bool

	// Background fills letterbox bars, packed as imagebuf.Pack. Nil leaves
	// them transparent.
	Background *uint32

	// Quality is the JPEG quality, 1-100.
	Quality int
}

// String renders the spec in the form ParseThumbnailSpecs accepts.
func (s ThumbnailSpec) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d", s.Width, s.Height)
	if s.Format != "" && s.Format != OutputAuto {
		b.WriteString("," + string(s.Format))
	}
	if s.KeepAspect {
		b.WriteString(",keep")
	}
	if s.Background != nil {
		r, g, bl, a := imagebuf.Unpack(*s.Background)
		if a == 0xff {
			fmt.Fprintf(&b, ",bg=%02x%02x%02x", r, g, bl)
		} else {
			fmt.Fprintf(&b, ",bg=%02x%02x%02x%02x", r, g, bl, a)
		}
	}
	if s.Quality != 0 && s.Quality != DefaultQuality {
		fmt.Fprintf(&b, ",q=%d", s.Quality)
	}
	return b.String()
}

// resampleOptions converts the spec for the resampler.
func (s ThumbnailSpec) resampleOptions() resample.Options {
	return resample.Options{
		Width:      s.Width,
		Height:     s.Height,
		KeepAspect: s.KeepAspect,
		Background: s.Background,
	}
}

// quality returns the effective JPEG quality.
func (s ThumbnailSpec) quality() int {
	if s.Quality == 0 {
		return DefaultQuality
	}
	return s.Quality
}

// ParseThumbnailSpecs parses a list of specs separated by ';'. Each spec is
// WxH followed by optional comma separated options:
//
//	jpeg | png | auto   output format
//	keep                letterbox instead of stretching
//	bg=RRGGBB[AA]       letterbox colour
//	q=N                 JPEG quality, 1-100
//
// For example "320x240,keep,bg=000000;64x0,png".
func ParseThumbnailSpecs(s string) ([]ThumbnailSpec, error) {
	var specs []ThumbnailSpec
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(specs) == MaxThumbnailSpecs {
			return nil, fmt.Errorf("too many thumbnail specs (max %d)", MaxThumbnailSpecs)
		}
		spec, err := parseThumbnailSpec(part)
		if err != nil {
			return nil, fmt.Errorf("thumbnail spec %q: %w", part, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseThumbnailSpec(s string) (ThumbnailSpec, error) {
	fields := strings.Split(s, ",")
	spec := ThumbnailSpec{Format: OutputAuto, Quality: DefaultQuality}

	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(fields[0])), "x")
	if !ok {
		return spec, fmt.Errorf("size %q is not WxH", fields[0])
	}
	var err error
	if spec.Width, err = parseDimension(w); err != nil {
		return spec, err
	}
	if spec.Height, err = parseDimension(h); err != nil {
		return spec, err
	}

	for _, f := range fields[1:] {
		f = strings.ToLower(strings.TrimSpace(f))
		key, value, hasValue := strings.Cut(f, "=")
		switch {
		case f == string(OutputJPEG) || f == "jpg":
			spec.Format = OutputJPEG
		case f == string(OutputPNG):
			spec.Format = OutputPNG
		case f == string(OutputAuto):
			spec.Format = OutputAuto
		case f == "keep":
			spec.KeepAspect = true
		case hasValue && key == "bg":
			bg, err := parseColor(value)
			if err != nil {
				return spec, err
			}
			spec.Background = &bg
		case hasValue && key == "q":
			q, err := strconv.Atoi(value)
			if err != nil || q < 1 || q > 100 {
				return spec, fmt.Errorf("quality %q out of range 1-100", value)
			}
			spec.Quality = q
		default:
			return spec, fmt.Errorf("unknown option %q", f)
		}
	}
	return spec, nil
}

func parseDimension(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return n, nil
}

func parseColor(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return 0, fmt.Errorf("colour %q is not RRGGBB or RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("colour %q: %w", s, err)
	}
	a := uint8(0xff)
	if len(s) == 8 {
		a = uint8(v)
		v >>= 8
	}
	return imagebuf.Pack(uint8(v>>16), uint8(v>>8), uint8(v), a), nil
}
