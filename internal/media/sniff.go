package media

// Format is the container or codec identified from a file's leading bytes.
type Format string

const (
	FormatUnknown Format = ""
	FormatBMP     Format = "bmp"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatHEIF    Format = "heif"
	FormatAVIF    Format = "avif"
	FormatWAV     Format = "wav"
	FormatAIFF    Format = "aiff"
	FormatAVI     Format = "avi"
	FormatMP4     Format = "mp4"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOgg     Format = "ogg"
)

// sniffLen is how many bytes Sniff looks at.
const sniffLen = 32

// IsImage reports whether the format decodes to pixels.
func (f Format) IsImage() bool {
	switch f {
	case FormatBMP, FormatJPEG, FormatPNG, FormatGIF, FormatWebP, FormatTIFF, FormatHEIF, FormatAVIF:
		return true
	}
	return false
}

// Sniff identifies a file from its first bytes. Short input is fine; it
// simply matches fewer signatures.
func Sniff(header []byte) Format {
	has := func(off int, sig string) bool {
		return len(header) >= off+len(sig) && string(header[off:off+len(sig)]) == sig
	}

	switch {
	case has(0, "\xff\xd8\xff"):
		return FormatJPEG
	case has(0, "\x89PNG\r\n\x1a\n"):
		return FormatPNG
	case has(0, "GIF87a"), has(0, "GIF89a"):
		return FormatGIF
	case has(0, "BM"):
		return FormatBMP
	case has(0, "II*\x00"), has(0, "MM\x00*"):
		return FormatTIFF
	case has(0, "RIFF"):
		switch {
		case has(8, "WEBP"):
			return FormatWebP
		case has(8, "WAVE"):
			return FormatWAV
		case has(8, "AVI "):
			return FormatAVI
		}
	case has(0, "FORM") && (has(8, "AIFF") || has(8, "AIFC")):
		return FormatAIFF
	case has(4, "ftyp") && len(header) >= 12:
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return FormatHEIF
		case "avif", "avis":
			return FormatAVIF
		}
		return FormatMP4
	case has(0, "ID3"), len(header) >= 2 && header[0] == 0xff && header[1]&0xe0 == 0xe0:
		return FormatMP3
	case has(0, "fLaC"):
		return FormatFLAC
	case has(0, "OggS"):
		return FormatOgg
	}
	return FormatUnknown
}
