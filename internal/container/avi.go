package container

import (
	"io"
	"strings"

	"media-scanner/internal/bytebuf"
	"media-scanner/internal/scanerr"
)

// VideoInfo is the container-level metadata of an AVI file. Frames are never
// decoded.
type VideoInfo struct {
	Width         int
	Height        int
	Streams       int
	TotalFrames   int
	FramePeriodUS int
	FrameRate     float64
	VideoCodec    string
	AudioCodec    string
	DurationMS    int64
	Truncated     bool
}

// ParseAVI reads the main and stream headers of a RIFF AVI file.
func ParseAVI(r io.ReadSeeker, size int64, buf *bytebuf.Buffer, blockSize int) (*VideoInfo, error) {
	w := NewWalker(r, size, buf, blockSize)
	if err := w.Open(); err != nil {
		return nil, err
	}
	if w.Magic != magicRIFF || w.Form != formAVI {
		return nil, scanerr.Errorf(scanerr.KindUnsupported, "avi", "not an AVI file (%s %q)", w.Magic, w.Form)
	}

	info := &VideoInfo{}
	haveMain := false
	w.HandleList("hdrl", func(h ChunkHeader, b *bytebuf.Buffer) error {
		return eachSubchunk(b, int64(h.Size)-4, false, func(id bytebuf.FourCC, size int64) error {
			switch id.String() {
			case "avih":
				if size < 40 {
					return scanerr.Errorf(scanerr.KindMalformed, "avi: avih", "chunk is %d bytes", size)
				}
				haveMain = true
				info.readMain(b)
			case "LIST":
				if size < 4 || b.FourCC().String() != "strl" {
					return nil
				}
				return info.readStream(b, size-4)
			}
			return nil
		})
	})

	if err := w.Walk(); err != nil {
		return nil, err
	}
	if !haveMain {
		return nil, scanerr.New(scanerr.KindMalformed, "avi", "missing avih header")
	}
	info.Truncated = w.Truncated
	if info.FrameRate == 0 && info.FramePeriodUS > 0 {
		info.FrameRate = 1e6 / float64(info.FramePeriodUS)
	}
	if info.FrameRate > 0 {
		info.DurationMS = int64(float64(info.TotalFrames) * 1000 / info.FrameRate)
	}
	return info, nil
}

func (v *VideoInfo) readMain(b *bytebuf.Buffer) {
	v.FramePeriodUS = int(b.U32LE())
	b.Next(12) // max bytes per sec, padding granularity, flags
	v.TotalFrames = int(b.U32LE())
	b.Next(4) // initial frames
	v.Streams = int(b.U32LE())
	b.Next(4) // suggested buffer size
	v.Width = int(b.U32LE())
	v.Height = int(b.U32LE())
}

// readStream parses one strl list: a strh header and its strf format.
func (v *VideoInfo) readStream(b *bytebuf.Buffer, n int64) error {
	var kind string
	return eachSubchunk(b, n, false, func(id bytebuf.FourCC, size int64) error {
		switch id.String() {
		case "strh":
			if size < 8 {
				return nil
			}
			kind = b.FourCC().String()
			handler := strings.TrimRight(b.FourCC().String(), " \x00")
			if kind != "vids" {
				return nil
			}
			if v.VideoCodec == "" {
				v.VideoCodec = handler
			}
			if size >= 28 {
				b.Next(12) // flags, priority, language, initial frames
				scale, rate := b.U32LE(), b.U32LE()
				if scale > 0 && rate > 0 && v.FrameRate == 0 {
					v.FrameRate = float64(rate) / float64(scale)
				}
			}
		case "strf":
			switch {
			case kind == "auds" && size >= 2 && v.AudioCodec == "":
				v.AudioCodec = wavCodec(b.U16LE())
			case kind == "vids" && size >= 20:
				// BITMAPINFOHEADER compression overrides a blank handler.
				b.Next(16)
				if c := strings.TrimRight(b.FourCC().String(), " \x00"); c != "" && v.VideoCodec == "" {
					v.VideoCodec = c
				}
			}
		}
		return nil
	})
}
