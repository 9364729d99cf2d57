package container

import (
	"io"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"media-scanner/internal/bytebuf"
	"media-scanner/internal/logging"
	"media-scanner/internal/scanerr"
)

var (
	formWAVE = bytebuf.NewFourCC("WAVE")
	formAIFF = bytebuf.NewFourCC("AIFF")
	formAIFC = bytebuf.NewFourCC("AIFC")
	formAVI  = bytebuf.NewFourCC("AVI ")
)

// WAVE format tags.
const (
	FormatPCM        = 0x0001
	FormatADPCM      = 0x0002
	FormatFloat      = 0x0003
	FormatALaw       = 0x0006
	FormatMuLaw      = 0x0007
	FormatMP3        = 0x0055
	FormatExtensible = 0xfffe
)

// AudioInfo is the stream metadata of a WAV or AIFF file.
type AudioInfo struct {
	Container     string // "wav", "aiff" or "aifc"
	Format        uint16 // WAVE format tag; zero for AIFF
	Codec         string
	Channels      int
	SampleRate    int
	Bitrate       int // bits per second
	BlockAlign    int
	BitsPerSample int
	Samples       int64

	// AudioOffset and AudioSize locate the sample data in the file.
	AudioOffset int64
	AudioSize   int64

	DurationMS int64
	Truncated  bool
	Tags       map[string]string
}

// ParseAudio parses a WAV or AIFF file, chosen by its magic.
func ParseAudio(r io.ReadSeeker, size int64, buf *bytebuf.Buffer, blockSize int) (*AudioInfo, error) {
	w := NewWalker(r, size, buf, blockSize)
	if err := w.Open(); err != nil {
		return nil, err
	}
	switch {
	case w.Magic == magicRIFF && w.Form == formWAVE:
		return parseWAV(w)
	case w.Magic == magicFORM && (w.Form == formAIFF || w.Form == formAIFC):
		return parseAIFF(w)
	case w.Magic == magicFORM:
		return nil, scanerr.Errorf(scanerr.KindMalformed, "aiff", "form type %q is not AIFF or AIFC", w.Form)
	default:
		return nil, scanerr.Errorf(scanerr.KindUnsupported, "container", "%s form %q is not audio", w.Magic, w.Form)
	}
}

// ParseWAV parses a RIFF WAVE file.
func ParseWAV(r io.ReadSeeker, size int64, buf *bytebuf.Buffer, blockSize int) (*AudioInfo, error) {
	w := NewWalker(r, size, buf, blockSize)
	if err := w.Open(); err != nil {
		return nil, err
	}
	if w.Magic != magicRIFF || w.Form != formWAVE {
		return nil, scanerr.Errorf(scanerr.KindUnsupported, "wav", "not a WAVE file (%s %q)", w.Magic, w.Form)
	}
	return parseWAV(w)
}

// ParseAIFF parses a FORM AIFF or AIFC file.
func ParseAIFF(r io.ReadSeeker, size int64, buf *bytebuf.Buffer, blockSize int) (*AudioInfo, error) {
	w := NewWalker(r, size, buf, blockSize)
	if err := w.Open(); err != nil {
		return nil, err
	}
	if w.Magic != magicFORM {
		return nil, scanerr.Errorf(scanerr.KindUnsupported, "aiff", "magic %q is not FORM", w.Magic)
	}
	if w.Form != formAIFF && w.Form != formAIFC {
		return nil, scanerr.Errorf(scanerr.KindMalformed, "aiff", "form type %q is not AIFF or AIFC", w.Form)
	}
	return parseAIFF(w)
}

func parseWAV(w *Walker) (*AudioInfo, error) {
	info := &AudioInfo{Container: "wav", Tags: make(map[string]string)}
	haveFmt := false

	w.Handle("fmt ", func(h ChunkHeader, b *bytebuf.Buffer) error {
		haveFmt = true
		return info.readFmt(h, b)
	})
	w.Handle("fact", func(h ChunkHeader, b *bytebuf.Buffer) error {
		if h.Size == 4 {
			info.Samples = int64(b.U32LE())
		}
		return nil
	})
	w.HandleList("INFO", func(h ChunkHeader, b *bytebuf.Buffer) error {
		return eachSubchunk(b, int64(h.Size)-4, false, func(id bytebuf.FourCC, size int64) error {
			name, ok := infoTags[id.String()]
			if !ok {
				return nil
			}
			s, err := b.ReadLatin1(int(size))
			if err != nil {
				return err
			}
			if s = strings.TrimSpace(s); s != "" {
				info.Tags[name] = s
			}
			return nil
		})
	})
	w.Stream("data", func(h ChunkHeader) {
		info.AudioOffset = h.Offset
		info.AudioSize = min(int64(h.Size), w.size-h.Offset)
	})
	for _, id := range []string{"id3 ", "ID3 ", "ID32"} {
		w.Stream(id, info.readID3(w))
	}

	if err := w.Walk(); err != nil {
		return nil, err
	}
	if !haveFmt {
		return nil, scanerr.New(scanerr.KindMalformed, "wav", "missing fmt chunk")
	}

	// PCM files rarely carry a fact chunk; frames follow from the block size.
	if info.Samples == 0 && info.Format == FormatPCM && info.BlockAlign > 0 {
		info.Samples = info.AudioSize / int64(info.BlockAlign)
	}
	info.Truncated = w.Truncated
	info.finish()
	return info, nil
}

func (a *AudioInfo) readFmt(h ChunkHeader, b *bytebuf.Buffer) error {
	if h.Size < 16 {
		return scanerr.Errorf(scanerr.KindMalformed, "wav: fmt", "chunk is %d bytes", h.Size)
	}
	a.Format = b.U16LE()
	a.Channels = int(b.U16LE())
	a.SampleRate = int(b.U32LE())
	a.Bitrate = int(b.U32LE()) * 8
	a.BlockAlign = int(b.U16LE())
	a.BitsPerSample = int(b.U16LE())

	if h.Size > 18 {
		ext := int(b.U16LE())
		if a.Format == FormatExtensible && ext >= 22 && h.Size >= 40 {
			// valid bits and channel mask, then a GUID led by the real tag
			b.Next(6)
			a.Format = b.U16LE()
			b.Next(14)
		} else {
			b.Next(min(ext, int(h.Size)-18))
		}
	}
	a.Codec = wavCodec(a.Format)
	return nil
}

func wavCodec(format uint16) string {
	switch format {
	case FormatPCM:
		return "pcm"
	case FormatADPCM:
		return "adpcm"
	case FormatFloat:
		return "float"
	case FormatALaw:
		return "alaw"
	case FormatMuLaw:
		return "mulaw"
	case FormatMP3:
		return "mp3"
	default:
		return "0x" + strconv.FormatUint(uint64(format), 16)
	}
}

// infoTags maps RIFF INFO and AIFF text chunk IDs to tag names.
var infoTags = map[string]string{
	"INAM": "title",
	"IART": "artist",
	"IPRD": "album",
	"ICRD": "date",
	"IGNR": "genre",
	"ICMT": "comment",
	"ITRK": "track",
	"ICOP": "copyright",
	"ISFT": "software",
	"NAME": "title",
	"AUTH": "artist",
	"(c) ": "copyright",
	"ANNO": "comment",
}

func parseAIFF(w *Walker) (*AudioInfo, error) {
	info := &AudioInfo{Container: "aiff", Codec: "pcm", Tags: make(map[string]string)}
	if w.Form == formAIFC {
		info.Container = "aifc"
	}
	haveComm := false

	w.Handle("COMM", func(h ChunkHeader, b *bytebuf.Buffer) error {
		haveComm = true
		return info.readComm(h, b, w.Form == formAIFC)
	})
	for _, id := range []string{"NAME", "AUTH", "(c) ", "ANNO"} {
		w.Handle(id, func(h ChunkHeader, b *bytebuf.Buffer) error {
			s, err := b.ReadLatin1(int(h.Size))
			if err != nil {
				return err
			}
			if s = strings.TrimSpace(s); s != "" {
				info.Tags[infoTags[h.ID.String()]] = s
			}
			return nil
		})
	}
	w.Stream("SSND", func(h ChunkHeader) {
		// The payload starts with offset and block size words.
		info.AudioOffset = h.Offset + 8
		info.AudioSize = max(min(int64(h.Size), w.size-h.Offset)-8, 0)
	})
	w.Stream("ID3 ", info.readID3(w))

	if err := w.Walk(); err != nil {
		return nil, err
	}
	if !haveComm {
		return nil, scanerr.New(scanerr.KindMalformed, "aiff", "missing COMM chunk")
	}
	info.Truncated = w.Truncated
	info.finish()
	return info, nil
}

func (a *AudioInfo) readComm(h ChunkHeader, b *bytebuf.Buffer, aifc bool) error {
	if h.Size < 18 {
		return scanerr.Errorf(scanerr.KindMalformed, "aiff: COMM", "chunk is %d bytes", h.Size)
	}
	a.Channels = int(b.U16BE())
	a.Samples = int64(b.U32BE())
	a.BitsPerSample = int(b.U16BE())
	a.SampleRate = int(b.Extended())

	a.Bitrate = a.SampleRate * a.Channels * a.BitsPerSample
	a.BlockAlign = a.Channels * ((a.BitsPerSample + 7) / 8)

	if aifc && h.Size >= 22 {
		id := b.FourCC()
		switch id.String() {
		case "NONE", "sowt", "twos":
			a.Codec = "pcm"
		case "fl32", "FL32", "fl64", "FL64":
			a.Codec = "float"
		case "alaw", "ALAW":
			a.Codec = "alaw"
		case "ulaw", "ULAW":
			a.Codec = "mulaw"
		default:
			a.Codec = strings.TrimSpace(id.String())
		}
	}
	return nil
}

// readID3 returns a stream handler parsing an embedded ID3v2 tag straight
// from the file. Tags are best effort; failures are logged and ignored.
func (a *AudioInfo) readID3(w *Walker) StreamHandler {
	return func(h ChunkHeader) {
		ra, ok := w.r.(io.ReaderAt)
		if !ok {
			return
		}
		n := min(int64(h.Size), w.size-h.Offset)
		m, err := tag.ReadFrom(io.NewSectionReader(ra, h.Offset, n))
		if err != nil {
			logging.Debug("container: %s: id3 chunk: %v", w.Name, err)
			return
		}
		MergeTags(a.Tags, m)
	}
}

// MergeTags copies the non-empty fields of m into tags.
func MergeTags(tags map[string]string, m tag.Metadata) {
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			tags[k] = v
		}
	}
	set("title", m.Title())
	set("artist", m.Artist())
	set("album", m.Album())
	set("album_artist", m.AlbumArtist())
	set("composer", m.Composer())
	set("genre", m.Genre())
	set("comment", m.Comment())
	if y := m.Year(); y > 0 {
		tags["date"] = strconv.Itoa(y)
	}
	if n, _ := m.Track(); n > 0 {
		tags["track"] = strconv.Itoa(n)
	}
}

// finish derives the duration. A known sample count wins over the byte
// rate estimate.
func (a *AudioInfo) finish() {
	switch {
	case a.Samples > 0 && a.SampleRate > 0:
		a.DurationMS = a.Samples * 1000 / int64(a.SampleRate)
	case a.Bitrate > 0:
		a.DurationMS = a.AudioSize * 8000 / int64(a.Bitrate)
	}
}
