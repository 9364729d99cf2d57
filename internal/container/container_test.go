package container

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"media-scanner/internal/bytebuf"
	"media-scanner/internal/scanerr"
)

// chunk encodes one chunk with the given byte order, padding odd payloads.
func chunk(order binary.ByteOrder, id string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	binary.Write(&b, order, uint32(len(payload)))
	b.Write(payload)
	if len(payload)%2 == 1 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

func riff(form string, chunks ...[]byte) []byte {
	body := []byte(form)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk(binary.LittleEndian, "RIFF", body)
}

func form(kind string, chunks ...[]byte) []byte {
	body := []byte(kind)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk(binary.BigEndian, "FORM", body)
}

func fmtChunk(format, channels uint16, rate, byteRate uint32, align, bits uint16) []byte {
	var b bytes.Buffer
	put(&b, binary.LittleEndian, format, channels, rate, byteRate, align, bits)
	return chunk(binary.LittleEndian, "fmt ", b.Bytes())
}

// put writes each value in turn; binary.Write does not accept []any.
func put(w io.Writer, order binary.ByteOrder, vals ...any) {
	for _, v := range vals {
		binary.Write(w, order, v)
	}
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func parseWAVBytes(c *qt.C, data []byte) (*AudioInfo, error) {
	c.Helper()
	return ParseWAV(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 64)
}

func TestParseWAVFormat(t *testing.T) {
	c := qt.New(t)

	data := riff("WAVE",
		fmtChunk(FormatPCM, 2, 44100, 176400, 4, 16),
		chunk(binary.LittleEndian, "data", make([]byte, 176400)),
	)
	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Container, qt.Equals, "wav")
	c.Assert(info.Codec, qt.Equals, "pcm")
	c.Assert(info.Channels, qt.Equals, 2)
	c.Assert(info.SampleRate, qt.Equals, 44100)
	c.Assert(info.Bitrate, qt.Equals, 1411200)
	c.Assert(info.BlockAlign, qt.Equals, 4)
	c.Assert(info.BitsPerSample, qt.Equals, 16)
	c.Assert(info.AudioOffset, qt.Equals, int64(44))
	c.Assert(info.AudioSize, qt.Equals, int64(176400))
	c.Assert(info.Samples, qt.Equals, int64(44100))
	c.Assert(info.DurationMS, qt.Equals, int64(1000))
	c.Assert(info.Truncated, qt.IsFalse)
}

func TestWAVDurationDerivationsAgree(t *testing.T) {
	c := qt.New(t)

	for _, dataBytes := range []int{4, 1000, 176400, 176400*3 + 12} {
		data := riff("WAVE",
			fmtChunk(FormatPCM, 2, 44100, 176400, 4, 16),
			chunk(binary.LittleEndian, "fact", le32(uint32(dataBytes/4))),
			chunk(binary.LittleEndian, "data", make([]byte, dataBytes)),
		)
		info, err := parseWAVBytes(c, data)
		c.Assert(err, qt.IsNil)

		fromSamples := info.DurationMS
		fromBytes := int64(dataBytes) * 8000 / int64(info.Bitrate)
		diff := fromSamples - fromBytes
		c.Assert(diff >= -1 && diff <= 1, qt.IsTrue, qt.Commentf("%d bytes: %d vs %d", dataBytes, fromSamples, fromBytes))
	}
}

func TestWAVFactWins(t *testing.T) {
	c := qt.New(t)

	// Compressed stream: the byte rate estimate is only approximate.
	data := riff("WAVE",
		fmtChunk(FormatMP3, 1, 8000, 1000, 1, 0),
		chunk(binary.LittleEndian, "fact", le32(16000)),
		chunk(binary.LittleEndian, "data", make([]byte, 1500)),
	)
	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Codec, qt.Equals, "mp3")
	c.Assert(info.Samples, qt.Equals, int64(16000))
	c.Assert(info.DurationMS, qt.Equals, int64(2000))
}

func TestWAVExtensible(t *testing.T) {
	c := qt.New(t)

	var b bytes.Buffer
	put(&b, binary.LittleEndian,
		uint16(FormatExtensible), uint16(2), uint32(48000), uint32(288000), uint16(6), uint16(24),
		uint16(22), uint16(24), uint32(3), uint16(FormatFloat),
	)
	b.Write(make([]byte, 14))
	data := riff("WAVE", chunk(binary.LittleEndian, "fmt ", b.Bytes()), chunk(binary.LittleEndian, "data", make([]byte, 6)))

	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Format, qt.Equals, uint16(FormatFloat))
	c.Assert(info.Codec, qt.Equals, "float")
	c.Assert(info.BitsPerSample, qt.Equals, 24)
}

func TestWAVOddChunkPadding(t *testing.T) {
	c := qt.New(t)

	data := riff("WAVE",
		chunk(binary.LittleEndian, "junk", []byte{1, 2, 3}),
		fmtChunk(FormatPCM, 1, 8000, 16000, 2, 16),
		chunk(binary.LittleEndian, "data", make([]byte, 16000)),
	)
	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.SampleRate, qt.Equals, 8000)
	c.Assert(info.DurationMS, qt.Equals, int64(1000))
}

func TestWAVTruncatedData(t *testing.T) {
	c := qt.New(t)

	full := riff("WAVE",
		fmtChunk(FormatPCM, 2, 44100, 176400, 4, 16),
		chunk(binary.LittleEndian, "data", make([]byte, 8000)),
	)
	// Drop the second half of the samples.
	data := full[:len(full)-4000]

	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Truncated, qt.IsTrue)
	c.Assert(info.Channels, qt.Equals, 2)
	c.Assert(info.AudioSize, qt.Equals, int64(4000))
}

func TestChunkWalkStopsAtDeclaredOverrun(t *testing.T) {
	c := qt.New(t)

	var bogus bytes.Buffer
	bogus.WriteString("LIST")
	binary.Write(&bogus, binary.LittleEndian, uint32(1<<30))
	bogus.WriteString("INFO")

	data := riff("WAVE", fmtChunk(FormatPCM, 1, 8000, 8000, 1, 8))
	data = append(data, bogus.Bytes()...)
	data = append(data, chunk(binary.LittleEndian, "data", make([]byte, 10))...)

	r := bytes.NewReader(data)
	w := NewWalker(r, int64(len(data)), bytebuf.New(0), 16)
	c.Assert(w.Open(), qt.IsNil)
	w.Handle("fmt ", func(h ChunkHeader, b *bytebuf.Buffer) error { return nil })
	c.Assert(w.Walk(), qt.IsNil)
	c.Assert(w.Truncated, qt.IsTrue)
	c.Assert(w.Chunks, qt.HasLen, 2)
	c.Assert(w.Chunks[1].ID.String(), qt.Equals, "LIST")
	c.Assert(w.Pos() <= int64(len(data)), qt.IsTrue)
}

func TestPlainLISTHandler(t *testing.T) {
	c := qt.New(t)

	data := riff("WAVE",
		chunk(binary.LittleEndian, "LIST", append([]byte("adtl"), 1, 2, 3, 4)),
		chunk(binary.LittleEndian, "LIST", append([]byte("INFO"), 5, 6)),
	)
	w := NewWalker(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 16)
	c.Assert(w.Open(), qt.IsNil)

	var plain, info []string
	w.Handle("LIST", func(h ChunkHeader, b *bytebuf.Buffer) error {
		plain = append(plain, h.List.String())
		return nil
	})
	w.HandleList("INFO", func(h ChunkHeader, b *bytebuf.Buffer) error {
		info = append(info, h.List.String())
		return nil
	})
	c.Assert(w.Walk(), qt.IsNil)
	c.Assert(plain, qt.DeepEquals, []string{"adtl"})
	c.Assert(info, qt.DeepEquals, []string{"INFO"})
}

func TestWAVInfoTags(t *testing.T) {
	c := qt.New(t)

	list := append([]byte("INFO"), chunk(binary.LittleEndian, "INAM", []byte("Caf\xe9\x00"))...)
	list = append(list, chunk(binary.LittleEndian, "IART", []byte("Someone\x00"))...)
	list = append(list, chunk(binary.LittleEndian, "IXXX", []byte("ignored"))...)

	data := riff("WAVE",
		fmtChunk(FormatPCM, 1, 8000, 16000, 2, 16),
		chunk(binary.LittleEndian, "LIST", list),
		chunk(binary.LittleEndian, "data", make([]byte, 2)),
	)
	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Tags, qt.DeepEquals, map[string]string{"title": "Café", "artist": "Someone"})
}

func TestWAVID3Chunk(t *testing.T) {
	c := qt.New(t)

	frame := append([]byte{0}, []byte("Hello")...)
	var id3 bytes.Buffer
	id3.WriteString("ID3")
	id3.Write([]byte{3, 0, 0})
	size := 10 + len(frame)
	id3.Write([]byte{0, 0, byte(size >> 7), byte(size & 0x7f)})
	id3.WriteString("TIT2")
	binary.Write(&id3, binary.BigEndian, uint32(len(frame)))
	id3.Write([]byte{0, 0})
	id3.Write(frame)

	data := riff("WAVE",
		fmtChunk(FormatPCM, 1, 8000, 16000, 2, 16),
		chunk(binary.LittleEndian, "data", make([]byte, 2)),
		chunk(binary.LittleEndian, "id3 ", id3.Bytes()),
	)
	info, err := parseWAVBytes(c, data)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Tags["title"], qt.Equals, "Hello")
}

func TestWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind scanerr.Kind
	}{
		{"unknown magic", append([]byte("OggS"), make([]byte, 20)...), scanerr.KindUnsupported},
		{"riff but not wave", riff("AVI "), scanerr.KindUnsupported},
		{"missing fmt", riff("WAVE", chunk(binary.LittleEndian, "data", make([]byte, 4))), scanerr.KindMalformed},
		{"short fmt", riff("WAVE", chunk(binary.LittleEndian, "fmt ", make([]byte, 10))), scanerr.KindMalformed},
		{"header only", []byte("RIFF"), scanerr.KindInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			_, err := parseWAVBytes(c, tt.data)
			c.Assert(err, qt.IsNotNil)
			c.Assert(scanerr.KindOf(err), qt.Equals, tt.kind, qt.Commentf("%v", err))
		})
	}
}

func TestParseWAVMatchesGoAudio(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)

	const rate, frames = 22050, 11025
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	samples := make([]int, frames*2)
	for i := range samples {
		samples[i] = (i * 37) % 2000
	}
	c.Assert(enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}), qt.IsNil)
	c.Assert(enc.Close(), qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	f, err = os.Open(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	st, err := f.Stat()
	c.Assert(err, qt.IsNil)

	info, err := ParseWAV(f, st.Size(), bytebuf.New(0), bytebuf.DefaultBlockSize)
	c.Assert(err, qt.IsNil)

	_, err = f.Seek(0, 0)
	c.Assert(err, qt.IsNil)
	dec := wav.NewDecoder(f)
	c.Assert(dec.IsValidFile(), qt.IsTrue)
	dur, err := dec.Duration()
	c.Assert(err, qt.IsNil)

	c.Assert(info.Channels, qt.Equals, int(dec.NumChans))
	c.Assert(info.SampleRate, qt.Equals, int(dec.SampleRate))
	c.Assert(info.BitsPerSample, qt.Equals, int(dec.BitDepth))
	c.Assert(info.AudioSize, qt.Equals, int64(frames*4))
	c.Assert(info.DurationMS, qt.Equals, dur.Milliseconds())
}

// extended encodes an integral sample rate as an 80-bit float.
func extended(rate uint32) []byte {
	out := make([]byte, 10)
	exp := 16383 + 31
	m := rate
	for m&0x80000000 == 0 {
		m <<= 1
		exp--
	}
	binary.BigEndian.PutUint16(out, uint16(exp))
	binary.BigEndian.PutUint32(out[2:], m)
	return out
}

func commChunk(channels uint16, frames uint32, bits uint16, rate uint32, extra []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, channels)
	binary.Write(&b, binary.BigEndian, frames)
	binary.Write(&b, binary.BigEndian, bits)
	b.Write(extended(rate))
	b.Write(extra)
	return chunk(binary.BigEndian, "COMM", b.Bytes())
}

func TestParseAIFF(t *testing.T) {
	c := qt.New(t)

	ssnd := append(make([]byte, 8), make([]byte, 44100*4)...)
	data := form("AIFF",
		commChunk(2, 44100, 16, 44100, nil),
		chunk(binary.BigEndian, "NAME", []byte("Tone")),
		chunk(binary.BigEndian, "SSND", ssnd),
	)
	info, err := ParseAIFF(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 256)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Container, qt.Equals, "aiff")
	c.Assert(info.Channels, qt.Equals, 2)
	c.Assert(info.SampleRate, qt.Equals, 44100)
	c.Assert(info.BitsPerSample, qt.Equals, 16)
	c.Assert(info.Bitrate, qt.Equals, 1411200)
	c.Assert(info.BlockAlign, qt.Equals, 4)
	c.Assert(info.DurationMS, qt.Equals, int64(1000))
	c.Assert(info.Tags["title"], qt.Equals, "Tone")

	// 12 byte FORM header, 8+18 COMM, 8+4 NAME, 8 SSND header, 8 offset/block.
	c.Assert(info.AudioOffset, qt.Equals, int64(12+26+12+8+8))
	c.Assert(info.AudioSize, qt.Equals, int64(44100*4))
}

func TestParseAIFC(t *testing.T) {
	c := qt.New(t)

	data := form("AIFC",
		commChunk(1, 8000, 16, 8000, append([]byte("sowt"), 0, 0)),
		chunk(binary.BigEndian, "SSND", make([]byte, 8+16000)),
	)
	info, err := ParseAudio(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 256)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Container, qt.Equals, "aifc")
	c.Assert(info.Codec, qt.Equals, "pcm")
	c.Assert(info.DurationMS, qt.Equals, int64(1000))
}

func TestParseAIFFErrors(t *testing.T) {
	c := qt.New(t)

	data := form("8SVX", commChunk(1, 1, 8, 8000, nil))
	_, err := ParseAIFF(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 256)
	c.Assert(scanerr.Is(err, scanerr.KindMalformed), qt.IsTrue)

	_, err = ParseAudio(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 256)
	c.Assert(scanerr.Is(err, scanerr.KindMalformed), qt.IsTrue)

	data = form("AIFF", chunk(binary.BigEndian, "SSND", make([]byte, 8)))
	_, err = ParseAIFF(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 256)
	c.Assert(scanerr.Is(err, scanerr.KindMalformed), qt.IsTrue)
}

func TestParseAVI(t *testing.T) {
	c := qt.New(t)

	var avih bytes.Buffer
	binary.Write(&avih, binary.LittleEndian, []uint32{
		40000, 0, 0, 0, // 25 fps
		250, 0, 2, 0, // frames, initial, streams, buffer
		640, 480, 0, 0, 0, 0,
	})

	var strh bytes.Buffer
	strh.WriteString("vids")
	strh.WriteString("H264")
	binary.Write(&strh, binary.LittleEndian, []uint32{0, 0, 0, 1, 25, 0, 250, 0, 0, 0, 0, 0})

	var strf bytes.Buffer
	put(&strf, binary.LittleEndian, uint32(40), int32(640), int32(480), uint16(1), uint16(24))
	strf.WriteString("H264")
	strf.Write(make([]byte, 20))

	strl := append([]byte("strl"), chunk(binary.LittleEndian, "strh", strh.Bytes())...)
	strl = append(strl, chunk(binary.LittleEndian, "strf", strf.Bytes())...)

	var auds bytes.Buffer
	auds.WriteString("auds")
	auds.Write(make([]byte, 52))
	astrl := append([]byte("strl"), chunk(binary.LittleEndian, "strh", auds.Bytes())...)
	astrl = append(astrl, chunk(binary.LittleEndian, "strf", []byte{0x55, 0, 2, 0})...)

	hdrl := append([]byte("hdrl"), chunk(binary.LittleEndian, "avih", avih.Bytes())...)
	hdrl = append(hdrl, chunk(binary.LittleEndian, "LIST", strl)...)
	hdrl = append(hdrl, chunk(binary.LittleEndian, "LIST", astrl)...)

	movi := append([]byte("movi"), make([]byte, 4096)...)
	data := riff("AVI ",
		chunk(binary.LittleEndian, "LIST", hdrl),
		chunk(binary.LittleEndian, "LIST", movi),
	)

	info, err := ParseAVI(bytes.NewReader(data), int64(len(data)), bytebuf.New(0), 128)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Width, qt.Equals, 640)
	c.Assert(info.Height, qt.Equals, 480)
	c.Assert(info.Streams, qt.Equals, 2)
	c.Assert(info.TotalFrames, qt.Equals, 250)
	c.Assert(info.FrameRate, qt.Equals, 25.0)
	c.Assert(info.VideoCodec, qt.Equals, "H264")
	c.Assert(info.AudioCodec, qt.Equals, "mp3")
	c.Assert(info.DurationMS, qt.Equals, int64(10000))

	_, err = ParseAVI(bytes.NewReader(riff("AVI ")), 12, bytebuf.New(0), 128)
	c.Assert(scanerr.Is(err, scanerr.KindMalformed), qt.IsTrue)
}
