// Package container walks RIFF and FORM chunked files (WAV, AVI, AIFF) and
// extracts stream-level metadata from them.
//
// The Walker reads one chunk header at a time through a bytebuf.Buffer and
// dispatches on the chunk ID. Small chunks with registered handlers are
// buffered whole; payload chunks such as WAV "data" are never read, only
// their position is recorded and the file is seeked past them.
package container

import (
	"io"

	"media-scanner/internal/bytebuf"
	"media-scanner/internal/logging"
	"media-scanner/internal/scanerr"
)

// MaxBufferedChunk is the largest chunk a Handler will be given. Bigger
// chunks with a handler are skipped as if unknown.
const MaxBufferedChunk = 4 * 1024 * 1024

var (
	magicRIFF = bytebuf.NewFourCC("RIFF")
	magicFORM = bytebuf.NewFourCC("FORM")
	idLIST    = bytebuf.NewFourCC("LIST")
)

// ChunkHeader describes one chunk.
type ChunkHeader struct {
	ID bytebuf.FourCC
	// Size is the declared payload size.
	Size uint32
	// Padded is Size rounded up to an even number of bytes.
	Padded int64
	// Offset is the file offset of the payload.
	Offset int64
	// List is the list type of a LIST chunk.
	List bytebuf.FourCC
}

// Handler parses a chunk whose payload is fully buffered. It may consume up
// to Size bytes from b; the walker skips whatever is left.
type Handler func(h ChunkHeader, b *bytebuf.Buffer) error

// StreamHandler is told about a chunk that is skipped without being read.
type StreamHandler func(h ChunkHeader)

// Walker is a single pass over the chunks of one file.
type Walker struct {
	// Name labels log messages, usually the file path.
	Name string

	// Magic is RIFF or FORM, Form the type that follows the size.
	Magic bytebuf.FourCC
	Form  bytebuf.FourCC

	// Chunks lists every chunk header read, in file order.
	Chunks []ChunkHeader

	// Truncated is set when a chunk declared more bytes than the file holds.
	Truncated bool

	r         io.ReadSeeker
	size      int64
	buf       *bytebuf.Buffer
	blockSize int
	bigEndian bool
	pos       int64

	handlers map[bytebuf.FourCC]Handler
	lists    map[bytebuf.FourCC]Handler
	streams  map[bytebuf.FourCC]StreamHandler
}

// NewWalker returns a walker over a file of the given size. The buffer's
// window must start at file offset 0 and r must be positioned just past it.
func NewWalker(r io.ReadSeeker, size int64, buf *bytebuf.Buffer, blockSize int) *Walker {
	if blockSize <= 0 {
		blockSize = bytebuf.DefaultBlockSize
	}
	return &Walker{
		r:         r,
		size:      size,
		buf:       buf,
		blockSize: blockSize,
		handlers:  make(map[bytebuf.FourCC]Handler),
		lists:     make(map[bytebuf.FourCC]Handler),
		streams:   make(map[bytebuf.FourCC]StreamHandler),
	}
}

// Handle registers a buffered handler for chunk id. A LIST handler sees
// every list whose type has no HandleList handler, positioned after the
// list type.
func (w *Walker) Handle(id string, h Handler) { w.handlers[bytebuf.NewFourCC(id)] = h }

// HandleList registers a buffered handler for LIST chunks of the given list
// type. The buffer is positioned after the list type when h runs.
func (w *Walker) HandleList(listType string, h Handler) { w.lists[bytebuf.NewFourCC(listType)] = h }

// Stream registers a handler for chunk id whose payload must not be buffered.
func (w *Walker) Stream(id string, h StreamHandler) { w.streams[bytebuf.NewFourCC(id)] = h }

// BigEndian reports whether chunk sizes are big-endian (FORM files).
func (w *Walker) BigEndian() bool { return w.bigEndian }

// Open reads the 12 byte file header.
func (w *Walker) Open() error {
	if err := w.buf.EnsureAvailable(12, w.r, w.blockSize); err != nil {
		return err
	}
	w.Magic = w.buf.FourCC()
	switch w.Magic {
	case magicRIFF:
		w.bigEndian = false
	case magicFORM:
		w.bigEndian = true
	default:
		return scanerr.Errorf(scanerr.KindUnsupported, "container: open", "unknown magic %q", w.Magic)
	}
	_ = w.u32()
	w.Form = w.buf.FourCC()
	w.pos = 12
	return nil
}

func (w *Walker) u32() uint32 {
	if w.bigEndian {
		return w.buf.U32BE()
	}
	return w.buf.U32LE()
}

// Pos returns the file offset of the next unread byte.
func (w *Walker) Pos() int64 { return w.pos }

// Walk reads chunks until the end of the file, dispatching each one.
func (w *Walker) Walk() error {
	for w.pos+8 <= w.size {
		if err := w.buf.EnsureAvailable(8, w.r, w.blockSize); err != nil {
			if scanerr.Is(err, scanerr.KindInsufficientData) {
				w.truncate("chunk header at %d cut short", w.pos)
				return nil
			}
			return err
		}
		h := ChunkHeader{ID: w.buf.FourCC(), Size: w.u32()}
		w.pos += 8
		h.Offset = w.pos
		h.Padded = int64(h.Size) + int64(h.Size&1)

		remaining := w.size - w.pos
		if int64(h.Size) > remaining {
			w.Chunks = append(w.Chunks, h)
			if s, ok := w.streams[h.ID]; ok {
				s(h)
			}
			w.truncate("chunk %q declares %d bytes, %d remain", h.ID, h.Size, remaining)
			return nil
		}
		// A missing pad byte at EOF is tolerated.
		skip := min(h.Padded, remaining)

		if err := w.dispatch(&h, skip); err != nil {
			return err
		}
		w.Chunks = append(w.Chunks, h)
		w.pos += skip
	}
	return nil
}

func (w *Walker) dispatch(h *ChunkHeader, skip int64) error {
	if s, ok := w.streams[h.ID]; ok {
		s(*h)
		return w.discard(skip)
	}

	handler, ok := w.handlers[h.ID]
	if h.ID == idLIST && h.Size >= 4 {
		if err := w.buf.EnsureAvailable(4, w.r, w.blockSize); err != nil {
			return err
		}
		p, _ := w.buf.Peek(4)
		copy(h.List[:], p)
		// A list type handler takes precedence over a plain LIST handler.
		if lh, listOK := w.lists[h.List]; listOK {
			handler, ok = lh, true
		}
	}
	if !ok || h.Size > MaxBufferedChunk {
		if ok {
			logging.Warn("container: %s: skipping %d byte %q chunk", w.Name, h.Size, h.ID)
		}
		return w.discard(skip)
	}

	if err := w.buf.EnsureAvailable(int(skip), w.r, w.blockSize); err != nil {
		return scanerr.Wrap(scanerr.KindInsufficientData, "container: chunk "+h.ID.String(), err)
	}
	before := w.buf.Len()
	if h.ID == idLIST {
		w.buf.Next(4)
	}
	if err := handler(*h, w.buf); err != nil {
		return scanerr.Wrap(scanerr.KindMalformed, "container: chunk "+h.ID.String(), err)
	}
	used := int64(before - w.buf.Len())
	if used > int64(h.Size) {
		return scanerr.Errorf(scanerr.KindMalformed, "container: chunk "+h.ID.String(),
			"handler read %d bytes of a %d byte chunk", used, h.Size)
	}
	return w.buf.Consume(int(skip - used))
}

func (w *Walker) discard(n int64) error {
	if err := w.buf.Discard(n, w.r); err != nil {
		return scanerr.Wrap(scanerr.KindInsufficientData, "container: skip", err)
	}
	return nil
}

func (w *Walker) truncate(format string, args ...any) {
	w.Truncated = true
	logging.Warn("container: %s: "+format+", keeping chunks read so far", append([]any{w.Name}, args...)...)
}

// eachSubchunk iterates the chunks nested in a buffered parent of n bytes.
// fn may consume up to size bytes; the remainder and padding are skipped.
// A nested chunk that overruns its parent ends the iteration.
func eachSubchunk(b *bytebuf.Buffer, n int64, bigEndian bool, fn func(id bytebuf.FourCC, size int64) error) error {
	for n >= 8 {
		id := b.FourCC()
		var size int64
		if bigEndian {
			size = int64(b.U32BE())
		} else {
			size = int64(b.U32LE())
		}
		n -= 8
		if size > n {
			return nil
		}
		before := b.Len()
		if err := fn(id, size); err != nil {
			return err
		}
		used := int64(before - b.Len())
		if used > size {
			return scanerr.Errorf(scanerr.KindMalformed, "container: subchunk "+id.String(),
				"read %d bytes of %d", used, size)
		}
		step := min(size+size&1, n)
		if err := b.Consume(int(step - used)); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
