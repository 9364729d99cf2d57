// Package bytebuf implements the streaming byte buffer used by every format
// parser in the scanner.
//
// A Buffer is a FIFO window over a growable byte slice. Parsers call
// EnsureAvailable to pull more of the file in block-sized reads, then consume
// typed values from the front of the window. Only the bytes a parser actually
// needs are ever resident, so large files are never loaded whole.
//
// Every typed read comes in two forms: a checked ReadXxx that returns a
// KindInsufficientData error, and an unchecked Xxx for call sites that have
// already called EnsureAvailable. The unchecked form panics rather than read
// past the window.
//
// A Buffer is not safe for concurrent use. Slices returned by Bytes and Peek
// are invalidated by any call that appends, compacts or grows the buffer.
package bytebuf

import (
	"errors"
	"fmt"
	"io"

	"media-scanner/internal/scanerr"
)

const (
	// allocSize is the growth bucket.
	allocSize = 8 * 1024

	// MaxLength is the largest backing array a Buffer may allocate.
	MaxLength = 64 * 1024 * 1024

	// DefaultBlockSize is the read size used when callers have no preference.
	DefaultBlockSize = 4096
)

// Stats counts the physical work a Buffer has done.
type Stats struct {
	Grows       int
	Compactions int
	BytesRead   int64
}

// Buffer is a FIFO byte buffer with lazy compaction.
type Buffer struct {
	buf []byte
	off int
	end int

	// bit reader state, see ReadBits
	cache   uint64
	ncached uint

	stats Stats
}

// New returns a Buffer with an initial capacity of size bytes.
func New(size int) *Buffer {
	if size <= 0 {
		size = allocSize
	}
	return &Buffer{buf: make([]byte, size)}
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return b.end - b.off }

// Cap returns the size of the backing array.
func (b *Buffer) Cap() int { return len(b.buf) }

// Stats returns the growth and compaction counters.
func (b *Buffer) Stats() Stats { return b.stats }

// Bytes returns the unread window without copying.
func (b *Buffer) Bytes() []byte { return b.buf[b.off:b.end] }

// Peek returns the next n unread bytes without consuming them.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	return b.buf[b.off : b.off+n], nil
}

// Clear discards all buffered data and any cached bits.
func (b *Buffer) Clear() {
	b.off, b.end = 0, 0
	b.ClearBits()
}

// Consume advances the read position by n bytes.
func (b *Buffer) Consume(n int) error {
	if n < 0 || n > b.Len() {
		return scanerr.Errorf(scanerr.KindInsufficientData, "bytebuf: consume",
			"%d bytes requested, %d available", n, b.Len())
	}
	b.off += n
	return nil
}

// Append copies p to the end of the window.
func (b *Buffer) Append(p []byte) error {
	if err := b.reserve(len(p)); err != nil {
		return err
	}
	b.end += copy(b.buf[b.end:], p)
	return nil
}

// EnsureAvailable guarantees that at least n bytes are readable, reading from
// r in chunks of at least blockSize bytes when the window is short. It returns
// a KindInsufficientData error if r reaches EOF first; whatever was read is
// kept in the buffer. A request larger than MaxLength comes from a size
// field in the input and fails with KindMalformed.
func (b *Buffer) EnsureAvailable(n int, r io.Reader, blockSize int) error {
	have := b.Len()
	if n <= have {
		return nil
	}
	if n > MaxLength {
		return scanerr.Errorf(scanerr.KindMalformed, "bytebuf",
			"read of %d bytes exceeds limit of %d", n, MaxLength)
	}
	if r == nil {
		return b.short(n)
	}

	want := n - have
	if blockSize > want {
		want = blockSize
	}
	// The block size never pushes a request that fits over the cap.
	want = min(want, MaxLength-have)
	if err := b.reserve(want); err != nil {
		return err
	}

	got, err := io.ReadAtLeast(r, b.buf[b.end:b.end+want], n-have)
	b.end += got
	b.stats.BytesRead += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return b.short(n)
		}
		return scanerr.Wrap(scanerr.KindIO, "bytebuf: read", err)
	}
	return nil
}

// Discard drops n logical bytes from the stream: buffered bytes first, then
// bytes still in r. A seekable r is seeked instead of read.
func (b *Buffer) Discard(n int64, r io.Reader) error {
	if n <= int64(b.Len()) {
		return b.Consume(int(n))
	}
	rest := n - int64(b.Len())
	b.Clear()

	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(rest, io.SeekCurrent); err != nil {
			return scanerr.Wrap(scanerr.KindIO, "bytebuf: seek", err)
		}
		return nil
	}
	if r == nil {
		return b.short(int(n))
	}
	copied, err := io.CopyN(io.Discard, r, rest)
	b.stats.BytesRead += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			return scanerr.Errorf(scanerr.KindInsufficientData, "bytebuf: discard",
				"stream ended %d bytes early", rest-copied)
		}
		return scanerr.Wrap(scanerr.KindIO, "bytebuf: discard", err)
	}
	return nil
}

// reserve makes room for n more bytes at the end of the window, compacting
// when the consumed prefix is large enough and growing otherwise.
func (b *Buffer) reserve(n int) error {
	if b.off == b.end {
		b.off, b.end = 0, 0
	}
	if len(b.buf)-b.end >= n {
		return nil
	}

	length := b.Len()
	if len(b.buf)-length >= n {
		copy(b.buf, b.buf[b.off:b.end])
		b.off, b.end = 0, length
		b.stats.Compactions++
		return nil
	}

	size := 2 * len(b.buf)
	if size < length+n {
		size = length + n
	}
	size = (size + allocSize - 1) / allocSize * allocSize
	if size > MaxLength {
		if length+n > MaxLength {
			return scanerr.Errorf(scanerr.KindAllocation, "bytebuf: grow",
				"buffer of %d bytes exceeds limit of %d", length+n, MaxLength)
		}
		size = MaxLength
	}

	grown := make([]byte, size)
	copy(grown, b.buf[b.off:b.end])
	b.buf = grown
	b.off, b.end = 0, length
	b.stats.Grows++
	return nil
}

func (b *Buffer) need(n int) error {
	if n < 0 || n > b.Len() {
		return b.short(n)
	}
	return nil
}

func (b *Buffer) short(n int) error {
	return scanerr.Errorf(scanerr.KindInsufficientData, "bytebuf",
		"wanted %d bytes, only %d available", n, b.Len())
}

// next consumes n bytes. Callers must have checked availability.
func (b *Buffer) next(n int) []byte {
	if n > b.end-b.off {
		panic(fmt.Sprintf("bytebuf: unchecked read of %d bytes with %d available", n, b.end-b.off))
	}
	p := b.buf[b.off : b.off+n : b.off+n]
	b.off += n
	return p
}

// take is the checked form of next.
func (b *Buffer) take(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	return b.next(n), nil
}

// Next consumes and returns the next n bytes without copying. It panics if
// fewer than n bytes are available.
func (b *Buffer) Next(n int) []byte { return b.next(n) }

// ReadBytes consumes n bytes and returns a copy of them.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	p, err := b.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p)
	return out, nil
}

// Reader returns an io.Reader that yields the buffered bytes first and then
// continues with r. This is the hand-off point for external codecs.
func (b *Buffer) Reader(r io.Reader) io.Reader {
	return &bufferReader{b: b, r: r}
}

type bufferReader struct {
	b *Buffer
	r io.Reader
}

func (br *bufferReader) Read(p []byte) (int, error) {
	if br.b.Len() > 0 {
		n := copy(p, br.b.Bytes())
		br.b.off += n
		return n, nil
	}
	if br.r == nil {
		return 0, io.EOF
	}
	return br.r.Read(p)
}
