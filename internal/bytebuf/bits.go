package bytebuf

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"media-scanner/internal/scanerr"
)

// ReadBits returns the next n bits (1..32), most significant bit first.
// Whole bytes are pulled from the window into a cache as needed; bits left
// over stay cached until the next ReadBits or ClearBits.
func (b *Buffer) ReadBits(n uint) (uint32, error) {
	if n == 0 || n > 32 {
		return 0, scanerr.Errorf(scanerr.KindMalformed, "bytebuf: bits", "cannot read %d bits", n)
	}
	for b.ncached < n {
		c, err := b.ReadU8()
		if err != nil {
			return 0, err
		}
		b.cache = b.cache<<8 | uint64(c)
		b.ncached += 8
	}
	return b.Bits(n), nil
}

// Bits takes n bits from the cache. The cache must already hold them.
func (b *Buffer) Bits(n uint) uint32 {
	b.ncached -= n
	v := uint32(b.cache >> b.ncached)
	if n < 32 {
		v &= 1<<n - 1
	}
	b.cache &= 1<<b.ncached - 1
	return v
}

// ClearBits drops any partially consumed byte from the bit cache, realigning
// the reader on the next whole byte.
func (b *Buffer) ClearBits() {
	b.cache = 0
	b.ncached = 0
}

// ReadLatin1 consumes n bytes of ISO-8859-1 text and returns it as UTF-8 with
// trailing NULs removed.
func (b *Buffer) ReadLatin1(n int) (string, error) {
	p, err := b.take(n)
	if err != nil {
		return "", err
	}
	return decodeText(charmap.ISO8859_1.NewDecoder(), trimNUL(p, 1))
}

// ReadUTF8 consumes n bytes of UTF-8 text with trailing NULs removed. Invalid
// sequences are replaced with U+FFFD.
func (b *Buffer) ReadUTF8(n int) (string, error) {
	p, err := b.take(n)
	if err != nil {
		return "", err
	}
	p = trimNUL(p, 1)
	if utf8.Valid(p) {
		return string(p), nil
	}
	return string(bytes.ToValidUTF8(p, []byte("�"))), nil
}

// ReadUTF16 consumes n bytes of UTF-16 text. A byte order mark, if present,
// overrides order.
func (b *Buffer) ReadUTF16(n int, order binary.ByteOrder) (string, error) {
	p, err := b.take(n)
	if err != nil {
		return "", err
	}
	endian := unicode.LittleEndian
	if order == binary.BigEndian {
		endian = unicode.BigEndian
	}
	dec := unicode.UTF16(endian, unicode.ExpectBOM).NewDecoder()
	if len(p) < 2 || !hasBOM(p) {
		dec = unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
	}
	return decodeText(dec, trimNUL(p, 2))
}

func hasBOM(p []byte) bool {
	return (p[0] == 0xff && p[1] == 0xfe) || (p[0] == 0xfe && p[1] == 0xff)
}

// trimNUL strips trailing zero code units of the given width.
func trimNUL(p []byte, width int) []byte {
	for len(p) >= width {
		tail := p[len(p)-width:]
		zero := true
		for _, c := range tail {
			if c != 0 {
				zero = false
				break
			}
		}
		if !zero {
			break
		}
		p = p[:len(p)-width]
	}
	return p
}

func decodeText(dec *encoding.Decoder, p []byte) (string, error) {
	out, err := dec.Bytes(p)
	if err != nil {
		return "", scanerr.Wrap(scanerr.KindMalformed, "bytebuf: text", err)
	}
	return string(out), nil
}
