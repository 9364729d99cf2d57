package bytebuf

import (
	"encoding/binary"
	"math"
)

// FourCC is a four byte chunk or format tag.
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

// NewFourCC converts a four character string to a FourCC.
func NewFourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

// U8 consumes one byte.
func (b *Buffer) U8() uint8 { return b.next(1)[0] }

// U16LE consumes a little-endian uint16.
func (b *Buffer) U16LE() uint16 { return binary.LittleEndian.Uint16(b.next(2)) }

// U16BE consumes a big-endian uint16.
func (b *Buffer) U16BE() uint16 { return binary.BigEndian.Uint16(b.next(2)) }

// U24LE consumes a little-endian 24-bit unsigned integer.
func (b *Buffer) U24LE() uint32 {
	p := b.next(3)
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
}

// U24BE consumes a big-endian 24-bit unsigned integer.
func (b *Buffer) U24BE() uint32 {
	p := b.next(3)
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}

// U32LE consumes a little-endian uint32.
func (b *Buffer) U32LE() uint32 { return binary.LittleEndian.Uint32(b.next(4)) }

// U32BE consumes a big-endian uint32.
func (b *Buffer) U32BE() uint32 { return binary.BigEndian.Uint32(b.next(4)) }

// U64LE consumes a little-endian uint64.
func (b *Buffer) U64LE() uint64 { return binary.LittleEndian.Uint64(b.next(8)) }

// U64BE consumes a big-endian uint64.
func (b *Buffer) U64BE() uint64 { return binary.BigEndian.Uint64(b.next(8)) }

// I16LE consumes a little-endian int16.
func (b *Buffer) I16LE() int16 { return int16(b.U16LE()) }

// I16BE consumes a big-endian int16.
func (b *Buffer) I16BE() int16 { return int16(b.U16BE()) }

// I32LE consumes a little-endian int32.
func (b *Buffer) I32LE() int32 { return int32(b.U32LE()) }

// I32BE consumes a big-endian int32.
func (b *Buffer) I32BE() int32 { return int32(b.U32BE()) }

// F32LE consumes a little-endian IEEE 754 float32.
func (b *Buffer) F32LE() float32 { return math.Float32frombits(b.U32LE()) }

// F32BE consumes a big-endian IEEE 754 float32.
func (b *Buffer) F32BE() float32 { return math.Float32frombits(b.U32BE()) }

// F64LE consumes a little-endian IEEE 754 float64.
func (b *Buffer) F64LE() float64 { return math.Float64frombits(b.U64LE()) }

// F64BE consumes a big-endian IEEE 754 float64.
func (b *Buffer) F64BE() float64 { return math.Float64frombits(b.U64BE()) }

// Extended consumes a big-endian 80-bit IEEE 754 extended precision value,
// the encoding AIFF uses for sample rates.
func (b *Buffer) Extended() float64 {
	p := b.next(10)
	expon := int(p[0]&0x7f)<<8 | int(p[1])
	hiMant := binary.BigEndian.Uint32(p[2:6])
	loMant := binary.BigEndian.Uint32(p[6:10])

	var f float64
	switch {
	case expon == 0 && hiMant == 0 && loMant == 0:
		f = 0
	case expon == 0x7fff:
		f = math.Inf(1)
	default:
		expon -= 16383
		expon -= 31
		f = math.Ldexp(float64(hiMant), expon)
		expon -= 32
		f += math.Ldexp(float64(loMant), expon)
	}
	if p[0]&0x80 != 0 {
		return -f
	}
	return f
}

// FourCC consumes a four byte tag.
func (b *Buffer) FourCC() FourCC {
	var f FourCC
	copy(f[:], b.next(4))
	return f
}

// Syncsafe consumes an ID3v2 syncsafe integer of 4 or 5 bytes. Each byte
// carries 7 bits; the leading byte of a 5 byte value carries 4.
func (b *Buffer) Syncsafe(n int) uint32 {
	p := b.next(n)
	var v uint32
	i := 0
	if n == 5 {
		v = uint32(p[0] & 0x0f)
		i = 1
	}
	for ; i < n; i++ {
		v = v<<7 | uint32(p[i]&0x7f)
	}
	return v
}

// ReadU8 is the checked form of U8.
func (b *Buffer) ReadU8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	return b.U8(), nil
}

// ReadU16LE is the checked form of U16LE.
func (b *Buffer) ReadU16LE() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	return b.U16LE(), nil
}

// ReadU16BE is the checked form of U16BE.
func (b *Buffer) ReadU16BE() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	return b.U16BE(), nil
}

// ReadU24LE is the checked form of U24LE.
func (b *Buffer) ReadU24LE() (uint32, error) {
	if err := b.need(3); err != nil {
		return 0, err
	}
	return b.U24LE(), nil
}

// ReadU24BE is the checked form of U24BE.
func (b *Buffer) ReadU24BE() (uint32, error) {
	if err := b.need(3); err != nil {
		return 0, err
	}
	return b.U24BE(), nil
}

// ReadU32LE is the checked form of U32LE.
func (b *Buffer) ReadU32LE() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	return b.U32LE(), nil
}

// ReadU32BE is the checked form of U32BE.
func (b *Buffer) ReadU32BE() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	return b.U32BE(), nil
}

// ReadU64LE is the checked form of U64LE.
func (b *Buffer) ReadU64LE() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	return b.U64LE(), nil
}

// ReadU64BE is the checked form of U64BE.
func (b *Buffer) ReadU64BE() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	return b.U64BE(), nil
}

// ReadI16LE is the checked form of I16LE.
func (b *Buffer) ReadI16LE() (int16, error) {
	v, err := b.ReadU16LE()
	return int16(v), err
}

// ReadI16BE is the checked form of I16BE.
func (b *Buffer) ReadI16BE() (int16, error) {
	v, err := b.ReadU16BE()
	return int16(v), err
}

// ReadI32LE is the checked form of I32LE.
func (b *Buffer) ReadI32LE() (int32, error) {
	v, err := b.ReadU32LE()
	return int32(v), err
}

// ReadI32BE is the checked form of I32BE.
func (b *Buffer) ReadI32BE() (int32, error) {
	v, err := b.ReadU32BE()
	return int32(v), err
}

// ReadF32LE is the checked form of F32LE.
func (b *Buffer) ReadF32LE() (float32, error) {
	v, err := b.ReadU32LE()
	return math.Float32frombits(v), err
}

// ReadF32BE is the checked form of F32BE.
func (b *Buffer) ReadF32BE() (float32, error) {
	v, err := b.ReadU32BE()
	return math.Float32frombits(v), err
}

// ReadF64LE is the checked form of F64LE.
func (b *Buffer) ReadF64LE() (float64, error) {
	v, err := b.ReadU64LE()
	return math.Float64frombits(v), err
}

// ReadF64BE is the checked form of F64BE.
func (b *Buffer) ReadF64BE() (float64, error) {
	v, err := b.ReadU64BE()
	return math.Float64frombits(v), err
}

// ReadExtended is the checked form of Extended.
func (b *Buffer) ReadExtended() (float64, error) {
	if err := b.need(10); err != nil {
		return 0, err
	}
	return b.Extended(), nil
}

// ReadFourCC is the checked form of FourCC.
func (b *Buffer) ReadFourCC() (FourCC, error) {
	if err := b.need(4); err != nil {
		return FourCC{}, err
	}
	return b.FourCC(), nil
}

// ReadSyncsafe is the checked form of Syncsafe.
func (b *Buffer) ReadSyncsafe(n int) (uint32, error) {
	if n != 4 && n != 5 {
		return 0, b.short(n)
	}
	if err := b.need(n); err != nil {
		return 0, err
	}
	return b.Syncsafe(n), nil
}
