package resample

import "math"

// Fixed is a signed 19.12 fixed-point number.
type Fixed int32

const (
	fracBits       = 12
	one      Fixed = 1 << fracBits
	fracMask Fixed = one - 1

	// maxDimension is the largest pixel count per axis Fixed can hold.
	maxDimension = math.MaxInt32 >> fracBits
)

// FromInt converts an integer.
func FromInt(i int) Fixed { return Fixed(i << fracBits) }

// FromFloat converts a float64, truncating toward zero.
func FromFloat(f float64) Fixed { return Fixed(f * float64(one)) }

// Int returns the integer part, rounding toward negative infinity.
func (f Fixed) Int() int { return int(f >> fracBits) }

// Float converts back to float64.
func (f Fixed) Float() float64 { return float64(f) / float64(one) }

// Floor clears the fractional bits.
func (f Fixed) Floor() Fixed { return f &^ fracMask }

// Mul multiplies two fixed-point numbers.
func Mul(a, b Fixed) Fixed { return Fixed((int64(a) * int64(b)) >> fracBits) }

// Div divides a by b. b must not be zero.
func Div(a, b Fixed) Fixed { return Fixed((int64(a) << fracBits) / int64(b)) }
