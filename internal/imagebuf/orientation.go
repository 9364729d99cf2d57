package imagebuf

import "fmt"

// Orientation is an EXIF orientation value.
type Orientation uint8

const (
	OrientNormal     Orientation = 1
	OrientMirrorH    Orientation = 2
	OrientRotate180  Orientation = 3
	OrientMirrorV    Orientation = 4
	OrientTranspose  Orientation = 5
	OrientRotate90   Orientation = 6 // clockwise
	OrientTransverse Orientation = 7
	OrientRotate270  Orientation = 8
)

// Valid reports whether o is one of the eight EXIF values.
func (o Orientation) Valid() bool { return o >= OrientNormal && o <= OrientRotate270 }

// Swaps reports whether displaying the image swaps its width and height.
func (o Orientation) Swaps() bool { return o >= OrientTranspose && o <= OrientRotate270 }

// Map returns where pixel (x, y) of a w by h raster lands once the
// orientation is applied. For orientations that swap, the destination raster
// is h wide and w tall.
func (o Orientation) Map(x, y, w, h int) (int, int) {
	switch o {
	case OrientMirrorH:
		return w - 1 - x, y
	case OrientRotate180:
		return w - 1 - x, h - 1 - y
	case OrientMirrorV:
		return x, h - 1 - y
	case OrientTranspose:
		return y, x
	case OrientRotate90:
		return h - 1 - y, x
	case OrientTransverse:
		return h - 1 - y, w - 1 - x
	case OrientRotate270:
		return y, w - 1 - x
	default:
		return x, y
	}
}

func (o Orientation) String() string {
	switch o {
	case OrientNormal:
		return "normal"
	case OrientMirrorH:
		return "mirror-horizontal"
	case OrientRotate180:
		return "rotate-180"
	case OrientMirrorV:
		return "mirror-vertical"
	case OrientTranspose:
		return "transpose"
	case OrientRotate90:
		return "rotate-90"
	case OrientTransverse:
		return "transverse"
	case OrientRotate270:
		return "rotate-270"
	default:
		return fmt.Sprintf("orientation(%d)", uint8(o))
	}
}
