package scanner

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies one version of a file. It changes whenever the file
// is moved, rewritten or touched.
func Fingerprint(path string, modTime time.Time, size int64) uint64 {
	var tail [16]byte
	binary.LittleEndian.PutUint64(tail[:8], uint64(modTime.UnixNano()))
	binary.LittleEndian.PutUint64(tail[8:], uint64(size))

	d := xxhash.New()
	_, _ = d.WriteString(path)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(tail[:])
	return d.Sum64()
}
