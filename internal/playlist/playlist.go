package playlist

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxSize bounds the bytes of one playlist file that are parsed.
const MaxSize = 4 << 20

// ErrTooLarge is returned for playlists over MaxSize.
var ErrTooLarge = errors.New("playlist exceeds size limit")

// Format names a playlist syntax.
type Format string

const (
	FormatWPL  Format = "wpl"
	FormatM3U  Format = "m3u"
	FormatM3U8 Format = "m3u8"
)

// Playlist is a parsed playlist with its entries resolved against the
// playlist's directory.
type Playlist struct {
	Name    string  `json:"name"`
	Format  Format  `json:"format"`
	Entries []Entry `json:"entries"`
	Missing int     `json:"missing,omitempty"`
}

// Entry is one item of a playlist.
type Entry struct {
	// Src is the reference exactly as written in the playlist.
	Src string `json:"src"`

	// Path is the resolved local path. It is empty for URLs.
	Path string `json:"path,omitempty"`

	Title       string `json:"title,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
	Exists      bool   `json:"exists"`
}

// ExistsFunc reports whether a resolved entry path refers to a file.
type ExistsFunc func(path string) bool

// FormatFor returns the playlist format of path's extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wpl":
		return FormatWPL, true
	case ".m3u":
		return FormatM3U, true
	case ".m3u8":
		return FormatM3U8, true
	}
	return "", false
}

// Parse parses data, the contents of the playlist at path. Entries are
// resolved relative to path's directory and checked with exists, which may
// be nil to skip the check.
func Parse(path string, data []byte, exists ExistsFunc) (*Playlist, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, errors.New("not a playlist extension")
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	var (
		pl  *Playlist
		err error
	)
	if format == FormatWPL {
		pl, err = parseWPL(data)
	} else {
		pl, err = parseM3U(data, format == FormatM3U8)
	}
	if err != nil {
		return nil, err
	}

	pl.Format = format
	if pl.Name == "" {
		pl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	dir := filepath.Dir(path)
	for i := range pl.Entries {
		e := &pl.Entries[i]
		e.Path = resolve(dir, e.Src, exists)
		if e.Path == "" || exists == nil {
			continue
		}
		if e.Exists = exists(e.Path); !e.Exists {
			pl.Missing++
		}
	}
	return pl, nil
}

// resolve maps src to a local path. Playlists written on Windows carry
// backslashes and drive letters; when such a path does not exist the file
// name is looked up next to the playlist instead.
func resolve(dir, src string, exists ExistsFunc) string {
	if strings.HasPrefix(src, "file://") {
		src = strings.TrimPrefix(src, "file://")
	} else if strings.Contains(src, "://") {
		return ""
	}

	norm := strings.ReplaceAll(src, `\`, "/")
	foreign := strings.HasPrefix(norm, "//") || hasDriveLetter(norm)

	var candidate string
	switch {
	case foreign:
		candidate = ""
	case filepath.IsAbs(norm):
		candidate = filepath.Clean(norm)
	default:
		candidate = filepath.Join(dir, filepath.FromSlash(norm))
	}

	if candidate != "" && (exists == nil || exists(candidate)) {
		return candidate
	}

	fallback := filepath.Join(dir, baseName(norm))
	if candidate == "" || (exists != nil && exists(fallback)) {
		return fallback
	}
	return candidate
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0] | 0x20
	return c >= 'a' && c <= 'z'
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
