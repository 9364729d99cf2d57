package playlist

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// parseM3U reads plain and extended M3U. Legacy .m3u files that are not
// valid UTF-8 are read as Windows-1252.
func parseM3U(data []byte, isUTF8 bool) (*Playlist, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !isUTF8 && !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, err
		}
		data = decoded
	}

	pl := &Playlist{Entries: []Entry{}}
	var pending Entry

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), MaxSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "#EXTINF:"):
			pending.DurationSec, pending.Title = parseExtinf(line[len("#EXTINF:"):])
		case strings.HasPrefix(line, "#PLAYLIST:"):
			pl.Name = strings.TrimSpace(line[len("#PLAYLIST:"):])
		case strings.HasPrefix(line, "#"):
		default:
			pending.Src = line
			pl.Entries = append(pl.Entries, pending)
			pending = Entry{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pl, nil
}

// parseExtinf splits "<seconds>[ attrs],<title>". Unknown durations (-1)
// and unparsable ones yield 0.
func parseExtinf(s string) (int, string) {
	head, title, _ := strings.Cut(s, ",")
	if i := strings.IndexByte(head, ' '); i >= 0 {
		head = head[:i]
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
	if err != nil || secs < 0 {
		secs = 0
	}
	return int(secs + 0.5), strings.TrimSpace(title)
}
