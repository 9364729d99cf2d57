package playlist

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// wplDoc is the SMIL subset Windows Media Player writes.
type wplDoc struct {
	XMLName xml.Name `xml:"smil"`
	Head    struct {
		Title string `xml:"title"`
	} `xml:"head"`
	Body struct {
		Seq struct {
			Media []struct {
				Src string `xml:"src,attr"`
			} `xml:"media"`
		} `xml:"seq"`
	} `xml:"body"`
}

func parseWPL(data []byte) (*Playlist, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.CharsetReader = charsetReader
	dec.Strict = false

	var doc wplDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	pl := &Playlist{
		Name:    strings.TrimSpace(doc.Head.Title),
		Entries: make([]Entry, 0, len(doc.Body.Seq.Media)),
	}
	for _, m := range doc.Body.Seq.Media {
		if src := strings.TrimSpace(m.Src); src != "" {
			pl.Entries = append(pl.Entries, Entry{Src: src})
		}
	}
	return pl, nil
}

// charsetReader decodes the encodings named in XML declarations.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
