package media

import (
	"time"

	"media-scanner/internal/container"
	"media-scanner/internal/imagebuf"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/playlist"
)

// Result is everything the scanner learned about one file.
type Result struct {
	Path        string               `json:"path"`
	Type        mediatypes.FileType  `json:"type"`
	MimeType    string               `json:"mimeType"`
	Size        int64                `json:"size"`
	ModTime     time.Time            `json:"modTime"`
	Fingerprint uint64               `json:"fingerprint,omitempty"`
	Format      Format               `json:"format,omitempty"`
	Codec       string               `json:"codec,omitempty"`
	Width       int                  `json:"width,omitempty"`
	Height      int                  `json:"height,omitempty"`
	Orientation imagebuf.Orientation `json:"orientation,omitempty"`
	HasAlpha    bool                 `json:"hasAlpha,omitempty"`

	Audio *container.AudioInfo `json:"audio,omitempty"`
	Video *container.VideoInfo `json:"video,omitempty"`
	Tags  map[string]string    `json:"tags,omitempty"`

	Playlist *playlist.Playlist `json:"playlist,omitempty"`

	// Thumbnails are in the order their specs were configured.
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// Thumbnail is one encoded thumbnail.
type Thumbnail struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Format   OutputFormat `json:"format"`
	MimeType string       `json:"mimeType"`
	Bytes    int          `json:"bytes"`

	// Data is omitted from JSON; the CLI writes it to disk when asked to
	// and records the file it wrote in File.
	Data []byte `json:"-"`
	File string `json:"file,omitempty"`
}

// DisplaySize returns the dimensions after orientation is applied.
func (r *Result) DisplaySize() (width, height int) {
	if r.Orientation.Swaps() {
		return r.Height, r.Width
	}
	return r.Width, r.Height
}
