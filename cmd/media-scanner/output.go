package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"media-scanner/internal/events"
	"media-scanner/internal/logging"
	"media-scanner/internal/media"
	"media-scanner/internal/scanerr"
)

// record is one JSON line on stdout.
type record struct {
	Event     string           `json:"event"`
	Path      string           `json:"path,omitempty"`
	Result    *media.Result    `json:"result,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Progress  *events.Progress `json:"progress,omitempty"`
}

// output consumes scan events on the main goroutine.
type output struct {
	w        io.Writer
	progress io.Writer
	json     bool
	enc      *json.Encoder
	thumbDir string
	tracker  *events.Tracker
}

// useJSON resolves OUTPUT_FORMAT; "auto" writes text only to a terminal.
func useJSON(format string, f *os.File) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !term.IsTerminal(int(f.Fd()))
	}
}

// newOutput writes results to w and, in text mode, progress lines to
// progress. thumbDir may be empty.
func newOutput(w, progress io.Writer, asJSON bool, thumbDir string, tracker *events.Tracker) *output {
	return &output{
		w:        w,
		progress: progress,
		json:     asJSON,
		enc:      json.NewEncoder(w),
		thumbDir: thumbDir,
		tracker:  tracker,
	}
}

// handle is the events.Handler of the scan.
func (o *output) handle(ev events.Event) {
	if o.tracker != nil {
		o.tracker.Observe(ev)
	}
	if ev.Kind == events.KindResult && o.thumbDir != "" {
		o.writeThumbnails(ev.Result)
	}

	var err error
	if o.json {
		err = o.enc.Encode(toRecord(ev))
	} else {
		err = o.text(ev)
	}
	if err != nil {
		logging.Error("failed to write %s event: %v", ev.Kind, err)
	}
}

func toRecord(ev events.Event) record {
	r := record{Event: ev.Kind.String(), Path: ev.Path}
	switch ev.Kind {
	case events.KindResult:
		r.Result = ev.Result
	case events.KindError:
		r.ErrorKind = scanerr.KindOf(ev.Err).String()
		r.Error = ev.Err.Error()
	case events.KindProgress, events.KindFinished:
		p := ev.Progress
		r.Progress = &p
		if ev.Err != nil {
			r.ErrorKind = scanerr.KindOf(ev.Err).String()
			r.Error = ev.Err.Error()
		}
	}
	return r
}

func (o *output) text(ev events.Event) error {
	var err error
	switch ev.Kind {
	case events.KindResult:
		_, err = fmt.Fprintln(o.w, describe(ev.Result))
	case events.KindError:
		_, err = fmt.Fprintf(o.w, "%-8s %s: %v\n", "error", ev.Path, ev.Err)
	case events.KindProgress:
		p := ev.Progress
		_, err = fmt.Fprintf(o.progress, "[%s] %d scanned, %d errors, %d cached, %.1f files/s\n",
			p.Phase, p.Done, p.Errors, p.Skipped, p.Rate)
	case events.KindFinished:
		p := ev.Progress
		_, err = fmt.Fprintf(o.progress, "Scan %s: %d scanned, %d errors, %d cached in %v\n",
			p.Phase, p.Done, p.Errors, p.Skipped, p.Elapsed.Round(time.Millisecond))
		if err == nil && ev.Err != nil {
			_, err = fmt.Fprintf(o.progress, "Fatal: %v\n", ev.Err)
		}
	}
	return err
}

// describe renders a result as one human-readable line.
func describe(r *media.Result) string {
	line := fmt.Sprintf("%-8s %s", r.Type, r.Path)
	switch {
	case r.Width > 0:
		w, h := r.DisplaySize()
		line += fmt.Sprintf("  %s %dx%d", r.Format, w, h)
		if r.HasAlpha {
			line += " alpha"
		}
		if n := len(r.Thumbnails); n > 0 {
			line += fmt.Sprintf(" (%d thumbnails)", n)
		}
	case r.Audio != nil:
		line += fmt.Sprintf("  %s %d Hz %d ch %d bit %s",
			r.Format, r.Audio.SampleRate, r.Audio.Channels, r.Audio.BitsPerSample,
			(time.Duration(r.Audio.DurationMS) * time.Millisecond).Round(time.Second))
	case r.Video != nil:
		line += fmt.Sprintf("  %s %dx%d", r.Format, r.Video.Width, r.Video.Height)
	case r.Playlist != nil:
		line += fmt.Sprintf("  %s %q %d entries", r.Playlist.Format, r.Playlist.Name, len(r.Playlist.Entries))
		if r.Playlist.Missing > 0 {
			line += fmt.Sprintf(", %d missing", r.Playlist.Missing)
		}
	}
	if title := r.Tags["title"]; title != "" {
		line += fmt.Sprintf("  %q", title)
	}
	return line
}

// writeThumbnails stores each thumbnail as <fingerprint>_<w>x<h>.<ext> and
// drops the encoded bytes from the result.
func (o *output) writeThumbnails(r *media.Result) {
	for i := range r.Thumbnails {
		t := &r.Thumbnails[i]
		if len(t.Data) == 0 {
			continue
		}
		name := fmt.Sprintf("%016x_%dx%d.%s", r.Fingerprint, t.Width, t.Height, extension(t.Format))
		path := filepath.Join(o.thumbDir, name)
		if err := os.WriteFile(path, t.Data, 0o644); err != nil {
			logging.Warn("Failed to write thumbnail for %s: %v", r.Path, err)
			continue
		}
		t.File = path
		t.Data = nil
	}
}

func extension(f media.OutputFormat) string {
	if f == media.OutputPNG {
		return "png"
	}
	return "jpg"
}
