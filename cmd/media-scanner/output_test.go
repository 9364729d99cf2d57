package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-scanner/internal/container"
	"media-scanner/internal/events"
	"media-scanner/internal/media"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/playlist"
	"media-scanner/internal/scanerr"
)

func imageResult() *media.Result {
	return &media.Result{
		Path:        "/media/a.jpg",
		Type:        mediatypes.FileTypeImage,
		MimeType:    "image/jpeg",
		Format:      media.FormatJPEG,
		Width:       40,
		Height:      30,
		Orientation: 6,
		Fingerprint: 0xabc,
		Thumbnails: []media.Thumbnail{
			{Width: 8, Height: 6, Format: media.OutputJPEG, MimeType: "image/jpeg", Bytes: 3, Data: []byte{1, 2, 3}},
			{Width: 4, Height: 3, Format: media.OutputPNG, MimeType: "image/png", Bytes: 2, Data: []byte{4, 5}},
		},
	}
}

func TestUseJSON(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		format string
		want   bool
	}{
		{"json", true},
		{"text", false},
		{"auto", true}, // a regular file is not a terminal
	}
	for _, tt := range tests {
		if got := useJSON(tt.format, f); got != tt.want {
			t.Errorf("useJSON(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestOutputJSONLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	tracker := events.NewTracker()
	out := newOutput(&stdout, &stderr, true, "", tracker)

	out.handle(events.Event{Kind: events.KindResult, Path: "/media/a.jpg", Result: imageResult()})
	out.handle(events.Event{Kind: events.KindError, Path: "/media/b.bmp",
		Err: scanerr.WithPath(scanerr.New(scanerr.KindUnsupported, "bmp", "RLE compression"), "/media/b.bmp")})
	out.handle(events.Event{Kind: events.KindFinished, Progress: events.Progress{Phase: events.PhaseDone, Done: 1, Errors: 1}})

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("JSON mode wrote to stderr: %q", stderr.String())
	}

	var result struct {
		Event  string `json:"event"`
		Result struct {
			Path       string           `json:"path"`
			Width      int              `json:"width"`
			Thumbnails []map[string]any `json:"thumbnails"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &result); err != nil {
		t.Fatalf("line 1: %v", err)
	}
	if result.Event != "result" || result.Result.Path != "/media/a.jpg" || result.Result.Width != 40 {
		t.Errorf("line 1 = %s", lines[0])
	}
	if len(result.Result.Thumbnails) != 2 {
		t.Fatalf("thumbnails = %v", result.Result.Thumbnails)
	}
	if _, ok := result.Result.Thumbnails[0]["data"]; ok {
		t.Error("thumbnail bytes leaked into JSON")
	}

	var errRec record
	if err := json.Unmarshal([]byte(lines[1]), &errRec); err != nil {
		t.Fatalf("line 2: %v", err)
	}
	if errRec.Event != "error" || errRec.ErrorKind != "unsupported" || !strings.Contains(errRec.Error, "RLE") {
		t.Errorf("line 2 = %s", lines[1])
	}

	var fin record
	if err := json.Unmarshal([]byte(lines[2]), &fin); err != nil {
		t.Fatalf("line 3: %v", err)
	}
	if fin.Event != "finished" || fin.Progress == nil || fin.Progress.Phase != events.PhaseDone {
		t.Errorf("line 3 = %s", lines[2])
	}

	if st := tracker.Status(); !st.Ready || st.Progress.Errors != 1 {
		t.Errorf("tracker not fed: %+v", st)
	}
}

func TestOutputText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newOutput(&stdout, &stderr, false, "", nil)

	out.handle(events.Event{Kind: events.KindResult, Path: "/media/a.jpg", Result: imageResult()})
	out.handle(events.Event{Kind: events.KindResult, Path: "/media/s.wav", Result: &media.Result{
		Path:   "/media/s.wav",
		Type:   mediatypes.FileTypeAudio,
		Format: media.FormatWAV,
		Audio:  &container.AudioInfo{SampleRate: 44100, Channels: 2, BitsPerSample: 16, DurationMS: 61_400},
		Tags:   map[string]string{"title": "Intro"},
	}})
	out.handle(events.Event{Kind: events.KindResult, Path: "/media/l.m3u", Result: &media.Result{
		Path:     "/media/l.m3u",
		Type:     mediatypes.FileTypePlaylist,
		Playlist: &playlist.Playlist{Name: "Mix", Format: playlist.FormatM3U, Missing: 1,
			Entries: []playlist.Entry{{Src: "a.mp3"}, {Src: "b.mp3"}}},
	}})
	out.handle(events.Event{Kind: events.KindError, Path: "/media/c.png", Err: scanerr.New(scanerr.KindInsufficientData, "png", "truncated")})
	out.handle(events.Event{Kind: events.KindProgress, Progress: events.Progress{Phase: events.PhaseWalking, Done: 2, Errors: 1, Rate: 4}})
	out.handle(events.Event{Kind: events.KindFinished, Progress: events.Progress{Phase: events.PhaseFailed, Done: 2, Errors: 1, Elapsed: 1500 * time.Millisecond},
		Err: scanerr.New(scanerr.KindAllocation, "resample", "out of memory")})

	got := stdout.String()
	for _, want := range []string{
		"image    /media/a.jpg  jpeg 30x40 (2 thumbnails)",
		"audio    /media/s.wav  wav 44100 Hz 2 ch 16 bit 1m1s  \"Intro\"",
		"playlist /media/l.m3u  m3u \"Mix\" 2 entries, 1 missing",
		"error    /media/c.png: ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("stdout missing %q:\n%s", want, got)
		}
	}

	progress := stderr.String()
	for _, want := range []string{
		"[walking] 2 scanned, 1 errors, 0 cached, 4.0 files/s",
		"Scan failed: 2 scanned, 1 errors, 0 cached in 1.5s",
		"Fatal: ",
	} {
		if !strings.Contains(progress, want) {
			t.Errorf("stderr missing %q:\n%s", want, progress)
		}
	}
}

func TestOutputWritesThumbnails(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	out := newOutput(&stdout, &stdout, true, dir, nil)

	res := imageResult()
	out.handle(events.Event{Kind: events.KindResult, Path: res.Path, Result: res})

	wantFiles := []string{
		filepath.Join(dir, "0000000000000abc_8x6.jpg"),
		filepath.Join(dir, "0000000000000abc_4x3.png"),
	}
	for i, want := range wantFiles {
		thumb := res.Thumbnails[i]
		if thumb.File != want {
			t.Errorf("thumbnail %d File = %q, want %q", i, thumb.File, want)
		}
		if thumb.Data != nil {
			t.Errorf("thumbnail %d still holds its bytes", i)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("thumbnail %d not written: %v", i, err)
		}
		if len(data) != thumb.Bytes {
			t.Errorf("thumbnail %d has %d bytes, want %d", i, len(data), thumb.Bytes)
		}
	}

	if !strings.Contains(stdout.String(), `"file":"`+wantFiles[0]+`"`) {
		t.Errorf("JSON does not name the written file: %s", stdout.String())
	}
}
