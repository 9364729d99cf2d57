package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "BMP image", ext: ".bmp", want: FileTypeImage},
		{name: "HEIC image", ext: ".heic", want: FileTypeImage},
		{name: "MP4 video", ext: ".mp4", want: FileTypeVideo},
		{name: "AVI video", ext: ".avi", want: FileTypeVideo},
		{name: "WebM video", ext: ".webm", want: FileTypeVideo},
		{name: "WAV audio", ext: ".wav", want: FileTypeAudio},
		{name: "AIFF audio", ext: ".aiff", want: FileTypeAudio},
		{name: "MP3 audio", ext: ".mp3", want: FileTypeAudio},
		{name: "WPL playlist", ext: ".wpl", want: FileTypePlaylist},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestWebPIsImageOnly(t *testing.T) {
	if VideoExtensions[".webp"] {
		t.Error(".webp must not be listed as video")
	}
	if GetFileType(".webp") != FileTypeImage {
		t.Errorf("GetFileType(.webp) = %v, want image", GetFileType(".webp"))
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{name: "JPEG mime type", ext: ".jpg", want: "image/jpeg"},
		{name: "BMP mime type", ext: ".bmp", want: "image/bmp"},
		{name: "MP4 mime type", ext: ".mp4", want: "video/mp4"},
		{name: "WAV mime type", ext: ".wav", want: "audio/wav"},
		{name: "AIFC mime type", ext: ".aifc", want: "audio/aiff"},
		{name: "WPL mime type", ext: ".wpl", want: "application/vnd.ms-wpl"},
		{name: "Unknown extension returns octet-stream", ext: ".unknown", want: "application/octet-stream"},
		{name: "Empty extension returns octet-stream", ext: "", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetMimeType(tt.ext)
			if got != tt.want {
				t.Errorf("GetMimeType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestEveryExtensionHasMimeType(t *testing.T) {
	for _, set := range []map[string]bool{ImageExtensions, VideoExtensions, AudioExtensions, PlaylistExtensions} {
		for ext := range set {
			if _, ok := MimeTypes[ext]; !ok {
				t.Errorf("no MIME type for %s", ext)
			}
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want bool
	}{
		{name: "JPEG is media", ext: ".jpg", want: true},
		{name: "FLAC is media", ext: ".flac", want: true},
		{name: "WPL is media", ext: ".wpl", want: true},
		{name: "Unknown extension is not media", ext: ".txt", want: false},
		{name: "Empty extension is not media", ext: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsMediaFile(tt.ext)
			if got != tt.want {
				t.Errorf("IsMediaFile(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photos/IMG_0001.JPG", ".jpg"},
		{"/music/track.Wav", ".wav"},
		{"noext", ""},
		{"dir.d/file", ""},
		{".hidden", ".hidden"},
	}
	for _, tt := range tests {
		if got := Ext(tt.path); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFileTypeConstants(t *testing.T) {
	// Ensure constants have expected values
	if FileTypeFolder != "folder" {
		t.Errorf("FileTypeFolder = %v, want 'folder'", FileTypeFolder)
	}
	if FileTypeImage != "image" {
		t.Errorf("FileTypeImage = %v, want 'image'", FileTypeImage)
	}
	if FileTypeVideo != "video" {
		t.Errorf("FileTypeVideo = %v, want 'video'", FileTypeVideo)
	}
	if FileTypeAudio != "audio" {
		t.Errorf("FileTypeAudio = %v, want 'audio'", FileTypeAudio)
	}
	if FileTypePlaylist != "playlist" {
		t.Errorf("FileTypePlaylist = %v, want 'playlist'", FileTypePlaylist)
	}
	if FileTypeOther != "other" {
		t.Errorf("FileTypeOther = %v, want 'other'", FileTypeOther)
	}
}
