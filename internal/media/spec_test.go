package media

import (
	"strings"
	"testing"

	"media-scanner/internal/imagebuf"
)

func TestParseThumbnailSpecs(t *testing.T) {
	black := imagebuf.Pack(0, 0, 0, 0xff)
	translucent := imagebuf.Pack(0x11, 0x22, 0x33, 0x80)

	tests := []struct {
		name  string
		input string
		want  []ThumbnailSpec
	}{
		{
			name:  "empty",
			input: "  ",
			want:  nil,
		},
		{
			name:  "size only",
			input: "160x120",
			want:  []ThumbnailSpec{{Format: OutputAuto, Width: 160, Height: 120, Quality: DefaultQuality}},
		},
		{
			name:  "derived height",
			input: "160x",
			want:  []ThumbnailSpec{{Format: OutputAuto, Width: 160, Quality: DefaultQuality}},
		},
		{
			name:  "all options",
			input: "320X240, JPG, keep, bg=#000000, q=75",
			want: []ThumbnailSpec{{
				Format: OutputJPEG, Width: 320, Height: 240, KeepAspect: true,
				Background: &black, Quality: 75,
			}},
		},
		{
			name:  "several specs",
			input: "64x64,png;;0x48,bg=11223380",
			want: []ThumbnailSpec{
				{Format: OutputPNG, Width: 64, Height: 64, Quality: DefaultQuality},
				{Format: OutputAuto, Height: 48, Background: &translucent, Quality: DefaultQuality},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThumbnailSpecs(tt.input)
			if err != nil {
				t.Fatalf("ParseThumbnailSpecs(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseThumbnailSpecs(%q) = %d specs, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].String() != tt.want[i].String() {
					t.Errorf("spec %d = %s, want %s", i, got[i], tt.want[i])
				}
				if got[i].Quality != tt.want[i].Quality || got[i].Format != tt.want[i].Format {
					t.Errorf("spec %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseThumbnailSpecsErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"160", "not WxH"},
		{"axb", "invalid dimension"},
		{"-1x10", "invalid dimension"},
		{"10x10,q=0", "out of range"},
		{"10x10,q=101", "out of range"},
		{"10x10,bg=fff", "RRGGBB"},
		{"10x10,bg=zzzzzz", "colour"},
		{"10x10,gif", "unknown option"},
		{strings.Repeat("8x8;", MaxThumbnailSpecs+1), "too many"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseThumbnailSpecs(tt.input)
			if err == nil {
				t.Fatalf("ParseThumbnailSpecs(%q) succeeded, want error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestThumbnailSpecString(t *testing.T) {
	specs, err := ParseThumbnailSpecs("320x240,png,keep,bg=ff8000,q=60")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := specs[0].String(), "320x240,png,keep,bg=ff8000,q=60"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	again, err := ParseThumbnailSpecs(specs[0].String())
	if err != nil {
		t.Fatal(err)
	}
	if *again[0].Background != imagebuf.Pack(0xff, 0x80, 0x00, 0xff) {
		t.Errorf("background = %08x", *again[0].Background)
	}
}

func TestMaxThumbnailSpecsAccepted(t *testing.T) {
	specs, err := ParseThumbnailSpecs(strings.Repeat("8x8;", MaxThumbnailSpecs))
	if err != nil {
		t.Fatalf("ParseThumbnailSpecs() error = %v", err)
	}
	if len(specs) != MaxThumbnailSpecs {
		t.Errorf("got %d specs, want %d", len(specs), MaxThumbnailSpecs)
	}
}
