package memory

import (
	"testing"
)

type fakeRuntime struct {
	env   map[string]string
	limit int64
	sets  []int64
}

func (f *fakeRuntime) getenv(key string) string { return f.env[key] }

func (f *fakeRuntime) setLimit(v int64) int64 {
	prev := f.limit
	if v >= 0 {
		f.sets = append(f.sets, v)
		f.limit = v
	}
	return prev
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		limit      int64
		wantSource string
		wantLimit  int64
		wantRatio  float64
		wantSet    bool
	}{
		{
			name:       "nothing set",
			env:        map[string]string{},
			wantSource: "none",
		},
		{
			name:       "GOMEMLIMIT wins",
			env:        map[string]string{"GOMEMLIMIT": "512MiB", "MEMORY_LIMIT": "1073741824"},
			limit:      512 << 20,
			wantSource: "GOMEMLIMIT",
			wantLimit:  512 << 20,
		},
		{
			name:       "MEMORY_LIMIT with default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850000,
			wantRatio:  DefaultMemoryRatio,
			wantSet:    true,
		},
		{
			name:       "MEMORY_LIMIT with custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "0.5"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  500000,
			wantRatio:  0.5,
			wantSet:    true,
		},
		{
			name:       "ratio out of range falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "1.5"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850000,
			wantRatio:  DefaultMemoryRatio,
			wantSet:    true,
		},
		{
			name:       "unparseable ratio falls back",
			env:        map[string]string{"MEMORY_LIMIT": "1000000", "MEMORY_RATIO": "most"},
			wantSource: "MEMORY_LIMIT",
			wantLimit:  850000,
			wantRatio:  DefaultMemoryRatio,
			wantSet:    true,
		},
		{
			name:       "unparseable limit",
			env:        map[string]string{"MEMORY_LIMIT": "1Gi"},
			wantSource: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{env: tt.env, limit: tt.limit}
			got := configure(rt.getenv, rt.setLimit)

			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantLimit)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %f, want %f", got.Ratio, tt.wantRatio)
			}
			if got.Configured != (tt.wantLimit > 0) {
				t.Errorf("Configured = %v", got.Configured)
			}
			if tt.wantSet != (len(rt.sets) == 1) {
				t.Errorf("SetMemoryLimit calls = %v", rt.sets)
			}
		})
	}
}

func TestPixelBudget(t *testing.T) {
	tests := []struct {
		name      string
		override  int64
		heapLimit int64
		want      int64
	}{
		{"default", 0, 0, DefaultPixelBudget},
		{"override", 4096, 1 << 30, 4096},
		{"from heap limit", 0, 400 << 20, (100 << 20) / 4},
		{"capped", 0, 1 << 40, MaxPixelBudget},
		{"tiny heap", 0, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PixelBudget(tt.override, tt.heapLimit); got != tt.want {
				t.Errorf("PixelBudget(%d, %d) = %d, want %d", tt.override, tt.heapLimit, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{850 << 20, "850.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
