package media

import (
	"bytes"
	"path/filepath"
	"sync"

	"media-scanner/internal/imagebuf"
	"media-scanner/internal/logging"
	"media-scanner/internal/metrics"
	"media-scanner/internal/scanerr"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips starts libvips for the formats no native decoder handles (HEIF,
// AVIF). Call it once at startup; the scanner works without it.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	vips.LoggingSettings(vipsLogHandler(logging.GetLevel()))

	// Each file is decoded once, so the operation cache is kept small.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      16 * 1024 * 1024,
		MaxCacheSize:     10,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// vipsLogHandler forwards libvips messages at or above the application's
// level. libvips is chattier than the scanner, so Info only passes warnings.
func vipsLogHandler(level logging.LogLevel) (func(string, vips.LogLevel, string), vips.LogLevel) {
	min := vips.LogLevelWarning
	switch level {
	case logging.LevelDebug:
		min = vips.LogLevelInfo
	case logging.LevelWarn:
		min = vips.LogLevelError
	case logging.LevelError:
		min = vips.LogLevelCritical
	}
	return func(domain string, l vips.LogLevel, msg string) {
		switch {
		case l > min:
			return
		case l <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case l == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, min
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// vipsImage is an image opened lazily through libvips.
type vipsImage struct {
	ref *vips.ImageRef
}

// openWithVips loads only the header; pixels are decoded by pixels.
func openWithVips(path string) (*vipsImage, error) {
	if !IsVipsAvailable() {
		return nil, scanerr.New(scanerr.KindUnsupported, "vips", "libvips not available")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		metrics.VipsFallbacksTotal.WithLabelValues("error").Inc()
		return nil, scanerr.Wrap(scanerr.KindUnsupported, "vips: load", err)
	}
	logging.Debug("Vips opened %s: %dx%d", filepath.Base(path), ref.Width(), ref.Height())
	return &vipsImage{ref: ref}, nil
}

func (v *vipsImage) size() (int, int) { return v.ref.Width(), v.ref.Height() }

func (v *vipsImage) hasAlpha() bool { return v.ref.HasAlpha() }

// pixels decodes the full image. libvips exports lossless PNG, which is then
// converted into the scanner's raster.
func (v *vipsImage) pixels() (*imagebuf.Image, error) {
	data, _, err := v.ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		metrics.VipsFallbacksTotal.WithLabelValues("error").Inc()
		return nil, scanerr.Wrap(scanerr.KindMalformed, "vips: export", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		metrics.VipsFallbacksTotal.WithLabelValues("error").Inc()
		return nil, scanerr.Wrap(scanerr.KindMalformed, "vips: decode export", err)
	}
	metrics.VipsFallbacksTotal.WithLabelValues("success").Inc()
	return imagebuf.FromImage(img)
}

func (v *vipsImage) close() { v.ref.Close() }

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}
