package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"media-scanner/internal/bmp"
	"media-scanner/internal/bytebuf"
	"media-scanner/internal/container"
	"media-scanner/internal/filesystem"
	"media-scanner/internal/imagebuf"
	"media-scanner/internal/logging"
	"media-scanner/internal/mediatypes"
	"media-scanner/internal/memory"
	"media-scanner/internal/metrics"
	"media-scanner/internal/playlist"
	"media-scanner/internal/resample"
	"media-scanner/internal/scanerr"
)

// Config configures a Processor.
type Config struct {
	// Thumbnails are produced for every image, in this order.
	Thumbnails []ThumbnailSpec

	// BlockSize is the read size of the streaming buffer.
	BlockSize int

	// MaxPixels bounds width*height of any image decoded to pixels.
	MaxPixels int64

	Retry filesystem.RetryConfig
}

// Processor turns one file into a Result. It holds no per-file state, so a
// single Processor may be shared by several goroutines.
type Processor struct {
	cfg Config
}

// NewProcessor validates cfg and fills in defaults.
func NewProcessor(cfg Config) (*Processor, error) {
	if len(cfg.Thumbnails) > MaxThumbnailSpecs {
		return nil, fmt.Errorf("%d thumbnail specs configured, max %d", len(cfg.Thumbnails), MaxThumbnailSpecs)
	}
	for i, spec := range cfg.Thumbnails {
		if spec.Width < 0 || spec.Height < 0 {
			return nil, fmt.Errorf("thumbnail spec %d: negative size %dx%d", i, spec.Width, spec.Height)
		}
		if spec.Quality < 0 || spec.Quality > 100 {
			return nil, fmt.Errorf("thumbnail spec %d: quality %d out of range 1-100", i, spec.Quality)
		}
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = bytebuf.DefaultBlockSize
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = memory.DefaultPixelBudget
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		resolver := cfg.Retry.VolumeResolver
		cfg.Retry = filesystem.DefaultRetryConfig()
		cfg.Retry.VolumeResolver = resolver
	}
	return &Processor{cfg: cfg}, nil
}

// Thumbnails returns the configured thumbnail specs.
func (p *Processor) Thumbnails() []ThumbnailSpec { return p.cfg.Thumbnails }

// Process scans the file at path. info may be nil, in which case the file is
// stat'ed first. Every error is a *scanerr.Error carrying path.
func (p *Processor) Process(path string, info os.FileInfo) (*Result, error) {
	if info == nil {
		var err error
		if info, err = filesystem.StatWithRetry(path, p.cfg.Retry); err != nil {
			return nil, scanerr.WithPath(scanerr.Wrap(scanerr.KindIO, "stat", err), path)
		}
	}

	ext := mediatypes.Ext(path)
	res := &Result{
		Path:     path,
		Type:     mediatypes.GetFileType(ext),
		MimeType: mediatypes.GetMimeType(ext),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}
	if res.Type == mediatypes.FileTypeOther {
		return nil, scanerr.WithPath(scanerr.Errorf(scanerr.KindUnsupported, "classify", "unknown extension %q", ext), path)
	}

	start := time.Now()
	err := p.process(res)
	metrics.ScanFileDuration.WithLabelValues(string(res.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, scanerr.WithPath(err, path)
	}
	return res, nil
}

func (p *Processor) process(res *Result) error {
	if res.Type == mediatypes.FileTypePlaylist {
		return p.processPlaylist(res)
	}

	f, err := filesystem.OpenWithRetry(res.Path, p.cfg.Retry)
	if err != nil {
		return scanerr.Wrap(scanerr.KindIO, "open", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", res.Path, err)
		}
	}()

	buf := bytebuf.New(2 * p.cfg.BlockSize)
	defer func() { recordBuffer(res.Format, buf.Stats()) }()

	if err := buf.EnsureAvailable(sniffLen, f, p.cfg.BlockSize); err != nil && !scanerr.Is(err, scanerr.KindInsufficientData) {
		return err
	}
	res.Format = Sniff(buf.Bytes())
	if res.Format.IsImage() {
		res.Type = mediatypes.FileTypeImage
	}

	start := time.Now()
	defer func() {
		if label := metricLabel(res.Format); label != "" {
			metrics.DecodeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		}
	}()

	switch res.Format {
	case FormatBMP:
		return p.processBMP(res, f, buf)
	case FormatJPEG, FormatPNG, FormatGIF, FormatWebP, FormatTIFF:
		return p.processImage(res, f, buf)
	case FormatHEIF, FormatAVIF:
		return p.processVips(res)
	case FormatWAV, FormatAIFF:
		return p.processAudio(res, f, buf)
	case FormatAVI:
		return p.processAVI(res, f, buf)
	case FormatMP3, FormatFLAC, FormatOgg, FormatMP4:
		if res.Type == mediatypes.FileTypeAudio {
			p.processTags(res, f)
		}
		return nil
	}

	if res.Type == mediatypes.FileTypeImage {
		return scanerr.New(scanerr.KindUnsupported, "sniff", "unrecognised image signature")
	}
	// Other video and audio containers are classified but not parsed.
	return nil
}

// processPlaylist parses the playlist and resolves its entries. It reads
// the file whole, so size is checked before reading.
func (p *Processor) processPlaylist(res *Result) error {
	if res.Size > playlist.MaxSize {
		return scanerr.Errorf(scanerr.KindUnsupported, "playlist", "%d bytes exceeds limit of %d", res.Size, playlist.MaxSize)
	}

	f, err := filesystem.OpenWithRetry(res.Path, p.cfg.Retry)
	if err != nil {
		return scanerr.Wrap(scanerr.KindIO, "open", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, playlist.MaxSize+1))
	if err != nil {
		return scanerr.Wrap(scanerr.KindIO, "read", err)
	}

	pl, err := playlist.Parse(res.Path, data, isRegularFile)
	if errors.Is(err, playlist.ErrTooLarge) {
		return scanerr.Wrap(scanerr.KindUnsupported, "playlist", err)
	}
	if err != nil {
		return scanerr.Wrap(scanerr.KindMalformed, "playlist", err)
	}
	res.Playlist = pl
	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (p *Processor) processBMP(res *Result, f *os.File, buf *bytebuf.Buffer) error {
	dec, err := bmp.NewDecoder(buf, f, p.cfg.BlockSize)
	if err != nil {
		return err
	}
	h := dec.Header()
	res.Width, res.Height, res.HasAlpha = h.Width, h.Height, h.HasAlpha
	res.Codec = h.Codec()

	if err := p.checkBudget(h.Width, h.Height); err != nil || len(p.cfg.Thumbnails) == 0 {
		return err
	}
	img, err := dec.Decode()
	if err != nil {
		return err
	}
	return p.thumbnails(res, img)
}

func (p *Processor) processImage(res *Result, f *os.File, buf *bytebuf.Buffer) error {
	c := codecs[res.Format]

	cfg, err := c.config(buf.Reader(f))
	if err != nil {
		return codecError(res.Format, "decode config", err)
	}
	res.Width, res.Height, res.HasAlpha = cfg.Width, cfg.Height, configHasAlpha(cfg)
	res.Codec = string(res.Format)
	if err := p.checkBudget(cfg.Width, cfg.Height); err != nil {
		return err
	}
	res.Orientation = readOrientation(f, res.Format)

	if len(p.cfg.Thumbnails) == 0 {
		return nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return scanerr.Wrap(scanerr.KindIO, "seek", err)
	}
	buf.Clear()

	decoded, err := c.decode(buf.Reader(f))
	if err != nil {
		return codecError(res.Format, "decode", err)
	}
	img, err := imagebuf.FromImage(decoded)
	if err != nil {
		return err
	}
	res.HasAlpha = img.HasAlpha
	img.Orientation = res.Orientation
	return p.thumbnails(res, img)
}

// processVips decodes HEIF and AVIF. libheif applies the container's own
// rotation transforms, so the raster is already upright.
func (p *Processor) processVips(res *Result) error {
	v, err := openWithVips(res.Path)
	if err != nil {
		return err
	}
	defer v.close()

	res.Width, res.Height = v.size()
	res.HasAlpha = v.hasAlpha()
	res.Codec = string(res.Format)
	if err := p.checkBudget(res.Width, res.Height); err != nil || len(p.cfg.Thumbnails) == 0 {
		return err
	}

	img, err := v.pixels()
	if err != nil {
		return err
	}
	return p.thumbnails(res, img)
}

func (p *Processor) processAudio(res *Result, f *os.File, buf *bytebuf.Buffer) error {
	info, err := container.ParseAudio(f, res.Size, buf, p.cfg.BlockSize)
	if err != nil {
		return err
	}
	res.Type = mediatypes.FileTypeAudio
	res.Audio = info
	res.Codec = info.Codec
	if len(info.Tags) > 0 {
		res.Tags = info.Tags
	}
	return nil
}

func (p *Processor) processAVI(res *Result, f *os.File, buf *bytebuf.Buffer) error {
	info, err := container.ParseAVI(f, res.Size, buf, p.cfg.BlockSize)
	if err != nil {
		return err
	}
	res.Type = mediatypes.FileTypeVideo
	res.Video = info
	res.Width, res.Height = info.Width, info.Height
	res.Codec = info.VideoCodec
	return nil
}

// processTags reads ID3, Vorbis comment or MP4 metadata. Tags are optional,
// so failures are logged and the file is still reported.
func (p *Processor) processTags(res *Result, f *os.File) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		logging.Debug("tags: seek %s: %v", res.Path, err)
		return
	}
	m, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			logging.Debug("tags: %s: %v", res.Path, err)
		}
		return
	}
	tags := make(map[string]string)
	container.MergeTags(tags, m)
	if len(tags) > 0 {
		res.Tags = tags
	}
	if ft := m.FileType(); ft != tag.UnknownFileType {
		res.Codec = strings.ToLower(string(ft))
	}
}

// checkBudget rejects images whose raster would exceed the pixel budget
// before any pixel memory is allocated.
func (p *Processor) checkBudget(w, h int) error {
	if int64(w)*int64(h) > p.cfg.MaxPixels {
		return scanerr.Errorf(scanerr.KindMalformed, "pixel budget",
			"%dx%d exceeds %d pixels", w, h, p.cfg.MaxPixels)
	}
	return nil
}

// thumbnails resamples and encodes img once per spec, then releases it.
func (p *Processor) thumbnails(res *Result, img *imagebuf.Image) error {
	defer img.Release()

	res.Thumbnails = make([]Thumbnail, 0, len(p.cfg.Thumbnails))
	for _, spec := range p.cfg.Thumbnails {
		opts := spec.resampleOptions()
		opts.OnFallback = metrics.ResampleFallbacksTotal.Inc

		start := time.Now()
		thumb, err := resample.Resize(img, opts)
		if err != nil {
			return err
		}
		metrics.ResampleDuration.Observe(time.Since(start).Seconds())
		if thumb.IsAlias() {
			metrics.ThumbnailAliasesTotal.Inc()
		}

		t, err := encodeThumbnail(thumb, spec)
		thumb.Release()
		if err != nil {
			return err
		}
		res.Thumbnails = append(res.Thumbnails, t)
	}
	return nil
}

func recordBuffer(format Format, s bytebuf.Stats) {
	metrics.BufferGrowthsTotal.Add(float64(s.Grows))
	metrics.BufferCompactionsTotal.Add(float64(s.Compactions))
	if label := metricLabel(format); label != "" {
		metrics.DecodeBytesRead.WithLabelValues(label).Add(float64(s.BytesRead))
	}
}

// metricLabel maps a format to its decode metric label.
func metricLabel(f Format) string {
	switch f {
	case FormatUnknown:
		return ""
	case FormatHEIF, FormatAVIF:
		return "vips"
	case FormatMP3, FormatFLAC, FormatOgg, FormatMP4:
		return "tags"
	}
	return string(f)
}
