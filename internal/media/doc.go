// Package media turns one file into a scan Result.
//
// A Processor classifies the file by extension, sniffs its leading bytes
// through a streaming buffer and hands the same buffer to the matching
// parser: the native BMP decoder, the RIFF/AIFF chunk walker, or an external
// codec (jpegn, image/png, image/gif, webp, x/image/tiff) reading through
// the buffer's hand-off reader. HEIF and AVIF go through libvips when it has
// been initialised with InitVips.
//
// Images are checked against a pixel budget from their headers before any
// pixels are decoded. When thumbnail specs are configured, the decoded image
// is resampled once per spec and encoded as JPEG or PNG; the results keep
// the order of the specs.
package media
