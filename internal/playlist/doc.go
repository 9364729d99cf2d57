// Package playlist parses playlist files found during a scan.
//
// Supported formats:
//   - WPL: the SMIL-based format of Windows Media Player
//   - M3U and extended M3U, including #EXTINF titles and durations
//   - M3U8: M3U that is always UTF-8
//
// Entries are resolved relative to the playlist's own directory. Paths
// written on Windows (backslashes, drive letters, UNC shares) are
// normalised; when the written path does not exist locally the file name
// is looked up next to the playlist. URLs are kept but never resolved.
//
// Legacy .m3u files that are not valid UTF-8 are decoded as Windows-1252,
// and WPL files may declare any IANA charset.
package playlist
