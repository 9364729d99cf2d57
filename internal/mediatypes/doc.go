// Package mediatypes classifies files by extension.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains primitive types, constants,
// and pure utility functions with no external dependencies beyond the standard library.
//
// # File Types
//
// The package defines a FileType enum for categorizing media files:
//
//	mediatypes.FileTypeFolder   // Directories
//	mediatypes.FileTypeImage    // Image formats (jpg, png, bmp, heic, etc.)
//	mediatypes.FileTypeVideo    // Video formats (mp4, mkv, avi, etc.)
//	mediatypes.FileTypeAudio    // Audio formats (wav, aiff, mp3, flac, etc.)
//	mediatypes.FileTypePlaylist // Playlist files (wpl, m3u, m3u8)
//	mediatypes.FileTypeOther    // Unrecognized or unsupported files
//
// # Extension Detection
//
// Use Ext and GetFileType to determine the type of a file:
//
//	fileType := mediatypes.GetFileType(mediatypes.Ext(path))
//
// The classification is only a first guess. The scanner sniffs the leading
// bytes of each file before choosing a decoder.
//
// # MIME Types
//
// Use GetMimeType to get the MIME type reported in scan results:
//
//	mimeType := mediatypes.GetMimeType(mediatypes.Ext(path)) // e.g., "image/jpeg"
package mediatypes
