package archive

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
)

// Well-known media types recognized by the fingerprinter.
const (
	MimePNG     = "image/png"
	MimeJPEG    = "image/jpeg"
	MimeGIF     = "image/gif"
	MimeWEBP    = "image/webp"
	MimeUnknown = "application/octet-stream"
)

// Fingerprint is the content-derived identity of a media item. The hash is a
// hex encoded 128-bit digest used purely as a dedup key, not as a
// cryptographic guarantee.
type Fingerprint struct {
	Hash      string
	MimeType  string
	Extension string
	Animated  bool
}

var extensionByMime = map[string]string{
	MimePNG:  "png",
	MimeJPEG: "jpg",
	MimeGIF:  "gif",
	MimeWEBP: "webp",
}

// FingerprintBytes derives identity and type metadata from raw content.
// It never fails: unrecognized content is still hashable and storable.
func FingerprintBytes(data []byte) Fingerprint {
	sum := md5.Sum(data)
	mime := DetectMime(data)
	ext, ok := extensionByMime[mime]
	if !ok {
		ext = "jpg"
	}
	return Fingerprint{
		Hash:      hex.EncodeToString(sum[:]),
		MimeType:  mime,
		Extension: ext,
		Animated:  mime == MimeGIF,
	}
}

// DetectMime inspects the magic-byte prefix against a fixed table.
// Unmatched content yields MimeUnknown rather than an error.
func DetectMime(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return MimePNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return MimeJPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return MimeGIF
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return MimeWEBP
	default:
		return MimeUnknown
	}
}
