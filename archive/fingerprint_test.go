package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMime(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, MimePNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, MimeJPEG},
		{"gif87a", []byte("GIF87a trailing"), MimeGIF},
		{"gif89a", []byte("GIF89a trailing"), MimeGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), MimeWEBP},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), MimeUnknown},
		{"plain text", []byte("hello world"), MimeUnknown},
		{"empty", nil, MimeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectMime(tc.data))
		})
	}
}

func TestFingerprintBytes(t *testing.T) {
	fp := FingerprintBytes([]byte("GIF89a animated thing"))
	assert.Len(t, fp.Hash, 32) // 128-bit digest, hex encoded
	assert.Equal(t, MimeGIF, fp.MimeType)
	assert.Equal(t, "gif", fp.Extension)
	assert.True(t, fp.Animated)

	fp = FingerprintBytes([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A})
	assert.Equal(t, "png", fp.Extension)
	assert.False(t, fp.Animated)
}

func TestFingerprintUnknownContentStillStorable(t *testing.T) {
	fp := FingerprintBytes([]byte("not an image at all"))
	assert.Equal(t, MimeUnknown, fp.MimeType)
	assert.Equal(t, "jpg", fp.Extension) // default when unmapped
	assert.False(t, fp.Animated)
	assert.NotEmpty(t, fp.Hash)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	a := FingerprintBytes([]byte("same bytes"))
	b := FingerprintBytes([]byte("same bytes"))
	c := FingerprintBytes([]byte("other bytes"))
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
}
