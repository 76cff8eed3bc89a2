package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiskBlobStoreRoundTrip(t *testing.T) {
	bs, err := NewDiskBlobStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	rel := "c1/20260830/abc.png"
	require.NoError(t, bs.Write(rel, []byte("pix")))
	assert.True(t, bs.Exists(rel))

	b, err := bs.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, []byte("pix"), b)

	loc, ok := bs.Location(rel)
	require.True(t, ok)
	_, err = os.Stat(loc)
	require.NoError(t, err)

	require.NoError(t, bs.Delete(rel))
	assert.False(t, bs.Exists(rel))
	// deleting an already missing blob is not an error
	require.NoError(t, bs.Delete(rel))
}

func TestDiskBlobStoreRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	bs, err := NewDiskBlobStore(filepath.Join(base, "blobs"))
	require.NoError(t, err)

	for _, rel := range []string{
		"../outside/20260830/abc.png",
		"c1/../../outside/abc.png",
		"/etc/abc.png",
		"..",
	} {
		assert.ErrorIs(t, bs.Write(rel, []byte("pix")), ErrInvalidBlobPath, rel)
		_, err := bs.Read(rel)
		assert.ErrorIs(t, err, ErrInvalidBlobPath, rel)
		assert.ErrorIs(t, bs.Delete(rel), ErrInvalidBlobPath, rel)
		assert.False(t, bs.Exists(rel), rel)
		_, ok := bs.Location(rel)
		assert.False(t, ok, rel)
	}

	// Nothing escaped next to the store root.
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blobs", entries[0].Name())
}

func TestIngestConfinesChannelToBlobRoot(t *testing.T) {
	base := t.TempDir()
	bs, err := NewDiskBlobStore(filepath.Join(base, "blobs"))
	require.NoError(t, err)
	repo := NewMemoryRecordRepo()
	s := NewStore(repo, bs, 20, zap.NewNop().Sugar())

	content := []byte("\x89PNG\r\n\x1a\npayload")
	_, err = s.Ingest("../outside", IngestInput{
		Content:     content,
		Fingerprint: FingerprintBytes(content),
		UploaderID:  "uploader-1",
	})
	assert.ErrorIs(t, err, ErrInvalidBlobPath)

	// No record, no directory next to the root.
	count, err := repo.Count("../outside")
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = os.Stat(filepath.Join(base, "outside"))
	assert.True(t, os.IsNotExist(err))

	// A plain channel key still ingests fine against the same store.
	res, err := s.Ingest("c1", IngestInput{
		Content:     content,
		Fingerprint: FingerprintBytes(content),
		UploaderID:  "uploader-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}
