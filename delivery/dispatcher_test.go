package delivery

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	imageErr error
	fileErr  error

	images [][]byte
	mimes  []string
	files  []string
	names  []string
}

func (f *fakeTransport) SendImage(data []byte, mimeType string) error {
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images = append(f.images, data)
	f.mimes = append(f.mimes, mimeType)
	return nil
}

func (f *fakeTransport) SendFile(path string, name string) error {
	if f.fileErr != nil {
		return f.fileErr
	}
	f.files = append(f.files, path)
	f.names = append(f.names, name)
	return nil
}

func newTestDispatcher(t *testing.T, staticMode, animatedMode Mode) *Dispatcher {
	t.Helper()
	return NewDispatcher(t.TempDir(), staticMode, animatedMode, zap.NewNop().Sugar())
}

func TestModeFor(t *testing.T) {
	d := newTestDispatcher(t, ModeEmbedded, ModeNamedFile)
	assert.Equal(t, ModeEmbedded, d.ModeFor(false))
	assert.Equal(t, ModeNamedFile, d.ModeFor(true))
}

func TestDeliverEmbedded(t *testing.T) {
	d := newTestDispatcher(t, ModeEmbedded, ModeEmbedded)
	tr := &fakeTransport{}

	res := d.Deliver(tr, Item{Content: []byte("pix"), MimeType: "image/png"})

	assert.Equal(t, OutcomeDelivered, res.Outcome)
	assert.Equal(t, ModeEmbedded, res.Mode)
	require.Len(t, tr.images, 1)
	assert.Equal(t, "image/png", tr.mimes[0])
	assert.Empty(t, tr.files)
}

func TestDeliverEmbeddedFailureIsTerminal(t *testing.T) {
	d := newTestDispatcher(t, ModeEmbedded, ModeEmbedded)
	tr := &fakeTransport{imageErr: errors.New("gateway down")}

	res := d.Deliver(tr, Item{Content: []byte("pix"), MimeType: "image/png"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, ModeEmbedded, res.Mode)
	assert.Error(t, res.Err)
}

func TestDeliverNamedFilePersistedPath(t *testing.T) {
	d := newTestDispatcher(t, ModeNamedFile, ModeNamedFile)
	tr := &fakeTransport{}

	res := d.Deliver(tr, Item{
		Content:       []byte("pix"),
		MimeType:      "image/gif",
		Animated:      true,
		FileName:      "loop.gif",
		PersistedPath: "/var/archive/c1/loop.gif",
	})

	assert.Equal(t, OutcomeDelivered, res.Outcome)
	assert.Equal(t, ModeNamedFile, res.Mode)
	require.Len(t, tr.files, 1)
	assert.Equal(t, "/var/archive/c1/loop.gif", tr.files[0])
	assert.Equal(t, "loop.gif", tr.names[0])
	assert.Empty(t, tr.images)
}

func TestDeliverNamedFileEphemeral(t *testing.T) {
	d := newTestDispatcher(t, ModeNamedFile, ModeNamedFile)
	tr := &fakeTransport{}

	res := d.Deliver(tr, Item{
		Content:  []byte("pix"),
		MimeType: "image/jpeg",
		FileName: "shot.jpg",
	})

	assert.Equal(t, OutcomeDelivered, res.Outcome)
	require.Len(t, tr.files, 1)
	assert.Equal(t, "shot.jpg", tr.names[0])

	// The ephemeral copy exists at delivery time and carries the original
	// extension. Removal happens later off the delivery path.
	data, err := os.ReadFile(tr.files[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("pix"), data)
	assert.Equal(t, ".jpg", tr.files[0][len(tr.files[0])-4:])
}

func TestDeliverDegradesToEmbedded(t *testing.T) {
	d := newTestDispatcher(t, ModeNamedFile, ModeNamedFile)
	tr := &fakeTransport{fileErr: errors.New("attachments disabled")}

	res := d.Deliver(tr, Item{Content: []byte("pix"), MimeType: "image/png", FileName: "a.png"})

	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.Equal(t, ModeEmbedded, res.Mode)
	assert.NoError(t, res.Err)
	require.Len(t, tr.images, 1)
}

func TestDeliverBothTiersFail(t *testing.T) {
	d := newTestDispatcher(t, ModeNamedFile, ModeNamedFile)
	tr := &fakeTransport{
		fileErr:  errors.New("attachments disabled"),
		imageErr: errors.New("gateway down"),
	}

	res := d.Deliver(tr, Item{Content: []byte("pix"), MimeType: "image/png", FileName: "a.png"})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, ModeNamedFile, res.Mode)
	assert.Error(t, res.Err)
}
