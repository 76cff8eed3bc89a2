package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/mediavault/archive"
	"github.com/cppla/mediavault/delivery"
	"github.com/cppla/mediavault/permission"
)

// fakeSession scripts one inbound command and records everything the handler
// sends back, text and media alike.
type fakeSession struct {
	channel string
	sender  string
	roles   []string
	direct  bool
	quoted  []MediaElement

	reply   string
	replyOK bool

	imageErr error
	fileErr  error

	texts  []string
	images int
	files  int
}

func (f *fakeSession) ChannelID() string { return f.channel }
func (f *fakeSession) SenderID() string { return f.sender }
func (f *fakeSession) MessageID() string { return "msg-1" }
func (f *fakeSession) RoleFlags() []string { return f.roles }
func (f *fakeSession) IsDirect() bool { return f.direct }
func (f *fakeSession) QuotedMedia() []MediaElement { return f.quoted }

func (f *fakeSession) Send(text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSession) AwaitReply(timeout time.Duration) (string, bool) {
	return f.reply, f.replyOK
}

func (f *fakeSession) SendImage(data []byte, mimeType string) error {
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images++
	return nil
}

func (f *fakeSession) SendFile(path string, name string) error {
	if f.fileErr != nil {
		return f.fileErr
	}
	f.files++
	return nil
}

func (f *fakeSession) lastText() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type handlerFixture struct {
	handler *Handler
	store   *archive.Store
	srv     *httptest.Server
}

// newFixture wires a handler against in-memory storage and a local media
// server. Paths under /png, /gif and /missing serve the obvious responses.
func newFixture(t *testing.T, mutate func(*HandlerConfig)) *handlerFixture {
	t.Helper()
	return newFixtureModes(t, delivery.ModeEmbedded, delivery.ModeEmbedded, mutate)
}

func newFixtureModes(t *testing.T, staticMode, animatedMode delivery.Mode, mutate func(*HandlerConfig)) *handlerFixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/png":
			w.Write([]byte("\x89PNG\r\n\x1a\npayload"))
		case "/png2":
			w.Write([]byte("\x89PNG\r\n\x1a\nother payload"))
		case "/gif":
			w.Write([]byte("GIF89a animated payload"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	log := zap.NewNop().Sugar()
	store := archive.NewStore(archive.NewMemoryRecordRepo(), archive.NewMemoryBlobStore(), 20, log)
	disp := delivery.NewDispatcher(t.TempDir(), staticMode, animatedMode, log)

	cfg := HandlerConfig{
		Enabled:   true,
		Threshold: int(permission.LevelAdmin),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &handlerFixture{
		handler: NewHandler(store, disp, NewFetcher(2*time.Second), NewMemoryConfirmStore(), cfg, log),
		store:   store,
		srv:     srv,
	}
}

func (fx *handlerFixture) media(path string, kind MediaKind) MediaElement {
	return MediaElement{Kind: kind, URL: fx.srv.URL + path, FileName: "orig"}
}

func TestHandleSaveStoresAndDelivers(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
		fx.media("/gif", KindAnimatedImage),
	}}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StateDelivered, outcomes[0].State)
	assert.Equal(t, StateDelivered, outcomes[1].State)
	assert.True(t, outcomes[1].Record.IsAnimated)
	assert.Equal(t, 2, s.images)

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	assert.Contains(t, s.lastText(), "saved 2 of 2")
}

func TestHandleSaveDedupReported(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
		fx.media("/png", KindStaticImage),
	}}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StateDelivered, outcomes[0].State)
	assert.Equal(t, StateDedupHit, outcomes[1].State)
	// Dedup hits skip redelivery.
	assert.Equal(t, 1, s.images)
	assert.Contains(t, s.lastText(), "saved 2 of 2")
	assert.Contains(t, s.lastText(), "already archived")
}

func TestHandleSaveFetchFailureIsolated(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/missing", KindStaticImage),
		fx.media("/png", KindStaticImage),
	}}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StateFailed, outcomes[0].State)
	assert.ErrorIs(t, outcomes[0].Err, ErrFetch)
	assert.Equal(t, StateDelivered, outcomes[1].State)

	assert.Contains(t, s.lastText(), "saved 1 of 2")
	assert.Contains(t, s.lastText(), "download error")
}

func TestHandleSaveNoQuotedMedia(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1"}

	_, err := fx.handler.HandleSave(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnrecognizedContent)
	assert.Contains(t, s.lastText(), "nothing to save")
}

func TestHandleSaveChannelNotAllowed(t *testing.T) {
	fx := newFixture(t, func(cfg *HandlerConfig) {
		cfg.Channels = []string{"allowed-channel"}
	})
	s := &fakeSession{channel: "other-channel", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	_, total, err := fx.store.List("other-channel", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestHandleSaveDegradedDeliveryCountsAsSuccess(t *testing.T) {
	fx := newFixtureModes(t, delivery.ModeNamedFile, delivery.ModeNamedFile, nil)
	s := &fakeSession{
		channel: "c1", sender: "u1",
		quoted:  []MediaElement{fx.media("/png", KindStaticImage)},
		fileErr: errors.New("attachments disabled"),
	}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, StateDegraded, outcomes[0].State)
	assert.Equal(t, delivery.ModeEmbedded, outcomes[0].Mode)
	assert.Equal(t, 1, s.images)

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	assert.Contains(t, s.lastText(), "saved 1 of 1")
	assert.Contains(t, s.lastText(), "fallback")
}

func TestHandleSaveDeliveryFailureStillStores(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{
		channel: "c1", sender: "u1",
		quoted:   []MediaElement{fx.media("/png", KindStaticImage)},
		imageErr: errors.New("gateway down"),
	}

	outcomes, err := fx.handler.HandleSave(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StateFailed, outcomes[0].State)

	// The item failed to go out but the archive kept it.
	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestHandleSend(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	s := &fakeSession{channel: "c1", sender: "u2"}
	out, err := fx.handler.HandleSend(context.Background(), s, 1)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, out.State)
	assert.Equal(t, 1, s.images)
}

func TestHandleSendIndexOutOfRange(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1"}

	_, err := fx.handler.HandleSend(context.Background(), s, 3)
	assert.ErrorIs(t, err, archive.ErrIndexOutOfRange)
	assert.Contains(t, s.lastText(), "no item at index 3")
}

func TestHandleList(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
		fx.media("/png2", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	s := &fakeSession{channel: "c1", sender: "u1"}
	require.NoError(t, fx.handler.HandleList(context.Background(), s, 1))
	assert.Contains(t, s.lastText(), "2 item(s)")
}

func TestHandleListEmpty(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1"}

	require.NoError(t, fx.handler.HandleList(context.Background(), s, 1))
	assert.Contains(t, s.lastText(), "empty")
}

func TestHandleDeletePermission(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	// Plain member sits below the admin threshold.
	member := &fakeSession{channel: "c1", sender: "u2"}
	err = fx.handler.HandleDelete(context.Background(), member, 1)
	assert.ErrorIs(t, err, permission.ErrDenied)

	// Owner role in a direct context still resolves to the default level.
	direct := &fakeSession{channel: "c1", sender: "u2", roles: []string{permission.RoleOwner}, direct: true}
	err = fx.handler.HandleDelete(context.Background(), direct, 1)
	assert.ErrorIs(t, err, permission.ErrDenied)

	admin := &fakeSession{channel: "c1", sender: "u3", roles: []string{permission.RoleAdmin}}
	require.NoError(t, fx.handler.HandleDelete(context.Background(), admin, 1))

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestHandleClearConfirmed(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
		fx.media("/gif", KindAnimatedImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	s := &fakeSession{
		channel: "c1", sender: "admin-1",
		roles: []string{permission.RoleAdmin},
		reply: "yes", replyOK: true,
	}
	require.NoError(t, fx.handler.HandleClear(context.Background(), s))

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Contains(t, s.lastText(), "2 item(s) removed")
}

func TestHandleClearCancelled(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	s := &fakeSession{
		channel: "c1", sender: "admin-1",
		roles: []string{permission.RoleAdmin},
		reply: "no", replyOK: true,
	}
	require.NoError(t, fx.handler.HandleClear(context.Background(), s))

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, s.lastText(), "cancelled")
}

func TestHandleClearTimedOut(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	s := &fakeSession{
		channel: "c1", sender: "admin-1",
		roles: []string{permission.RoleAdmin},
	}
	require.NoError(t, fx.handler.HandleClear(context.Background(), s))

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, s.lastText(), "no confirmation received")
}

func TestHandleClearDenied(t *testing.T) {
	fx := newFixture(t, nil)
	s := &fakeSession{channel: "c1", sender: "u1", reply: "yes", replyOK: true}

	err := fx.handler.HandleClear(context.Background(), s)
	assert.ErrorIs(t, err, permission.ErrDenied)
}

func TestResolveClearWithoutPending(t *testing.T) {
	fx := newFixture(t, nil)
	save := &fakeSession{channel: "c1", sender: "u1", quoted: []MediaElement{
		fx.media("/png", KindStaticImage),
	}}
	_, err := fx.handler.HandleSave(context.Background(), save)
	require.NoError(t, err)

	// Confirmed arrives with no open window; nothing is deleted.
	s := &fakeSession{channel: "c1", sender: "admin-1", roles: []string{permission.RoleAdmin}}
	require.NoError(t, fx.handler.ResolveClear(s, DecisionConfirmed))

	_, total, err := fx.store.List("c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Contains(t, s.lastText(), "window elapsed")
}

func TestChannelAllowed(t *testing.T) {
	open := newFixture(t, nil)
	assert.True(t, open.handler.ChannelAllowed("anything"))

	scoped := newFixture(t, func(cfg *HandlerConfig) {
		cfg.Channels = []string{"c1", "c2"}
	})
	assert.True(t, scoped.handler.ChannelAllowed("c1"))
	assert.False(t, scoped.handler.ChannelAllowed("c3"))

	disabled := newFixture(t, func(cfg *HandlerConfig) {
		cfg.Enabled = false
	})
	assert.False(t, disabled.handler.ChannelAllowed("c1"))
}
