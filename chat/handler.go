package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/mediavault/archive"
	"github.com/cppla/mediavault/delivery"
	"github.com/cppla/mediavault/models"
	"github.com/cppla/mediavault/permission"
)

// ErrUnrecognizedContent reports a save command whose quoted message carries
// no image-like elements.
var ErrUnrecognizedContent = errors.New("chat: no image content in quoted message")

// ItemState is the terminal state of one batch item.
type ItemState string

const (
	StateDedupHit  ItemState = "dedup-hit"
	StateDelivered ItemState = "delivered"
	StateDegraded  ItemState = "degraded"
	StateFailed    ItemState = "failed"
)

// ItemOutcome describes how one batch item ended up. Degraded delivery and
// dedup hits count as successes, distinct from hard failures.
type ItemOutcome struct {
	Index  int
	State  ItemState
	Record *models.ArchiveRecord
	Mode   delivery.Mode
	Err    error
}

func (o ItemOutcome) success() bool {
	return o.State != StateFailed
}

// HandlerConfig is the slice of application configuration the handler needs,
// injected immutable at construction.
type HandlerConfig struct {
	Enabled   bool
	Channels  []string // allowlist; empty admits every channel
	Threshold int
}

// Handler executes archive commands arriving from chat sessions: save, send,
// list, delete and clear.
type Handler struct {
	store    *archive.Store
	disp     *delivery.Dispatcher
	fetcher  *Fetcher
	confirms ConfirmStore
	cfg      HandlerConfig
	log      *zap.SugaredLogger
}

func NewHandler(store *archive.Store, disp *delivery.Dispatcher, fetcher *Fetcher, confirms ConfirmStore, cfg HandlerConfig, log *zap.SugaredLogger) *Handler {
	return &Handler{
		store:    store,
		disp:     disp,
		fetcher:  fetcher,
		confirms: confirms,
		cfg:      cfg,
		log:      log,
	}
}

// ChannelAllowed reports whether archiving is live for a channel.
func (h *Handler) ChannelAllowed(channelID string) bool {
	if !h.cfg.Enabled {
		return false
	}
	if len(h.cfg.Channels) == 0 {
		return true
	}
	for _, c := range h.cfg.Channels {
		if c == channelID {
			return true
		}
	}
	return false
}

// HandleSave ingests every image-like element quoted by the command and
// delivers each freshly stored item back. Per-item failures never abort
// sibling items; the reply carries an aggregate summary plus one line per item.
func (h *Handler) HandleSave(ctx context.Context, s Session) ([]ItemOutcome, error) {
	if !h.ChannelAllowed(s.ChannelID()) {
		_ = s.Send("archive is not enabled in this channel")
		return nil, nil
	}
	elems := s.QuotedMedia()
	if len(elems) == 0 {
		_ = s.Send("nothing to save: the quoted message has no images")
		return nil, ErrUnrecognizedContent
	}

	outcomes := make([]ItemOutcome, 0, len(elems))
	for i, elem := range elems {
		outcomes = append(outcomes, h.saveOne(ctx, s, i+1, elem))
	}

	_ = s.Send(h.summarize(outcomes))
	return outcomes, nil
}

func (h *Handler) saveOne(ctx context.Context, s Session, index int, elem MediaElement) ItemOutcome {
	out := ItemOutcome{Index: index}

	content, err := h.fetcher.Fetch(ctx, elem.SourceURL())
	if err != nil {
		h.log.Warnw("fetch failed", "channel", s.ChannelID(), "url", elem.SourceURL(), "err", err)
		out.State = StateFailed
		out.Err = err
		return out
	}

	fp := archive.FingerprintBytes(content)
	res, err := h.store.Ingest(s.ChannelID(), archive.IngestInput{
		Content:         content,
		Fingerprint:     fp,
		UploaderID:      s.SenderID(),
		SourceMessageID: s.MessageID(),
	})
	if err != nil {
		out.State = StateFailed
		out.Err = err
		return out
	}
	out.Record = res.Record
	if res.Duplicate {
		out.State = StateDedupHit
		return out
	}

	// Freshly stored items are sent back to the channel.
	path, _ := h.store.BlobLocation(res.Record)
	dres := h.disp.Deliver(s, delivery.Item{
		Content:       content,
		MimeType:      fp.MimeType,
		Animated:      fp.Animated,
		FileName:      res.Record.StoredFileName,
		PersistedPath: path,
	})
	out.Mode = dres.Mode
	switch dres.Outcome {
	case delivery.OutcomeDelivered:
		out.State = StateDelivered
	case delivery.OutcomeDegraded:
		out.State = StateDegraded
	default:
		// Stored fine, delivery alone failed.
		out.State = StateFailed
		out.Err = dres.Err
	}
	return out
}

// HandleSend delivers the item at a 1-based newest-first index.
func (h *Handler) HandleSend(ctx context.Context, s Session, index int) (ItemOutcome, error) {
	out := ItemOutcome{Index: index}

	rec, err := h.store.GetByIndex(s.ChannelID(), index)
	if err != nil {
		if errors.Is(err, archive.ErrIndexOutOfRange) {
			_ = s.Send(fmt.Sprintf("no item at index %d", index))
		}
		out.State = StateFailed
		out.Err = err
		return out, err
	}

	content, err := h.store.ReadBlob(rec)
	if err != nil {
		if errors.Is(err, archive.ErrBlobMissing) {
			_ = s.Send(fmt.Sprintf("item %d exists but its file is gone", index))
		}
		out.State = StateFailed
		out.Err = err
		return out, err
	}

	path, _ := h.store.BlobLocation(rec)
	dres := h.disp.Deliver(s, delivery.Item{
		Content:       content,
		MimeType:      rec.MimeType,
		Animated:      rec.IsAnimated,
		FileName:      rec.StoredFileName,
		PersistedPath: path,
	})
	out.Record = rec
	out.Mode = dres.Mode
	switch dres.Outcome {
	case delivery.OutcomeDelivered:
		out.State = StateDelivered
		if dres.Mode == delivery.ModeNamedFile {
			_ = s.Send("delivered as file")
		}
	case delivery.OutcomeDegraded:
		out.State = StateDegraded
		_ = s.Send("delivered as image (fallback)")
	default:
		out.State = StateFailed
		out.Err = dres.Err
		_ = s.Send("delivery failed")
	}
	if out.State == StateFailed {
		return out, out.Err
	}
	return out, nil
}

// HandleList replies with one page of the channel archive, newest first.
func (h *Handler) HandleList(ctx context.Context, s Session, page int) error {
	const pageSize = 10
	recs, total, err := h.store.List(s.ChannelID(), page, pageSize)
	if err != nil {
		_ = s.Send("listing failed")
		return err
	}
	if total == 0 {
		return s.Send("the archive is empty")
	}
	if page < 1 {
		page = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s), page %d:\n", total, page)
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s %s (%d bytes)\n", (page-1)*pageSize+i+1, r.StoredFileName, r.CreatedAt.Format("2006-01-02 15:04"), r.ByteSize)
	}
	return s.Send(strings.TrimRight(b.String(), "\n"))
}

// HandleDelete removes the item at index after the permission gate.
func (h *Handler) HandleDelete(ctx context.Context, s Session, index int) error {
	level := permission.FromRoles(s.RoleFlags(), s.IsDirect())
	if !permission.Authorize(level, h.cfg.Threshold) {
		_ = s.Send("you are not allowed to delete archived items")
		return permission.ErrDenied
	}

	rec, err := h.store.DeleteByIndex(s.ChannelID(), index)
	if err != nil {
		if errors.Is(err, archive.ErrIndexOutOfRange) {
			_ = s.Send(fmt.Sprintf("no item at index %d", index))
		}
		return err
	}
	return s.Send(fmt.Sprintf("deleted %s", rec.StoredFileName))
}

// RequestClear opens the clear-all confirmation window for (channel, actor).
func (h *Handler) RequestClear(s Session) error {
	level := permission.FromRoles(s.RoleFlags(), s.IsDirect())
	if !permission.Authorize(level, h.cfg.Threshold) {
		_ = s.Send("you are not allowed to clear the archive")
		return permission.ErrDenied
	}

	stats, err := h.store.Stats(s.ChannelID())
	if err != nil {
		return err
	}
	h.confirms.Save(s.ChannelID(), s.SenderID(), ConfirmWindow)
	return s.Send(fmt.Sprintf("this removes all %d archived item(s); reply yes within %d seconds to confirm", stats.Count, int(ConfirmWindow.Seconds())))
}

// ResolveClear consumes a pre-resolved confirmation decision. Only a
// confirmed decision inside the window triggers the clear; everything else
// leaves the channel untouched.
func (h *Handler) ResolveClear(s Session, decision Decision) error {
	live := h.confirms.Consume(s.ChannelID(), s.SenderID())

	switch decision {
	case DecisionConfirmed:
		if !live {
			return s.Send("confirmation window elapsed, nothing deleted")
		}
		removed, err := h.store.ClearChannel(s.ChannelID())
		if err != nil {
			_ = s.Send("clearing failed")
			return err
		}
		return s.Send(fmt.Sprintf("archive cleared, %d item(s) removed", removed))
	case DecisionCancelled:
		return s.Send("clear cancelled, nothing deleted")
	default:
		return s.Send("no confirmation received, nothing deleted")
	}
}

// HandleClear runs the full prompt/await round-trip over the session and
// feeds the resolved decision back into the core.
func (h *Handler) HandleClear(ctx context.Context, s Session) error {
	if err := h.RequestClear(s); err != nil {
		return err
	}

	decision := DecisionTimedOut
	if reply, ok := s.AwaitReply(ConfirmWindow); ok {
		switch strings.ToLower(strings.TrimSpace(reply)) {
		case "yes", "y", "confirm":
			decision = DecisionConfirmed
		default:
			decision = DecisionCancelled
		}
	}
	return h.ResolveClear(s, decision)
}

// summarize builds the aggregate reply: success count plus one line per item.
func (h *Handler) summarize(outcomes []ItemOutcome) string {
	succeeded := 0
	for _, o := range outcomes {
		if o.success() {
			succeeded++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "saved %d of %d item(s)\n", succeeded, len(outcomes))
	for _, o := range outcomes {
		fmt.Fprintf(&b, "%s\n", h.describe(o))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) describe(o ItemOutcome) string {
	switch o.State {
	case StateDedupHit:
		return fmt.Sprintf("#%d already archived as record %d", o.Index, o.Record.ID)
	case StateDelivered:
		if o.Mode == delivery.ModeNamedFile {
			return fmt.Sprintf("#%d saved, delivered as file", o.Index)
		}
		return fmt.Sprintf("#%d saved", o.Index)
	case StateDegraded:
		return fmt.Sprintf("#%d saved, delivered as image (fallback)", o.Index)
	case StateFailed:
		if errors.Is(o.Err, ErrFetch) {
			return fmt.Sprintf("#%d failed: download error", o.Index)
		}
		return fmt.Sprintf("#%d failed", o.Index)
	default:
		return fmt.Sprintf("#%d saved", o.Index)
	}
}
