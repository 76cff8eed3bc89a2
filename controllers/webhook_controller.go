package controllers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mediavault/chat"
	"github.com/cppla/mediavault/utils"
)

// WebhookController receives inbound chat events from a gateway bridge and
// runs them through the batch command handler. Outbound payloads are collected
// and returned in the response body; the bridge forwards them to the chat
// transport.
type WebhookController struct {
	handler *chat.Handler
}

func NewWebhookController(handler *chat.Handler) *WebhookController {
	return &WebhookController{handler: handler}
}

type webhookMedia struct {
	Kind     string `json:"kind"` // static-image | animated-image | sticker-pack
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

type webhookEvent struct {
	Command   string         `json:"command" binding:"required"` // save | send | list | delete | clear-request | clear-resolve
	ChannelID string         `json:"channel_id" binding:"required"`
	SenderID  string         `json:"sender_id"`
	MessageID string         `json:"message_id"`
	Roles     []string       `json:"roles"`
	Direct    bool           `json:"direct"`
	Media     []webhookMedia `json:"media"`
	Index     int            `json:"index"`
	Page      int            `json:"page"`
	Decision  string         `json:"decision"` // confirmed | cancelled | timed-out
}

// webhookSession adapts one webhook event to the chat session contract.
// Replies and media payloads are buffered instead of pushed to a live socket;
// there is no interactive reply window, so AwaitReply always times out and
// clears go through the pre-resolved decision path.
type webhookSession struct {
	event   webhookEvent
	replies []string
	sent    []gin.H
}

func (w *webhookSession) ChannelID() string { return w.event.ChannelID }
func (w *webhookSession) SenderID() string { return w.event.SenderID }
func (w *webhookSession) MessageID() string { return w.event.MessageID }
func (w *webhookSession) RoleFlags() []string { return w.event.Roles }
func (w *webhookSession) IsDirect() bool { return w.event.Direct }

func (w *webhookSession) QuotedMedia() []chat.MediaElement {
	elems := make([]chat.MediaElement, 0, len(w.event.Media))
	for _, m := range w.event.Media {
		kind := chat.KindStaticImage
		switch m.Kind {
		case "animated-image":
			kind = chat.KindAnimatedImage
		case "sticker-pack":
			kind = chat.KindStickerPack
		}
		elems = append(elems, chat.MediaElement{Kind: kind, URL: m.URL, FileName: m.FileName})
	}
	return elems
}

func (w *webhookSession) Send(text string) error {
	w.replies = append(w.replies, text)
	return nil
}

func (w *webhookSession) AwaitReply(time.Duration) (string, bool) {
	return "", false
}

func (w *webhookSession) SendImage(data []byte, mimeType string) error {
	w.sent = append(w.sent, gin.H{
		"type":    "image",
		"mime":    mimeType,
		"content": base64.StdEncoding.EncodeToString(data),
	})
	return nil
}

func (w *webhookSession) SendFile(path, name string) error {
	w.sent = append(w.sent, gin.H{
		"type": "file",
		"path": path,
		"name": name,
	})
	return nil
}

// Event executes one gateway event and returns the buffered replies.
func (w *WebhookController) Event(ctx *gin.Context) {
	var event webhookEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid event payload")
		return
	}

	s := &webhookSession{event: event}

	switch event.Command {
	case "save":
		_, _ = w.handler.HandleSave(ctx.Request.Context(), s)
	case "send":
		_, _ = w.handler.HandleSend(ctx.Request.Context(), s, event.Index)
	case "list":
		_ = w.handler.HandleList(ctx.Request.Context(), s, event.Page)
	case "delete":
		_ = w.handler.HandleDelete(ctx.Request.Context(), s, event.Index)
	case "clear-request":
		_ = w.handler.RequestClear(s)
	case "clear-resolve":
		decision := chat.DecisionTimedOut
		switch event.Decision {
		case "confirmed":
			decision = chat.DecisionConfirmed
		case "cancelled":
			decision = chat.DecisionCancelled
		}
		_ = w.handler.ResolveClear(s, decision)
	default:
		utils.Error(ctx, http.StatusBadRequest, 40031, "unknown command")
		return
	}

	utils.Success(ctx, gin.H{
		"replies": s.replies,
		"sent":    s.sent,
	})
}
