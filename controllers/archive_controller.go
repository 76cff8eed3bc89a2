package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mediavault/archive"
	"github.com/cppla/mediavault/chat"
	"github.com/cppla/mediavault/config"
	"github.com/cppla/mediavault/middleware"
	"github.com/cppla/mediavault/permission"
	"github.com/cppla/mediavault/utils"
)

// ArchiveController exposes the channel archive over the admin HTTP API.
type ArchiveController struct {
	store    *archive.Store
	fetcher  *chat.Fetcher
	confirms chat.ConfirmStore
	cfg      config.AppConfig
}

func NewArchiveController(store *archive.Store, fetcher *chat.Fetcher, confirms chat.ConfirmStore, cfg config.AppConfig) *ArchiveController {
	return &ArchiveController{store: store, fetcher: fetcher, confirms: confirms, cfg: cfg}
}

func (a *ArchiveController) channelAllowed(channelID string) bool {
	if !a.cfg.ArchiveEnabled {
		return false
	}
	if len(a.cfg.ArchiveChannels) == 0 {
		return true
	}
	for _, c := range a.cfg.ArchiveChannels {
		if c == channelID {
			return true
		}
	}
	return false
}

func (a *ArchiveController) operatorLevel(ctx *gin.Context) permission.Level {
	if v, ok := ctx.Get(middleware.ContextLevelKey); ok {
		if lvl, ok := v.(int); ok {
			return permission.Level(lvl)
		}
	}
	return permission.LevelDefault
}

// ListItems returns one page of a channel archive, newest first. Pages are
// cached; staleness across concurrent ingests is acceptable.
func (a *ArchiveController) ListItems(ctx *gin.Context) {
	channelID := ctx.Param("channel")
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := fmt.Sprintf("cache:archive:%s:list:page=%d:size=%d", channelID, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	recs, total, err := a.store.List(channelID, page, pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list items")
		return
	}

	payload := gin.H{
		"items": recs,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 10*time.Minute)
	utils.Success(ctx, payload)
}

// GetItem streams the blob at a 1-based index inline with its detected mime
// type. A record whose blob has disappeared yields 410.
func (a *ArchiveController) GetItem(ctx *gin.Context) {
	channelID := ctx.Param("channel")
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid index")
		return
	}

	rec, err := a.store.GetByIndex(channelID, index)
	if err != nil {
		if errors.Is(err, archive.ErrIndexOutOfRange) {
			utils.Error(ctx, http.StatusNotFound, 40420, "index out of range")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load item")
		return
	}

	content, err := a.store.ReadBlob(rec)
	if err != nil {
		if errors.Is(err, archive.ErrBlobMissing) {
			utils.Error(ctx, http.StatusGone, 41020, "blob no longer on disk")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to read blob")
		return
	}

	ctx.Data(200, rec.MimeType, content)
}

// IngestItem downloads the referenced content and archives it. Duplicates are
// an informational outcome, not an error.
func (a *ArchiveController) IngestItem(ctx *gin.Context) {
	channelID := ctx.Param("channel")
	if !a.channelAllowed(channelID) {
		utils.Error(ctx, http.StatusForbidden, 40320, "archiving disabled for this channel")
		return
	}

	var req struct {
		URL        string `json:"url" binding:"required"`
		UploaderID string `json:"uploader_id"`
		MessageID  string `json:"message_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	content, err := a.fetcher.Fetch(ctx.Request.Context(), req.URL)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50220, "failed to download content")
		return
	}

	fp := archive.FingerprintBytes(content)
	res, err := a.store.Ingest(channelID, archive.IngestInput{
		Content:         content,
		Fingerprint:     fp,
		UploaderID:      req.UploaderID,
		SourceMessageID: req.MessageID,
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to store item")
		return
	}

	utils.InvalidateByPrefix("cache:archive:" + channelID + ":")
	utils.Success(ctx, gin.H{
		"record":    res.Record,
		"duplicate": res.Duplicate,
		"evicted":   res.Evicted,
	})
}

// DeleteItem removes the record at a 1-based index after the permission gate.
func (a *ArchiveController) DeleteItem(ctx *gin.Context) {
	channelID := ctx.Param("channel")
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid index")
		return
	}

	if !permission.Authorize(a.operatorLevel(ctx), a.cfg.PermissionThreshold) {
		utils.Error(ctx, http.StatusForbidden, 40321, "permission denied")
		return
	}

	rec, err := a.store.DeleteByIndex(channelID, index)
	if err != nil {
		if errors.Is(err, archive.ErrIndexOutOfRange) {
			utils.Error(ctx, http.StatusNotFound, 40421, "index out of range")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete item")
		return
	}

	utils.InvalidateByPrefix("cache:archive:" + channelID + ":")
	utils.Success(ctx, gin.H{"deleted": rec})
}

// ClearChannel is a two-step flow. The first call opens a confirmation window
// bounded at 30 seconds; a second call inside the window with a decision
// resolves it. Only a confirmed decision deletes anything.
func (a *ArchiveController) ClearChannel(ctx *gin.Context) {
	channelID := ctx.Param("channel")

	if !permission.Authorize(a.operatorLevel(ctx), a.cfg.PermissionThreshold) {
		utils.Error(ctx, http.StatusForbidden, 40322, "permission denied")
		return
	}

	actor := ctx.GetString(middleware.ContextUsernameKey)

	var req struct {
		Decision string `json:"decision"`
	}
	_ = ctx.ShouldBindJSON(&req)

	if req.Decision == "" {
		a.confirms.Save(channelID, actor, chat.ConfirmWindow)
		utils.Success(ctx, gin.H{
			"pending":        true,
			"window_seconds": int(chat.ConfirmWindow.Seconds()),
		})
		return
	}

	live := a.confirms.Consume(channelID, actor)
	switch strings.ToLower(req.Decision) {
	case "confirmed":
		if !live {
			utils.Error(ctx, http.StatusConflict, 40920, "confirmation window elapsed")
			return
		}
		removed, err := a.store.ClearChannel(channelID)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to clear channel")
			return
		}
		utils.InvalidateByPrefix("cache:archive:" + channelID + ":")
		utils.Success(ctx, gin.H{"removed": removed})
	case "cancelled", "timed-out":
		utils.Success(ctx, gin.H{"removed": 0, "decision": strings.ToLower(req.Decision)})
	default:
		utils.Error(ctx, http.StatusBadRequest, 40023, "unknown decision")
	}
}

// Stats reports channel occupancy against the configured capacity.
func (a *ArchiveController) Stats(ctx *gin.Context) {
	channelID := ctx.Param("channel")
	stats, err := a.store.Stats(channelID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load stats")
		return
	}
	utils.Success(ctx, stats)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}
	return page, size
}
