package main

import (
	"time"

	"github.com/cppla/mediavault/archive"
	"github.com/cppla/mediavault/chat"
	"github.com/cppla/mediavault/config"
	"github.com/cppla/mediavault/delivery"
	"github.com/cppla/mediavault/models"
	"github.com/cppla/mediavault/routes"
	"github.com/cppla/mediavault/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.ArchiveRecord{})

	blobs, err := archive.NewDiskBlobStore(cfg.ArchiveRoot)
	if err != nil {
		utils.Sugar.Fatalf("blob store init failed: %v", err)
	}
	store := archive.NewStore(archive.NewGormRecordRepo(db), blobs, cfg.MaxPerChannel, utils.Sugar)

	fetcher := chat.NewFetcher(time.Duration(cfg.FetchTimeoutMs) * time.Millisecond)
	confirms := chat.NewRedisConfirmStore(utils.GetRedis())

	dispatcher := delivery.NewDispatcher(cfg.ArchiveTempDir, delivery.Mode(cfg.StaticTransferMode), delivery.Mode(cfg.AnimatedTransferMode), utils.Sugar)
	handler := chat.NewHandler(store, dispatcher, fetcher, confirms, chat.HandlerConfig{
		Enabled:   cfg.ArchiveEnabled,
		Channels:  cfg.ArchiveChannels,
		Threshold: cfg.PermissionThreshold,
	}, utils.Sugar)

	r := routes.SetupRouter(store, fetcher, confirms, handler)

	// Sweep stale ephemeral delivery files left behind by crashes (best-effort)
	utils.StartTempSweeper(cfg.ArchiveTempDir, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
