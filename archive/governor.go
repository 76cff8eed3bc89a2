package archive

import "go.uber.org/zap"

// CapacityGovernor enforces the per-channel record bound via oldest-first
// eviction. There is no recency-of-access signal: re-sending an old item does
// not protect it from eviction.
type CapacityGovernor struct {
	repo  RecordRepo
	blobs BlobStore
	max   int
	log   *zap.SugaredLogger
}

func NewCapacityGovernor(repo RecordRepo, blobs BlobStore, max int, log *zap.SugaredLogger) *CapacityGovernor {
	return &CapacityGovernor{repo: repo, blobs: blobs, max: max, log: log}
}

// Max reports the configured capacity bound.
func (g *CapacityGovernor) Max() int { return g.max }

// EnsureSlot evicts oldest records until one slot is free for an incoming
// item; callers hold the channel lock. Eviction failures are logged and
// skipped so they never block the pending ingest. Returns the evicted count.
func (g *CapacityGovernor) EnsureSlot(channelID string) int {
	count, err := g.repo.Count(channelID)
	if err != nil {
		g.log.Warnw("capacity count failed, skipping eviction", "channel", channelID, "err", err)
		return 0
	}
	if count < int64(g.max) {
		return 0
	}

	need := int(count) - g.max + 1
	victims, err := g.repo.Oldest(channelID, need)
	if err != nil {
		g.log.Warnw("oldest lookup failed, skipping eviction", "channel", channelID, "err", err)
		return 0
	}

	evicted := 0
	for _, v := range victims {
		// Blob first, then row: a half-finished eviction leaves an orphan
		// blob rather than a dangling record.
		if err := g.blobs.Delete(v.BlobPath); err != nil {
			g.log.Warnw("evict blob delete failed", "channel", channelID, "id", v.ID, "err", err)
		}
		if err := g.repo.DeleteByID(v.ID); err != nil {
			g.log.Warnw("evict row delete failed", "channel", channelID, "id", v.ID, "err", err)
			continue
		}
		evicted++
	}
	if evicted > 0 {
		g.log.Infow("evicted oldest records", "channel", channelID, "count", evicted)
	}
	return evicted
}
