package archive

import (
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/mediavault/models"
)

// Store is the per-channel content-addressed archive: dedup by content hash,
// capacity-bounded via the governor, blob-before-row persistence.
type Store struct {
	repo     RecordRepo
	blobs    BlobStore
	governor *CapacityGovernor
	log      *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore wires the archive around a row repo and a blob store. maxPerChannel
// is assumed to be already clamped by configuration loading.
func NewStore(repo RecordRepo, blobs BlobStore, maxPerChannel int, log *zap.SugaredLogger) *Store {
	return &Store{
		repo:     repo,
		blobs:    blobs,
		governor: NewCapacityGovernor(repo, blobs, maxPerChannel, log),
		log:      log,
		locks:    map[string]*sync.Mutex{},
	}
}

// channelLock returns the mutex serializing mutations for one channel.
// Different channels never serialize against each other.
func (s *Store) channelLock(channelID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelID] = l
	}
	return l
}

// IngestInput carries pre-fetched content plus its fingerprint and provenance.
// Fetching happens before the per-channel critical section so no network I/O
// runs under the lock.
type IngestInput struct {
	Content         []byte
	Fingerprint     Fingerprint
	UploaderID      string
	SourceMessageID string
}

// IngestResult reports the stored (or pre-existing) record. Duplicate is an
// informational outcome, not an error.
type IngestResult struct {
	Record    *models.ArchiveRecord
	Duplicate bool
	Evicted   int
}

// Exists looks a record up by (channel, hash). Nil without error on miss.
func (s *Store) Exists(channelID, hash string) (*models.ArchiveRecord, error) {
	return s.repo.FindByHash(channelID, hash)
}

// Ingest runs the existence-check, eviction, blob-write, row-insert sequence
// as one logical transaction per channel. The blob write completes before the
// row becomes visible; a crash in between leaves an orphan blob, never a
// dangling record.
func (s *Store) Ingest(channelID string, in IngestInput) (IngestResult, error) {
	l := s.channelLock(channelID)
	l.Lock()
	defer l.Unlock()

	if prior, err := s.repo.FindByHash(channelID, in.Fingerprint.Hash); err != nil {
		return IngestResult{}, err
	} else if prior != nil {
		return IngestResult{Record: prior, Duplicate: true}, nil
	}

	evicted := s.governor.EnsureSlot(channelID)

	now := time.Now()
	fileName := in.Fingerprint.Hash + "." + in.Fingerprint.Extension
	blobPath := path.Join(channelID, now.Format("20060102"), fileName)

	if err := s.blobs.Write(blobPath, in.Content); err != nil {
		return IngestResult{}, err
	}

	rec := &models.ArchiveRecord{
		ChannelID:       channelID,
		ContentHash:     in.Fingerprint.Hash,
		Extension:       in.Fingerprint.Extension,
		MimeType:        in.Fingerprint.MimeType,
		ByteSize:        int64(len(in.Content)),
		IsAnimated:      in.Fingerprint.Animated,
		StoredFileName:  fileName,
		BlobPath:        blobPath,
		UploaderID:      in.UploaderID,
		SourceMessageID: in.SourceMessageID,
		CreatedAt:       now,
	}
	if err := s.repo.Create(rec); err != nil {
		// Roll the blob back so a failed insert does not leak an orphan.
		if derr := s.blobs.Delete(blobPath); derr != nil {
			s.log.Warnw("orphan blob cleanup failed", "path", blobPath, "err", derr)
		}
		return IngestResult{}, err
	}

	return IngestResult{Record: rec, Evicted: evicted}, nil
}

// List returns one page of records newest-first plus the channel total.
func (s *Store) List(channelID string, page, pageSize int) ([]models.ArchiveRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	total, err := s.repo.Count(channelID)
	if err != nil {
		return nil, 0, err
	}
	recs, err := s.repo.Page(channelID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// GetByIndex resolves a 1-based index over the newest-first order.
func (s *Store) GetByIndex(channelID string, index int) (*models.ArchiveRecord, error) {
	if index < 1 {
		return nil, ErrIndexOutOfRange
	}
	recs, err := s.repo.Page(channelID, index-1, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrIndexOutOfRange
	}
	return &recs[0], nil
}

// ReadBlob loads a record's bytes. A record whose blob has disappeared yields
// ErrBlobMissing; the record itself stays in place.
func (s *Store) ReadBlob(rec *models.ArchiveRecord) ([]byte, error) {
	return s.blobs.Read(rec.BlobPath)
}

// BlobLocation resolves a record to an absolute on-disk path when available.
func (s *Store) BlobLocation(rec *models.ArchiveRecord) (string, bool) {
	if !s.blobs.Exists(rec.BlobPath) {
		return "", false
	}
	return s.blobs.Location(rec.BlobPath)
}

// DeleteByIndex removes the blob (tolerating a missing file) then the row.
// Returns the removed record.
func (s *Store) DeleteByIndex(channelID string, index int) (*models.ArchiveRecord, error) {
	l := s.channelLock(channelID)
	l.Lock()
	defer l.Unlock()

	rec, err := s.GetByIndex(channelID, index)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Delete(rec.BlobPath); err != nil {
		s.log.Warnw("delete blob failed", "channel", channelID, "id", rec.ID, "err", err)
	}
	if err := s.repo.DeleteByID(rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ClearChannel removes all blobs then all rows for the channel. Returns the
// number of removed records.
func (s *Store) ClearChannel(channelID string) (int64, error) {
	l := s.channelLock(channelID)
	l.Lock()
	defer l.Unlock()

	recs, err := s.repo.All(channelID)
	if err != nil {
		return 0, err
	}
	for _, r := range recs {
		if err := s.blobs.Delete(r.BlobPath); err != nil {
			s.log.Warnw("clear blob delete failed", "channel", channelID, "id", r.ID, "err", err)
		}
	}
	return s.repo.DeleteChannel(channelID)
}

// ChannelStats summarizes one channel for the stats endpoint.
type ChannelStats struct {
	ChannelID string `json:"channel_id"`
	Count     int64  `json:"count"`
	Capacity  int    `json:"capacity"`
	ByteTotal int64  `json:"byte_total"`
}

func (s *Store) Stats(channelID string) (ChannelStats, error) {
	count, err := s.repo.Count(channelID)
	if err != nil {
		return ChannelStats{}, err
	}
	total, err := s.repo.SumBytes(channelID)
	if err != nil {
		return ChannelStats{}, err
	}
	return ChannelStats{
		ChannelID: channelID,
		Count:     count,
		Capacity:  s.governor.Max(),
		ByteTotal: total,
	}, nil
}
