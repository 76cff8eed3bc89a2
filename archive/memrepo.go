package archive

import (
	"sort"
	"sync"

	"github.com/cppla/mediavault/models"
)

// MemoryRecordRepo is an in-memory RecordRepo used by tests and in-process
// trial runs. Ids increase monotonically and are never reused.
type MemoryRecordRepo struct {
	mu     sync.RWMutex
	nextID uint
	recs   []models.ArchiveRecord
}

func NewMemoryRecordRepo() *MemoryRecordRepo {
	return &MemoryRecordRepo{nextID: 1}
}

func (m *MemoryRecordRepo) Create(rec *models.ArchiveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *MemoryRecordRepo) FindByHash(channelID, hash string) (*models.ArchiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.recs {
		if m.recs[i].ChannelID == channelID && m.recs[i].ContentHash == hash {
			cp := m.recs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRecordRepo) channelRecords(channelID string, newestFirst bool) []models.ArchiveRecord {
	var out []models.ArchiveRecord
	for _, r := range m.recs {
		if r.ChannelID == channelID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func (m *MemoryRecordRepo) Page(channelID string, offset, limit int) ([]models.ArchiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.channelRecords(channelID, true)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryRecordRepo) Oldest(channelID string, limit int) ([]models.ArchiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.channelRecords(channelID, false)
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryRecordRepo) All(channelID string) ([]models.ArchiveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channelRecords(channelID, true), nil
}

func (m *MemoryRecordRepo) Count(channelID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cnt int64
	for _, r := range m.recs {
		if r.ChannelID == channelID {
			cnt++
		}
	}
	return cnt, nil
}

func (m *MemoryRecordRepo) SumBytes(channelID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, r := range m.recs {
		if r.ChannelID == channelID {
			total += r.ByteSize
		}
	}
	return total, nil
}

func (m *MemoryRecordRepo) DeleteByID(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRecordRepo) DeleteChannel(channelID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.ArchiveRecord
	var removed int64
	for _, r := range m.recs {
		if r.ChannelID == channelID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return removed, nil
}
