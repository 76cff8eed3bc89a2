package archive

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/mediavault/models"
)

// RecordRepo is the persistent row store boundary: typed rows keyed by an
// auto-incrementing id with filtered, ordered, paginated selects.
type RecordRepo interface {
	Create(rec *models.ArchiveRecord) error
	// FindByHash returns nil without error when no record matches.
	FindByHash(channelID, hash string) (*models.ArchiveRecord, error)
	// Page returns records newest-first.
	Page(channelID string, offset, limit int) ([]models.ArchiveRecord, error)
	// Oldest returns up to limit records oldest-first.
	Oldest(channelID string, limit int) ([]models.ArchiveRecord, error)
	All(channelID string) ([]models.ArchiveRecord, error)
	Count(channelID string) (int64, error)
	SumBytes(channelID string) (int64, error)
	DeleteByID(id uint) error
	DeleteChannel(channelID string) (int64, error)
}

// GormRecordRepo implements RecordRepo on top of MySQL via GORM.
type GormRecordRepo struct {
	db *gorm.DB
}

func NewGormRecordRepo(db *gorm.DB) *GormRecordRepo {
	return &GormRecordRepo{db: db}
}

func (r *GormRecordRepo) Create(rec *models.ArchiveRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("%w: create record: %v", ErrStoreIO, err)
	}
	return nil
}

func (r *GormRecordRepo) FindByHash(channelID, hash string) (*models.ArchiveRecord, error) {
	var rec models.ArchiveRecord
	err := r.db.Where("channel_id = ? AND content_hash = ?", channelID, hash).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup record: %v", ErrStoreIO, err)
	}
	return &rec, nil
}

func (r *GormRecordRepo) Page(channelID string, offset, limit int) ([]models.ArchiveRecord, error) {
	var recs []models.ArchiveRecord
	err := r.db.Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: page records: %v", ErrStoreIO, err)
	}
	return recs, nil
}

func (r *GormRecordRepo) Oldest(channelID string, limit int) ([]models.ArchiveRecord, error) {
	var recs []models.ArchiveRecord
	err := r.db.Where("channel_id = ?", channelID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: oldest records: %v", ErrStoreIO, err)
	}
	return recs, nil
}

func (r *GormRecordRepo) All(channelID string) ([]models.ArchiveRecord, error) {
	var recs []models.ArchiveRecord
	err := r.db.Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", ErrStoreIO, err)
	}
	return recs, nil
}

func (r *GormRecordRepo) Count(channelID string) (int64, error) {
	var cnt int64
	err := r.db.Model(&models.ArchiveRecord{}).Where("channel_id = ?", channelID).Count(&cnt).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count records: %v", ErrStoreIO, err)
	}
	return cnt, nil
}

func (r *GormRecordRepo) SumBytes(channelID string) (int64, error) {
	var total int64
	err := r.db.Model(&models.ArchiveRecord{}).
		Where("channel_id = ?", channelID).
		Select("COALESCE(SUM(byte_size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: sum bytes: %v", ErrStoreIO, err)
	}
	return total, nil
}

func (r *GormRecordRepo) DeleteByID(id uint) error {
	if err := r.db.Delete(&models.ArchiveRecord{}, id).Error; err != nil {
		return fmt.Errorf("%w: delete record %d: %v", ErrStoreIO, id, err)
	}
	return nil
}

func (r *GormRecordRepo) DeleteChannel(channelID string) (int64, error) {
	res := r.db.Where("channel_id = ?", channelID).Delete(&models.ArchiveRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: clear channel %s: %v", ErrStoreIO, channelID, res.Error)
	}
	return res.RowsAffected, nil
}
