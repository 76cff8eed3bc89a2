package models

import "time"

// ArchiveRecord is one stored media item inside a channel archive.
// Records are append-only: created by a successful ingest and removed by
// explicit deletion, channel clear or capacity eviction. They are never updated.
type ArchiveRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ChannelID       string    `gorm:"size:64;not null;uniqueIndex:uniq_channel_hash;index:idx_channel_created,priority:1" json:"channel_id"`
	ContentHash     string    `gorm:"size:32;not null;uniqueIndex:uniq_channel_hash" json:"content_hash"`
	Extension       string    `gorm:"size:16;not null" json:"extension"`
	MimeType        string    `gorm:"size:64;not null" json:"mime_type"`
	ByteSize        int64     `gorm:"not null" json:"byte_size"`
	IsAnimated      bool      `gorm:"not null" json:"is_animated"`
	StoredFileName  string    `gorm:"size:255;not null" json:"stored_file_name"`
	BlobPath        string    `gorm:"size:1024;not null" json:"blob_path"` // path relative to the blob root
	UploaderID      string    `gorm:"size:64" json:"uploader_id"`
	SourceMessageID string    `gorm:"size:64" json:"source_message_id"`
	CreatedAt       time.Time `gorm:"index:idx_channel_created,priority:2" json:"created_at"`
}
