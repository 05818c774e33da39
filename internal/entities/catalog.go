package entities

import (
	"time"
)

// Audiobook mirrors one catalog entry from the remote library server.
// IDs are server-assigned and immutable; rows are replaced wholesale on
// every catalog sync.
type Audiobook struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Title      string      `gorm:"index;size:512" json:"title"`
	Author     string      `gorm:"index;size:256" json:"author"`
	Series     *string     `gorm:"size:256" json:"series,omitempty"`
	CoverArt   *string     `gorm:"size:2048" json:"cover_art,omitempty"`
	LocalPath  *string     `gorm:"size:1024" json:"local_path,omitempty"`
	Metadata   *string     `gorm:"type:text" json:"metadata,omitempty"`
	Downloaded bool        `gorm:"default:false" json:"downloaded"`
	Files      []AudioFile `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AudioFile is one playable file belonging to an audiobook. FilePath is the
// server-relative fragment used to correlate against extracted archive
// contents; LocalPath is set once the owning book has been materialized.
// Duration and the codec fields stay nil until the server supplies them or
// a local probe fills them in.
type AudioFile struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	BookID     uint               `gorm:"index" json:"book_id"`
	FileName   string             `gorm:"size:512" json:"file_name"`
	FilePath   *string            `gorm:"size:1024" json:"file_path,omitempty"`
	LocalPath  *string            `gorm:"size:1024" json:"local_path,omitempty"`
	DurationMs *int64             `json:"duration,omitempty"`
	Channels   *int               `json:"channels,omitempty"`
	SampleRate *int               `json:"sample_rate,omitempty"`
	Bitrate    *int               `json:"bitrate,omitempty"`
	Progress   []PlaybackProgress `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// PlaybackProgress is the progress ledger row for one (book, file) pair.
// The composite primary key guarantees a single row per pair; writes are
// upserts that replace position and timestamp.
type PlaybackProgress struct {
	BookID      uint      `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	FileID      uint      `gorm:"primaryKey;autoIncrement:false" json:"file_id"`
	ProgressMs  int64     `gorm:"not null;default:0" json:"progress_ms"`
	LastUpdated time.Time `json:"last_updated"`
}

func (Audiobook) TableName() string {
	return "audiobooks"
}

func (AudioFile) TableName() string {
	return "files"
}

func (PlaybackProgress) TableName() string {
	return "progress"
}
