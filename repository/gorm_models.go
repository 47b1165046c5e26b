package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"playlister/model"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// longText holds values that can exceed 64KB, such as inline avatar data URLs.
type longText string

func (longText) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "MEDIUMTEXT"
	}
	return "TEXT"
}

// embeddedSongs is stored as a JSON array in a single column, so a playlist
// keeps its own ordered copies instead of references to catalog rows.
type embeddedSongs []model.EmbeddedSong

func (embeddedSongs) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "LONGTEXT"
	case "postgres":
		return "JSONB"
	default:
		return "TEXT"
	}
}

func (s embeddedSongs) Value() (driver.Value, error) {
	if s == nil {
		s = embeddedSongs{}
	}
	b, err := json.Marshal([]model.EmbeddedSong(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *embeddedSongs) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = embeddedSongs{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported songs column type %T", value)
	}
	if len(raw) == 0 {
		*s = embeddedSongs{}
		return nil
	}
	return json.Unmarshal(raw, (*[]model.EmbeddedSong)(s))
}

type userRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	UserName     string `gorm:"size:100;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	AvatarImage  longText
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func newUserRecord(u *model.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		UserName:     u.UserName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AvatarImage:  longText(u.AvatarImage),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		UserName:     r.UserName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		AvatarImage:  string(r.AvatarImage),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type songRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Title         string `gorm:"size:255;not null;uniqueIndex:idx_song_identity"`
	Artist        string `gorm:"size:255;not null;uniqueIndex:idx_song_identity"`
	Year          int    `gorm:"not null;uniqueIndex:idx_song_identity"`
	YouTubeID     string `gorm:"column:you_tube_id;size:64;not null"`
	AddedBy       string `gorm:"size:255;not null;index"`
	AddedByName   string `gorm:"size:100"`
	Listens       int64  `gorm:"not null;default:0"`
	PlaylistCount int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (songRecord) TableName() string { return "songs" }

func newSongRecord(s *model.Song) *songRecord {
	return &songRecord{
		ID:            s.ID,
		Title:         s.Title,
		Artist:        s.Artist,
		Year:          s.Year,
		YouTubeID:     s.YouTubeID,
		AddedBy:       s.AddedBy,
		AddedByName:   s.AddedByName,
		Listens:       s.Listens,
		PlaylistCount: s.PlaylistCount,
		CreatedAt:     s.CreatedDate,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r *songRecord) toModel() *model.Song {
	return &model.Song{
		ID:            r.ID,
		Title:         r.Title,
		Artist:        r.Artist,
		Year:          r.Year,
		YouTubeID:     r.YouTubeID,
		AddedBy:       r.AddedBy,
		AddedByName:   r.AddedByName,
		Listens:       r.Listens,
		PlaylistCount: r.PlaylistCount,
		CreatedDate:   r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type playlistRecord struct {
	ID         string           `gorm:"primaryKey;size:36"`
	Name       string           `gorm:"size:255;not null"`
	OwnerEmail string           `gorm:"size:255;not null;index"`
	OwnerName  string           `gorm:"size:100"`
	Songs      embeddedSongs    `gorm:"not null"`
	Published  bool             `gorm:"not null;index"`
	Listens    int64            `gorm:"not null"`
	Listeners  []listenerRecord `gorm:"foreignKey:PlaylistID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (playlistRecord) TableName() string { return "playlists" }

// listenerRecord marks that a user played a playlist at least once.
type listenerRecord struct {
	PlaylistID string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time
}

func (listenerRecord) TableName() string { return "playlist_listeners" }

func newPlaylistRecord(p *model.Playlist) *playlistRecord {
	return &playlistRecord{
		ID:         p.ID,
		Name:       p.Name,
		OwnerEmail: p.OwnerEmail,
		OwnerName:  p.OwnerName,
		Songs:      embeddedSongs(append([]model.EmbeddedSong{}, p.Songs...)),
		Published:  p.Published,
		Listens:    p.Listens,
		CreatedAt:  p.CreatedDate,
		UpdatedAt:  p.LastEditedDate,
	}
}

func (r *playlistRecord) toModel() *model.Playlist {
	listeners := make([]string, 0, len(r.Listeners))
	for _, l := range r.Listeners {
		listeners = append(listeners, l.UserID)
	}
	songs := []model.EmbeddedSong(r.Songs)
	if songs == nil {
		songs = []model.EmbeddedSong{}
	}
	return &model.Playlist{
		ID:              r.ID,
		Name:            r.Name,
		OwnerEmail:      r.OwnerEmail,
		OwnerName:       r.OwnerName,
		Songs:           songs,
		Published:       r.Published,
		Listens:         r.Listens,
		UniqueListeners: listeners,
		CreatedDate:     r.CreatedAt,
		LastEditedDate:  r.UpdatedAt,
	}
}

// GormModels lists the records AutoMigrate has to create.
func GormModels() []interface{} {
	return []interface{}{&userRecord{}, &songRecord{}, &playlistRecord{}, &listenerRecord{}}
}

// isDuplicateKey recognizes unique index violations. TranslateError covers
// the supported dialects; the message checks catch drivers that bypass it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
