package repository

import (
	"context"
	"errors"
	"fmt"

	"playlister/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormSongRepository implements SongRepository with GORM.
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository creates a GORM backed SongRepository.
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) CreateSong(ctx context.Context, song *model.Song) error {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	rec := newSongRecord(song)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSong
		}
		return fmt.Errorf("failed to create song: %w", err)
	}
	song.CreatedDate = rec.CreatedAt
	song.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *gormSongRepository) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	var rec songRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get song %s: %w", id, err)
	}
	return rec.toModel(), nil
}

func (r *gormSongRepository) FindSongByIdentity(ctx context.Context, title, artist string, year int) (*model.Song, error) {
	var rec songRecord
	err := r.db.WithContext(ctx).
		Where("title = ? AND artist = ? AND year = ?", title, artist, year).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find song: %w", err)
	}
	return rec.toModel(), nil
}

func (r *gormSongRepository) ListSongs(ctx context.Context, addedBy string) ([]*model.Song, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if addedBy != "" {
		q = q.Where("added_by = ?", addedBy)
	}

	var recs []songRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	songs := make([]*model.Song, 0, len(recs))
	for i := range recs {
		songs = append(songs, recs[i].toModel())
	}
	return songs, nil
}

// UpdateSong writes the editable fields of song. Counters are left alone.
func (r *gormSongRepository) UpdateSong(ctx context.Context, song *model.Song) error {
	err := r.db.WithContext(ctx).Model(&songRecord{ID: song.ID}).Updates(map[string]interface{}{
		"title":       song.Title,
		"artist":      song.Artist,
		"year":        song.Year,
		"you_tube_id": song.YouTubeID,
	}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSong
		}
		return fmt.Errorf("failed to update song %s: %w", song.ID, err)
	}
	return nil
}

func (r *gormSongRepository) DeleteSong(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&songRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete song %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormSongRepository) IncrementListens(ctx context.Context, id string) (int64, bool, error) {
	var listens int64
	found := true
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&songRecord{}).Where("id = ?", id).
			UpdateColumn("listens", gorm.Expr("listens + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			found = false
			return nil
		}
		return tx.Model(&songRecord{}).Where("id = ?", id).Pluck("listens", &listens).Error
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to record listen for song %s: %w", id, err)
	}
	return listens, found, nil
}

func (r *gormSongRepository) IncrementPlaylistCount(ctx context.Context, id string, delta int64) error {
	err := r.db.WithContext(ctx).Model(&songRecord{}).Where("id = ?", id).
		UpdateColumn("playlist_count", gorm.Expr("playlist_count + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to update playlist count for song %s: %w", id, err)
	}
	return nil
}

func (r *gormSongRepository) ReassignAdder(ctx context.Context, oldEmail, newEmail, newName string) error {
	err := r.db.WithContext(ctx).Model(&songRecord{}).Where("added_by = ?", oldEmail).
		UpdateColumns(map[string]interface{}{"added_by": newEmail, "added_by_name": newName}).Error
	if err != nil {
		return fmt.Errorf("failed to reassign songs of %s: %w", oldEmail, err)
	}
	return nil
}
