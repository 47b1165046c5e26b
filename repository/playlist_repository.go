package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playlister/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormPlaylistRepository implements PlaylistRepository with GORM.
type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository creates a GORM backed PlaylistRepository.
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func preloadListeners(db *gorm.DB) *gorm.DB {
	return db.Preload("Listeners", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, user_id ASC")
	})
}

func (r *gormPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	rec := newPlaylistRecord(playlist)
	// listeners of a new playlist always start empty
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	playlist.CreatedDate = rec.CreatedAt
	playlist.LastEditedDate = rec.UpdatedAt
	if playlist.Songs == nil {
		playlist.Songs = []model.EmbeddedSong{}
	}
	playlist.UniqueListeners = []string{}
	return nil
}

func (r *gormPlaylistRepository) GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	return r.load(r.db.WithContext(ctx), id)
}

func (r *gormPlaylistRepository) load(db *gorm.DB, id string) (*model.Playlist, error) {
	var rec playlistRecord
	if err := preloadListeners(db).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return rec.toModel(), nil
}

func (r *gormPlaylistRepository) FindPlaylists(ctx context.Context, scope PlaylistScope) ([]*model.Playlist, error) {
	q := preloadListeners(r.db.WithContext(ctx)).Order("created_at ASC, id ASC")
	if scope.OwnerEmail != "" {
		q = q.Where("owner_email = ?", scope.OwnerEmail)
	}
	if scope.PublishedOnly {
		q = q.Where("published = ?", true)
	} else if scope.VisibleTo != "" {
		q = q.Where("published = ? OR owner_email = ?", true, scope.VisibleTo)
	}

	var recs []playlistRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to find playlists: %w", err)
	}

	playlists := make([]*model.Playlist, 0, len(recs))
	for i := range recs {
		playlists = append(playlists, recs[i].toModel())
	}
	return playlists, nil
}

func (r *gormPlaylistRepository) UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (*model.Playlist, error) {
	var updated *model.Playlist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]interface{}{"updated_at": time.Now()}
		if patch.Name != nil {
			values["name"] = *patch.Name
		}
		if patch.Songs != nil {
			values["songs"] = embeddedSongs(append([]model.EmbeddedSong{}, (*patch.Songs)...))
		}
		if patch.Published != nil {
			values["published"] = *patch.Published
		}

		// MySQL reports zero affected rows for no-op updates, so check existence first.
		var count int64
		if err := tx.Model(&playlistRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if err := tx.Model(&playlistRecord{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return err
		}

		var err error
		updated, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist %s: %w", id, err)
	}
	return updated, nil
}

func (r *gormPlaylistRepository) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&listenerRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&playlistRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return deleted, nil
}

// RecordPlay leaves updated_at untouched; a play is not an edit.
func (r *gormPlaylistRepository) RecordPlay(ctx context.Context, id, listenerID string) (*model.Playlist, error) {
	var played *model.Playlist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&playlistRecord{}).Where("id = ?", id).
			UpdateColumn("listens", gorm.Expr("listens + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if listenerID != "" {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&listenerRecord{PlaylistID: id, UserID: listenerID}).Error
			if err != nil {
				return err
			}
		}

		var err error
		played, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record play for playlist %s: %w", id, err)
	}
	return played, nil
}

func (r *gormPlaylistRepository) AppendSong(ctx context.Context, id string, song model.EmbeddedSong) (*model.Playlist, error) {
	var updated *model.Playlist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var rec playlistRecord
		if err := q.First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		songs := append(embeddedSongs{}, rec.Songs...)
		songs = append(songs, song)
		err := tx.Model(&playlistRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
			"songs":      songs,
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return err
		}

		updated, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append song to playlist %s: %w", id, err)
	}
	return updated, nil
}

func (r *gormPlaylistRepository) ReassignOwner(ctx context.Context, oldEmail, newEmail, newName string) error {
	err := r.db.WithContext(ctx).Model(&playlistRecord{}).Where("owner_email = ?", oldEmail).
		UpdateColumns(map[string]interface{}{"owner_email": newEmail, "owner_name": newName}).Error
	if err != nil {
		return fmt.Errorf("failed to reassign playlists of %s: %w", oldEmail, err)
	}
	return nil
}

// NewGormRepositories wires the GORM implementations of every repository.
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:     NewGormUserRepository(db),
		Songs:     NewGormSongRepository(db),
		Playlists: NewGormPlaylistRepository(db),
	}
}
