package store

import (
	"context"
	"errors"
	"strings"

	"playlister/logger"
	"playlister/model"
	"playlister/repository"
)

// SongStore manages the shared song catalog.
type SongStore struct {
	songs repository.SongRepository
	users repository.UserRepository
}

// NewSongStore creates a SongStore.
func NewSongStore(repos repository.Repositories) *SongStore {
	return &SongStore{songs: repos.Songs, users: repos.Users}
}

// SongInput carries the editable fields of a catalog song. On update, zero
// fields are left unchanged.
type SongInput struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Year      int    `json:"year"`
	YouTubeID string `json:"youTubeId"`
}

func (in *SongInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.YouTubeID = strings.TrimSpace(in.YouTubeID)
}

// SongQuery is a catalog listing request.
type SongQuery struct {
	SongFilter
	SortBy    string
	SortOrder string
}

const duplicateSongMessage = "A song with this title, artist, and year already exists"

// Create adds a song to the catalog on behalf of the caller.
func (s *SongStore) Create(ctx context.Context, callerID string, in SongInput) (*model.Song, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}

	in.trim()
	if in.Title == "" || in.Artist == "" || in.Year <= 0 || in.YouTubeID == "" {
		return nil, validationError("Title, artist, year, and YouTube ID are required")
	}

	existing, err := s.songs.FindSongByIdentity(ctx, in.Title, in.Artist, in.Year)
	if err != nil {
		return nil, internalError("create song", err)
	}
	if existing != nil {
		return nil, conflictError(duplicateSongMessage)
	}

	song := &model.Song{
		Title:       in.Title,
		Artist:      in.Artist,
		Year:        in.Year,
		YouTubeID:   in.YouTubeID,
		AddedBy:     user.Email,
		AddedByName: user.UserName,
	}
	if err := s.songs.CreateSong(ctx, song); err != nil {
		// lost the race against a concurrent insert
		if errors.Is(err, repository.ErrDuplicateSong) {
			return nil, conflictError(duplicateSongMessage)
		}
		return nil, internalError("create song", err)
	}
	logger.Info("Song created", logger.String("songId", song.ID), logger.String("addedBy", song.AddedBy))
	return song, nil
}

// List returns the catalog filtered and sorted per q, each song annotated
// with whether the caller added it.
func (s *SongStore) List(ctx context.Context, callerID string, q SongQuery) ([]model.CatalogSong, error) {
	email, err := callerEmail(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}

	songs, err := s.songs.ListSongs(ctx, q.AddedBy)
	if err != nil {
		return nil, internalError("list songs", err)
	}
	songs = FilterSongs(songs, q.SongFilter)
	if err := SortSongs(songs, q.SortBy, q.SortOrder); err != nil {
		return nil, err
	}

	out := make([]model.CatalogSong, 0, len(songs))
	for _, song := range songs {
		out = append(out, model.CatalogSong{
			Song:                 song,
			IsOwnedByCurrentUser: email != "" && song.AddedBy == email,
		})
	}
	return out, nil
}

// Get returns one catalog song.
func (s *SongStore) Get(ctx context.Context, id string) (*model.Song, error) {
	song, err := s.songs.GetSongByID(ctx, id)
	if err != nil {
		return nil, internalError("get song", err)
	}
	if song == nil {
		return nil, notFoundError("Song not found")
	}
	return song, nil
}

// owned loads song id and checks that the caller added it.
func (s *SongStore) owned(ctx context.Context, callerID, id, action string) (*model.Song, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	song, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if song.AddedBy != user.Email {
		return nil, forbiddenError("You can only %s songs you added", action)
	}
	return song, nil
}

// Update edits a song the caller added. Playlists that already embed the
// song keep their copies.
func (s *SongStore) Update(ctx context.Context, callerID, id string, in SongInput) (*model.Song, error) {
	song, err := s.owned(ctx, callerID, id, "edit")
	if err != nil {
		return nil, err
	}

	in.trim()
	if in.Year < 0 {
		return nil, validationError("Year must be a positive number")
	}
	identityChanged := (in.Title != "" && in.Title != song.Title) ||
		(in.Artist != "" && in.Artist != song.Artist) ||
		(in.Year != 0 && in.Year != song.Year)

	if in.Title != "" {
		song.Title = in.Title
	}
	if in.Artist != "" {
		song.Artist = in.Artist
	}
	if in.Year != 0 {
		song.Year = in.Year
	}
	if in.YouTubeID != "" {
		song.YouTubeID = in.YouTubeID
	}

	if identityChanged {
		existing, err := s.songs.FindSongByIdentity(ctx, song.Title, song.Artist, song.Year)
		if err != nil {
			return nil, internalError("update song", err)
		}
		if existing != nil && existing.ID != song.ID {
			return nil, conflictError(duplicateSongMessage)
		}
	}

	if err := s.songs.UpdateSong(ctx, song); err != nil {
		if errors.Is(err, repository.ErrDuplicateSong) {
			return nil, conflictError(duplicateSongMessage)
		}
		return nil, internalError("update song", err)
	}
	return song, nil
}

// Delete removes a song the caller added.
func (s *SongStore) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id, "delete"); err != nil {
		return err
	}
	deleted, err := s.songs.DeleteSong(ctx, id)
	if err != nil {
		return internalError("delete song", err)
	}
	if !deleted {
		return notFoundError("Song not found")
	}
	return nil
}

// RecordPlay counts one listen of song id and returns the new total.
func (s *SongStore) RecordPlay(ctx context.Context, id string) (int64, error) {
	listens, found, err := s.songs.IncrementListens(ctx, id)
	if err != nil {
		return 0, internalError("record song play", err)
	}
	if !found {
		return 0, notFoundError("Song not found")
	}
	return listens, nil
}
