package repository

import (
	"context"
	"errors"

	"playlister/model"
)

var (
	// ErrDuplicateEmail is returned when an account with the email already exists.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrDuplicateSong is returned when the (title, artist, year) triple is taken.
	ErrDuplicateSong = errors.New("song with this title, artist and year already exists")
)

// Lookups return (nil, nil) when the record does not exist.

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// SongRepository defines the interface for catalog song operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) error
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	FindSongByIdentity(ctx context.Context, title, artist string, year int) (*model.Song, error)
	// ListSongs returns the catalog, restricted to songs added by addedBy
	// when it is not empty, oldest first.
	ListSongs(ctx context.Context, addedBy string) ([]*model.Song, error)
	UpdateSong(ctx context.Context, song *model.Song) error
	DeleteSong(ctx context.Context, id string) (bool, error)
	// IncrementListens atomically adds one listen and returns the new total.
	// found is false when the song does not exist.
	IncrementListens(ctx context.Context, id string) (listens int64, found bool, err error)
	IncrementPlaylistCount(ctx context.Context, id string, delta int64) error
	// ReassignAdder moves every song added by oldEmail to newEmail/newName.
	ReassignAdder(ctx context.Context, oldEmail, newEmail, newName string) error
}

// PlaylistScope selects the candidate set of a playlist listing. Conditions
// are combined with AND; the zero value matches every playlist.
type PlaylistScope struct {
	OwnerEmail    string // only playlists owned by this email
	PublishedOnly bool   // only published playlists
	// VisibleTo keeps published playlists plus the unpublished ones owned
	// by this email. Ignored when PublishedOnly is set.
	VisibleTo string
}

// PlaylistPatch lists the owner-editable fields; nil fields are left untouched.
// Songs replaces the whole sequence.
type PlaylistPatch struct {
	Name      *string
	Songs     *[]model.EmbeddedSong
	Published *bool
}

// Empty reports whether the patch changes nothing.
func (p PlaylistPatch) Empty() bool {
	return p.Name == nil && p.Songs == nil && p.Published == nil
}

// PlaylistRepository defines the interface for playlist operations.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) error
	GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	// FindPlaylists returns the playlists in scope, oldest first.
	FindPlaylists(ctx context.Context, scope PlaylistScope) ([]*model.Playlist, error)
	// UpdatePlaylist applies patch, bumps the last edited date and returns the
	// updated playlist, or nil when it does not exist.
	UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) (bool, error)
	// RecordPlay atomically increments listens and, when listenerID is not
	// empty, adds it to the unique listeners. Returns nil when missing.
	RecordPlay(ctx context.Context, id, listenerID string) (*model.Playlist, error)
	// AppendSong atomically appends song to the end of the playlist.
	AppendSong(ctx context.Context, id string, song model.EmbeddedSong) (*model.Playlist, error)
	// ReassignOwner moves every playlist of oldEmail to newEmail/newName
	// without touching last edited dates.
	ReassignOwner(ctx context.Context, oldEmail, newEmail, newName string) error
}

// Repositories groups the repositories of one storage backend.
type Repositories struct {
	Users     UserRepository
	Songs     SongRepository
	Playlists PlaylistRepository
}
