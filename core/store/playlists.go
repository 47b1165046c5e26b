package store

import (
	"context"
	"strings"

	"playlister/logger"
	"playlister/model"
	"playlister/repository"
)

// Playlist listing views.
const (
	ViewHome = "home" // the caller's own playlists
	ViewUser = "user" // playlists of owners matching ownerName
	ViewAll  = "all"  // every published playlist
)

// DefaultPlaylistName is used when a playlist is created without a name.
const DefaultPlaylistName = "Untitled"

// PlaylistCache caches playlists by id. Get returns (nil, nil) on a miss.
type PlaylistCache interface {
	Get(ctx context.Context, id string) (*model.Playlist, error)
	Set(ctx context.Context, p *model.Playlist) error
	Invalidate(ctx context.Context, id string) error
}

// PlayNotifier is told about every recorded playlist play.
type PlayNotifier interface {
	NotifyPlay(p *model.Playlist)
}

// PlaylistQuery is a playlist listing request.
type PlaylistQuery struct {
	View string
	PlaylistFilter
	SortBy    string
	SortOrder string
}

// PlaylistStore 播放列表业务逻辑
type PlaylistStore struct {
	playlists repository.PlaylistRepository
	songs     repository.SongRepository
	users     repository.UserRepository
	cache     PlaylistCache
	notifier  PlayNotifier
}

// NewPlaylistStore creates a PlaylistStore. cache and notifier are optional.
func NewPlaylistStore(repos repository.Repositories, cache PlaylistCache, notifier PlayNotifier) *PlaylistStore {
	return &PlaylistStore{
		playlists: repos.Playlists,
		songs:     repos.Songs,
		users:     repos.Users,
		cache:     cache,
		notifier:  notifier,
	}
}

// ========== 缓存 ==========

func (s *PlaylistStore) load(ctx context.Context, id string) (*model.Playlist, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, id)
		if err != nil {
			logger.Warn("Playlist cache read failed", logger.String("playlistId", id), logger.ErrorField(err))
		} else if p != nil {
			return p, nil
		}
	}

	p, err := s.playlists.GetPlaylistByID(ctx, id)
	if err != nil {
		return nil, internalError("get playlist", err)
	}
	if p == nil {
		return nil, notFoundError("Playlist not found!")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			logger.Warn("Playlist cache write failed", logger.String("playlistId", id), logger.ErrorField(err))
		}
	}
	return p, nil
}

func (s *PlaylistStore) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("Playlist cache invalidation failed", logger.String("playlistId", id), logger.ErrorField(err))
	}
}

// owned loads playlist id and checks that the caller owns it.
func (s *PlaylistStore) owned(ctx context.Context, callerID, id, action string) (*model.User, *model.Playlist, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.OwnerEmail != user.Email {
		return nil, nil, forbiddenError("You can only %s your own playlists", action)
	}
	return user, p, nil
}

// ========== 播放列表管理 ==========

// Create makes a new draft playlist owned by the caller.
func (s *PlaylistStore) Create(ctx context.Context, callerID, name string, songs []model.EmbeddedSong) (model.PlaylistView, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return model.PlaylistView{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlaylistName
	}
	p := &model.Playlist{
		Name:       name,
		OwnerEmail: user.Email,
		OwnerName:  user.UserName,
		Songs:      append([]model.EmbeddedSong{}, songs...),
	}
	if err := s.playlists.CreatePlaylist(ctx, p); err != nil {
		return model.PlaylistView{}, internalError("create playlist", err)
	}
	logger.Info("Playlist created", logger.String("playlistId", p.ID), logger.String("owner", user.Email))
	return p.ViewFor(user.Email), nil
}

// Get returns a playlist the caller may see: their own, or any published one.
func (s *PlaylistStore) Get(ctx context.Context, callerID, id string) (model.PlaylistView, error) {
	email, err := callerEmail(ctx, s.users, callerID)
	if err != nil {
		return model.PlaylistView{}, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return model.PlaylistView{}, err
	}
	if !p.Published && p.OwnerEmail != email {
		if email == "" {
			return model.PlaylistView{}, newError(ErrUnauthorized, "Log in to view this playlist")
		}
		return model.PlaylistView{}, forbiddenError("This playlist is not published")
	}
	return p.ViewFor(email), nil
}

// scopeFor maps a listing view to the storage candidate set. The user view
// without an owner name falls back to the caller's own playlists.
func scopeFor(view, email, ownerName string) repository.PlaylistScope {
	if email == "" {
		return repository.PlaylistScope{PublishedOnly: true}
	}
	switch {
	case view == ViewAll:
		return repository.PlaylistScope{PublishedOnly: true}
	case view == ViewUser && ownerName != "":
		return repository.PlaylistScope{VisibleTo: email}
	default:
		return repository.PlaylistScope{OwnerEmail: email}
	}
}

// List selects playlists by view, then filters and sorts them.
func (s *PlaylistStore) List(ctx context.Context, callerID string, q PlaylistQuery) ([]model.PlaylistView, error) {
	email, err := callerEmail(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}

	playlists, err := s.playlists.FindPlaylists(ctx, scopeFor(q.View, email, q.OwnerName))
	if err != nil {
		return nil, internalError("list playlists", err)
	}
	playlists = FilterPlaylists(playlists, q.PlaylistFilter)
	if err := SortPlaylists(playlists, q.SortBy, q.SortOrder); err != nil {
		return nil, err
	}

	views := make([]model.PlaylistView, 0, len(playlists))
	for _, p := range playlists {
		views = append(views, p.ViewFor(email))
	}
	return views, nil
}

// Pairs returns id/name pairs of the caller's playlists, oldest first.
func (s *PlaylistStore) Pairs(ctx context.Context, callerID string) ([]model.IDNamePair, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	playlists, err := s.playlists.FindPlaylists(ctx, repository.PlaylistScope{OwnerEmail: user.Email})
	if err != nil {
		return nil, internalError("list playlist pairs", err)
	}
	pairs := make([]model.IDNamePair, 0, len(playlists))
	for _, p := range playlists {
		pairs = append(pairs, model.IDNamePair{ID: p.ID, Name: p.Name})
	}
	return pairs, nil
}

// Update applies patch to a playlist the caller owns. Songs replace the
// whole sequence.
func (s *PlaylistStore) Update(ctx context.Context, callerID, id string, patch repository.PlaylistPatch) (model.PlaylistView, error) {
	if patch.Empty() {
		return model.PlaylistView{}, validationError("You must provide a playlist to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.PlaylistView{}, validationError("Playlist name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Songs != nil {
		for _, song := range *patch.Songs {
			if strings.TrimSpace(song.Title) == "" || strings.TrimSpace(song.YouTubeID) == "" {
				return model.PlaylistView{}, validationError("Every song needs a title and a YouTube ID")
			}
		}
	}
	return s.apply(ctx, callerID, id, "update", patch)
}

// Publish sets the published flag of a playlist the caller owns.
func (s *PlaylistStore) Publish(ctx context.Context, callerID, id string, published bool) (model.PlaylistView, error) {
	return s.apply(ctx, callerID, id, "publish", repository.PlaylistPatch{Published: &published})
}

func (s *PlaylistStore) apply(ctx context.Context, callerID, id, action string, patch repository.PlaylistPatch) (model.PlaylistView, error) {
	user, _, err := s.owned(ctx, callerID, id, action)
	if err != nil {
		return model.PlaylistView{}, err
	}

	updated, err := s.playlists.UpdatePlaylist(ctx, id, patch)
	s.invalidate(ctx, id)
	if err != nil {
		return model.PlaylistView{}, internalError(action+" playlist", err)
	}
	if updated == nil {
		return model.PlaylistView{}, notFoundError("Playlist not found!")
	}
	return updated.ViewFor(user.Email), nil
}

// Delete removes a playlist the caller owns.
func (s *PlaylistStore) Delete(ctx context.Context, callerID, id string) error {
	if _, _, err := s.owned(ctx, callerID, id, "delete"); err != nil {
		return err
	}

	deleted, err := s.playlists.DeletePlaylist(ctx, id)
	s.invalidate(ctx, id)
	if err != nil {
		return internalError("delete playlist", err)
	}
	if !deleted {
		return notFoundError("Playlist not found!")
	}
	logger.Info("Playlist deleted", logger.String("playlistId", id))
	return nil
}

// Play counts one listen. Authenticated callers are added to the unique
// listeners. Anyone may play any playlist they know the id of.
func (s *PlaylistStore) Play(ctx context.Context, callerID, id string) (model.PlaylistView, error) {
	email, err := callerEmail(ctx, s.users, callerID)
	if err != nil {
		return model.PlaylistView{}, err
	}
	listener := ""
	if email != "" {
		listener = callerID
	}

	p, err := s.playlists.RecordPlay(ctx, id, listener)
	s.invalidate(ctx, id)
	if err != nil {
		return model.PlaylistView{}, internalError("play playlist", err)
	}
	if p == nil {
		return model.PlaylistView{}, notFoundError("Playlist not found!")
	}

	if s.notifier != nil {
		s.notifier.NotifyPlay(p)
	}
	return p.ViewFor(email), nil
}

// CopySuffix marks the name of a copied playlist.
const CopySuffix = " (Copy)"

// Copy duplicates a published playlist, or one of the caller's own, into a
// new draft owned by the caller.
func (s *PlaylistStore) Copy(ctx context.Context, callerID, id string) (model.PlaylistView, error) {
	user, err := caller(ctx, s.users, callerID)
	if err != nil {
		return model.PlaylistView{}, err
	}
	src, err := s.load(ctx, id)
	if err != nil {
		return model.PlaylistView{}, err
	}
	if !src.Published && src.OwnerEmail != user.Email {
		return model.PlaylistView{}, forbiddenError("You can only copy published playlists or your own playlists")
	}

	dup := &model.Playlist{
		Name:       src.Name + CopySuffix,
		OwnerEmail: user.Email,
		OwnerName:  user.UserName,
		Songs:      append([]model.EmbeddedSong{}, src.Songs...),
	}
	if err := s.playlists.CreatePlaylist(ctx, dup); err != nil {
		return model.PlaylistView{}, internalError("copy playlist", err)
	}
	logger.Info("Playlist copied", logger.String("from", src.ID), logger.String("playlistId", dup.ID))
	return dup.ViewFor(user.Email), nil
}

// AddCatalogSong appends a copy of catalog song songID to a playlist the
// caller owns and counts the new use on the catalog entry.
func (s *PlaylistStore) AddCatalogSong(ctx context.Context, callerID, id, songID string) (model.PlaylistView, error) {
	if strings.TrimSpace(songID) == "" {
		return model.PlaylistView{}, validationError("songId is required")
	}
	user, _, err := s.owned(ctx, callerID, id, "edit")
	if err != nil {
		return model.PlaylistView{}, err
	}

	song, err := s.songs.GetSongByID(ctx, songID)
	if err != nil {
		return model.PlaylistView{}, internalError("add song to playlist", err)
	}
	if song == nil {
		return model.PlaylistView{}, notFoundError("Song not found")
	}

	updated, err := s.playlists.AppendSong(ctx, id, song.Embed())
	s.invalidate(ctx, id)
	if err != nil {
		return model.PlaylistView{}, internalError("add song to playlist", err)
	}
	if updated == nil {
		return model.PlaylistView{}, notFoundError("Playlist not found!")
	}

	if err := s.songs.IncrementPlaylistCount(ctx, song.ID, 1); err != nil {
		return model.PlaylistView{}, internalError("count playlist use", err)
	}
	return updated.ViewFor(user.Email), nil
}
