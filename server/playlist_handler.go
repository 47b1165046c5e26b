package server

import (
	"net/http"
	"strconv"
	"strings"

	"playlister/core/store"
	"playlister/model"
	"playlister/repository"

	"github.com/gorilla/mux"
)

// playlistFields are the owner-editable playlist fields of a request body.
type playlistFields struct {
	Name      *string               `json:"name"`
	Songs     *[]model.EmbeddedSong `json:"songs"`
	Published *bool                 `json:"published"`
}

func (f playlistFields) patch() repository.PlaylistPatch {
	return repository.PlaylistPatch{Name: f.Name, Songs: f.Songs, Published: f.Published}
}

// updatePlaylistRequest accepts both {"playlist": {...}} and a flat body.
type updatePlaylistRequest struct {
	Playlist *playlistFields `json:"playlist"`
	playlistFields
}

// CreatePlaylistHandler 创建播放列表
func (s *Server) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string               `json:"name"`
		Songs []model.EmbeddedSong `json:"songs"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	playlist, err := s.playlists.Create(r.Context(), UserIDFromContext(r.Context()), req.Name, req.Songs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}

// GetPlaylistHandler returns one playlist the caller may see.
func (s *Server) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Get(r.Context(), s.VerifyUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}

// parseYear reads an optional year query parameter.
func parseYear(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return 0, &store.Error{Kind: store.ErrValidation, Message: "Invalid " + name + " parameter"}
	}
	return year, nil
}

// ListPlaylistsHandler lists playlists by view with optional filters and sort.
func (s *Server) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(r, "songYear")
	if err != nil {
		writeError(w, err)
		return
	}

	playlists, err := s.playlists.List(r.Context(), s.VerifyUser(r), store.PlaylistQuery{
		View: q.Get("view"),
		PlaylistFilter: store.PlaylistFilter{
			Name:       q.Get("name"),
			OwnerName:  q.Get("ownerName"),
			SongTitle:  q.Get("songTitle"),
			SongArtist: q.Get("songArtist"),
			SongYear:   year,
		},
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"playlists": playlists,
	})
}

// PlaylistPairsHandler lists id/name pairs of the caller's playlists.
func (s *Server) PlaylistPairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.playlists.Pairs(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"idNamePairs": pairs,
	})
}

// UpdatePlaylistHandler 更新播放列表
func (s *Server) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req updatePlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fields := req.playlistFields
	if req.Playlist != nil {
		fields = *req.Playlist
	}

	id := mux.Vars(r)["id"]
	playlist, err := s.playlists.Update(r.Context(), UserIDFromContext(r.Context()), id, fields.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"id":       playlist.ID,
		"message":  "Playlist updated!",
		"playlist": playlist,
	})
}

// PublishPlaylistHandler publishes or unpublishes a playlist.
func (s *Server) PublishPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Published *bool `json:"published"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Published == nil {
		writeFailure(w, http.StatusBadRequest, "published is required")
		return
	}

	playlist, err := s.playlists.Publish(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], *req.Published)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}

// DeletePlaylistHandler 删除播放列表
func (s *Server) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// PlayPlaylistHandler counts a listen for guests and members alike.
func (s *Server) PlayPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Play(r.Context(), s.VerifyUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	playsTotal.WithLabelValues("playlist").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}

// CopyPlaylistHandler 复制播放列表
func (s *Server) CopyPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Copy(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}

// AddSongToPlaylistHandler appends a catalog song to a playlist.
func (s *Server) AddSongToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SongID string `json:"songId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	playlist, err := s.playlists.AddCatalogSong(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], req.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"playlist": playlist,
	})
}
