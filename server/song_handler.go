package server

import (
	"net/http"

	"playlister/core/store"

	"github.com/gorilla/mux"
)

// CreateSongHandler adds a song to the catalog.
func (s *Server) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	var req store.SongInput
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := s.songs.Create(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"song":    song,
	})
}

// ListSongsHandler searches and sorts the catalog.
func (s *Server) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(r, "year")
	if err != nil {
		writeError(w, err)
		return
	}

	songs, err := s.songs.List(r.Context(), s.VerifyUser(r), store.SongQuery{
		SongFilter: store.SongFilter{
			Title:   q.Get("title"),
			Artist:  q.Get("artist"),
			AddedBy: q.Get("addedBy"),
			Year:    year,
		},
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   songs,
	})
}

// GetSongHandler returns one catalog song.
func (s *Server) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	song, err := s.songs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"song":    song,
	})
}

// UpdateSongHandler edits a song the caller added.
func (s *Server) UpdateSongHandler(w http.ResponseWriter, r *http.Request) {
	var req store.SongInput
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := s.songs.Update(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"song":    song,
		"message": "Song updated!",
	})
}

// DeleteSongHandler removes a song the caller added.
func (s *Server) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.Delete(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// PlaySongHandler counts one listen of a catalog song.
func (s *Server) PlaySongHandler(w http.ResponseWriter, r *http.Request) {
	listens, err := s.songs.RecordPlay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	playsTotal.WithLabelValues("song").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"listens": listens,
	})
}
