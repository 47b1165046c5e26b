package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"playlister/logger"
	"playlister/storage"

	"github.com/gorilla/mux"
)

// AvatarHandler streams an uploaded avatar from object storage.
func (s *Server) AvatarHandler(w http.ResponseWriter, r *http.Request) {
	if s.avatars == nil {
		writeFailure(w, http.StatusNotFound, "Avatar not found")
		return
	}

	key := mux.Vars(r)["key"]
	obj, err := s.avatars.GetAvatar(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeFailure(w, http.StatusNotFound, "Avatar not found")
			return
		}
		logger.Error("Failed to load avatar", logger.String("key", key), logger.ErrorField(err))
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, obj.Body); err != nil {
		logger.Warn("Error serving avatar from MinIO", logger.String("key", key), logger.ErrorField(err))
	}
}
