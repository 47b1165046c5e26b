package server

import (
	"net/http"

	"playlister/core/live"
	"playlister/logger"

	"github.com/gorilla/mux"
)

// LiveHandler subscribes a WebSocket to play events of one playlist. The
// caller must be allowed to see the playlist.
func (s *Server) LiveHandler(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeFailure(w, http.StatusServiceUnavailable, "Live updates are disabled")
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := s.playlists.Get(r.Context(), s.VerifyUser(r), id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn("WebSocket upgrade failed", logger.String("playlist", id), logger.ErrorField(err))
		return
	}

	client := live.NewClient(s.hub, conn, id)
	s.hub.Register(client)
	liveSubscribers.Inc()
	defer liveSubscribers.Dec()

	go client.WritePump()
	// the request context ends once this handler returns, so read here
	client.ReadPump(r.Context())
}
