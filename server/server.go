package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playlister/config"
	"playlister/core/auth"
	"playlister/core/live"
	"playlister/core/store"
	"playlister/logger"
	"playlister/repository"
	"playlister/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AvatarBackend stores uploaded avatars and serves them back.
type AvatarBackend interface {
	store.AvatarStore
	GetAvatar(ctx context.Context, key string) (*storage.Object, error)
}

// Deps are the collaborators of a Server. Cache, Avatars and Hub are optional.
type Deps struct {
	Config  *config.Config
	Repos   repository.Repositories
	Cache   store.PlaylistCache
	Avatars AvatarBackend
	Hub     *live.Hub
}

// Server 处理所有 HTTP 请求
type Server struct {
	cfg         *config.Config
	tokens      *auth.TokenManager
	users       *store.UserStore
	songs       *store.SongStore
	playlists   *store.PlaylistStore
	avatars     AvatarBackend
	hub         *live.Hub
	authLimiter *ipLimiter
	upgrader    websocket.Upgrader
	handler     http.Handler
}

// New wires the stores and builds the router.
func New(d Deps) *Server {
	s := &Server{
		cfg:         d.Config,
		tokens:      auth.NewTokenManager(d.Config.JWTSecret, d.Config.JWTTTL),
		songs:       store.NewSongStore(d.Repos),
		avatars:     d.Avatars,
		hub:         d.Hub,
		authLimiter: newIPLimiter(d.Config.LoginRatePerMinute),
	}

	// keep interfaces nil when the optional backends are absent
	var avatarStore store.AvatarStore
	if d.Avatars != nil {
		avatarStore = d.Avatars
	}
	var notifier store.PlayNotifier
	if d.Hub != nil {
		notifier = d.Hub
	}
	s.users = store.NewUserStore(d.Repos, avatarStore, d.Cache)
	s.playlists = store.NewPlaylistStore(d.Repos, d.Cache, notifier)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.CORSOrigin
		},
	}

	s.handler = s.cors(requestLogger(s.routes()))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	// 用户认证相关的API端点
	router.HandleFunc("/auth/register", s.rateLimited(s.RegisterHandler)).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", s.rateLimited(s.LoginHandler)).Methods(http.MethodPost)
	router.HandleFunc("/auth/loggedIn", s.LoggedInHandler).Methods(http.MethodGet)
	router.HandleFunc("/auth/logout", s.LogoutHandler).Methods(http.MethodGet)
	router.HandleFunc("/auth/user", s.Verify(s.UpdateUserHandler)).Methods(http.MethodPut)

	// 播放列表相关的API端点
	router.HandleFunc("/store/playlist", s.Verify(s.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/store/playlists", s.ListPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/store/playlistpairs", s.Verify(s.PlaylistPairsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/store/playlist/{id}", s.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/store/playlist/{id}", s.Verify(s.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/store/playlist/{id}", s.Verify(s.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/store/playlist/{id}/publish", s.Verify(s.PublishPlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/store/playlist/{id}/play", s.PlayPlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/store/playlist/{id}/copy", s.Verify(s.CopyPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/store/playlist/{id}/songs", s.Verify(s.AddSongToPlaylistHandler)).Methods(http.MethodPost)

	// 歌曲目录
	router.HandleFunc("/songs/create", s.Verify(s.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/songs", s.ListSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", s.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", s.Verify(s.UpdateSongHandler)).Methods(http.MethodPut)
	router.HandleFunc("/songs/{id}", s.Verify(s.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/songs/{id}/play", s.PlaySongHandler).Methods(http.MethodPost)

	router.HandleFunc("/avatars/{key}", s.AvatarHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/ws/playlist/{id}", s.LiveHandler).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return router
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.hub != nil {
		resp["liveSubscribers"] = s.hub.TotalClients()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Run serves HTTP on the configured port until SIGINT/SIGTERM, then drains
// connections for up to five seconds.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr), logger.String("corsOrigin", s.cfg.CORSOrigin))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
