package server

import (
	"net/http"
	"time"

	"playlister/core/auth"
	"playlister/core/store"
	"playlister/logger"
	"playlister/model"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// setSession issues a session token for user and stores it in the cookie.
func (s *Server) setSession(w http.ResponseWriter, user *model.User) error {
	token, err := s.tokens.Sign(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// RegisterHandler handles user registration requests
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req store.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.setSession(w, user); err != nil {
		logger.Error("[Register] 生成Token失败", logger.ErrorField(err))
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.Profile(),
	})
}

// LoginHandler handles user login requests
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			logger.Warn("[Login] 登录失败", logger.String("remote", clientIP(r)))
		}
		writeError(w, err)
		return
	}
	if err := s.setSession(w, user); err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] 登录成功", logger.String("userId", user.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.Profile(),
	})
}

// LoggedInHandler reports whether the caller holds a valid session.
func (s *Server) LoggedInHandler(w http.ResponseWriter, r *http.Request) {
	guest := map[string]interface{}{"loggedIn": false, "user": nil}

	userID := s.VerifyUser(r)
	if userID == "" {
		writeJSON(w, http.StatusOK, guest)
		return
	}

	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			// the account behind a still valid token is gone
			writeJSON(w, http.StatusOK, guest)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loggedIn": true,
		"user":     user.Profile(),
	})
}

// LogoutHandler clears the session cookie.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateUserHandler updates the caller's profile.
func (s *Server) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req store.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.Profile(),
	})
}
