package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"playlister/core/auth"
	"playlister/logger"
	"playlister/model"
	"playlister/repository"

	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	// maxAvatarBytes bounds the decoded size of an inline avatar.
	maxAvatarBytes = 1536 * 1024
	// AvatarPathPrefix is how stored avatars are referenced from user records.
	AvatarPathPrefix = "/avatars/"
)

var dataURLPattern = regexp.MustCompile(`^data:image/(png|jpg|jpeg|gif|webp);base64,`)

// AvatarStore persists uploaded avatar images.
type AvatarStore interface {
	PutAvatar(ctx context.Context, key, contentType string, data []byte) error
}

// UserStore 用户业务逻辑
type UserStore struct {
	users     repository.UserRepository
	songs     repository.SongRepository
	playlists repository.PlaylistRepository
	avatars   AvatarStore
	cache     PlaylistCache
}

// NewUserStore creates a UserStore. avatars may be nil, in which case
// inline avatars are kept on the user record as data URLs. cache is the
// playlist cache to clear when ownership moves; it may be nil.
func NewUserStore(repos repository.Repositories, avatars AvatarStore, cache PlaylistCache) *UserStore {
	return &UserStore{
		users:     repos.Users,
		songs:     repos.Songs,
		playlists: repos.Playlists,
		avatars:   avatars,
		cache:     cache,
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	UserName       string `json:"userName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PasswordVerify string `json:"passwordVerify"`
	AvatarImage    string `json:"avatarImage"`
}

// ProfileInput is the profile update form. A nil AvatarImage keeps the
// current avatar; an empty one removes it.
type ProfileInput struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	UserName       string  `json:"userName"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	PasswordVerify string  `json:"passwordVerify"`
	AvatarImage    *string `json:"avatarImage"`
}

func checkPassword(password, verify string) error {
	if len(password) < minPasswordLength {
		return validationError("Please enter a password of at least %d characters.", minPasswordLength)
	}
	if password != verify {
		return validationError("Please enter the same password twice.")
	}
	return nil
}

// ValidateAvatar checks an avatar value. Empty is valid.
func ValidateAvatar(avatar string) error {
	switch {
	case avatar == "":
		return nil
	case strings.HasPrefix(avatar, "data:"):
		if !dataURLPattern.MatchString(avatar) {
			return validationError("Avatar must be a PNG, JPG, GIF or WEBP image.")
		}
		payload := avatar[strings.Index(avatar, ",")+1:]
		if len(payload)*3/4 > maxAvatarBytes {
			return validationError("Avatar image must be smaller than 1.5MB.")
		}
		return nil
	case strings.HasPrefix(avatar, "http://"), strings.HasPrefix(avatar, "https://"), strings.HasPrefix(avatar, AvatarPathPrefix):
		return nil
	default:
		return validationError("Invalid avatar image format.")
	}
}

// storeAvatar uploads an inline avatar when object storage is configured and
// returns the value to keep on the user record.
func (s *UserStore) storeAvatar(ctx context.Context, userID, avatar string) (string, error) {
	if s.avatars == nil || !strings.HasPrefix(avatar, "data:") {
		return avatar, nil
	}

	m := dataURLPattern.FindStringSubmatch(avatar)
	ext := m[1]
	if ext == "jpg" {
		ext = "jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(avatar[len(m[0]):])
	if err != nil {
		return "", validationError("Avatar image is not valid base64.")
	}

	key := fmt.Sprintf("%s-%s.%s", userID, uuid.NewString(), ext)
	if err := s.avatars.PutAvatar(ctx, key, "image/"+ext, data); err != nil {
		return "", internalError("upload avatar", err)
	}
	logger.Info("Avatar uploaded", logger.String("userId", userID), logger.Int("bytes", len(data)))
	return AvatarPathPrefix + key, nil
}

// Register creates an account.
func (s *UserStore) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	if in.UserName == "" || in.Email == "" || in.Password == "" || in.PasswordVerify == "" {
		return nil, validationError("Please enter all required fields.")
	}
	if err := checkPassword(in.Password, in.PasswordVerify); err != nil {
		return nil, err
	}
	if err := ValidateAvatar(in.AvatarImage); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, internalError("register", err)
	}
	if existing != nil {
		return nil, conflictError("An account with this email address already exists.")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if user.AvatarImage, err = s.storeAvatar(ctx, user.ID, in.AvatarImage); err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, conflictError("An account with this email address already exists.")
		}
		return nil, internalError("register", err)
	}
	logger.Info("User registered", logger.String("userId", user.ID))
	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *UserStore) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("Please enter all required fields.")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, internalError("login", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, newError(ErrUnauthorized, "Wrong email or password provided.")
	}
	return user, nil
}

// Get returns the user with id, or NotFound.
func (s *UserStore) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, internalError("get user", err)
	}
	if user == nil {
		return nil, notFoundError("User not found.")
	}
	return user, nil
}

// UpdateProfile applies in to the caller's account.
func (s *UserStore) UpdateProfile(ctx context.Context, callerID string, in ProfileInput) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, internalError("update profile", err)
	}
	if user == nil {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}

	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	if in.UserName == "" || in.Email == "" {
		return nil, validationError("User name and email are required.")
	}

	if in.Password != "" || in.PasswordVerify != "" {
		if err := checkPassword(in.Password, in.PasswordVerify); err != nil {
			return nil, err
		}
		if user.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return nil, internalError("hash password", err)
		}
	}

	if in.Email != user.Email {
		other, err := s.users.GetUserByEmail(ctx, in.Email)
		if err != nil {
			return nil, internalError("update profile", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, conflictError("An account with this email address already exists.")
		}
	}

	if in.AvatarImage != nil {
		if err := ValidateAvatar(*in.AvatarImage); err != nil {
			return nil, err
		}
		if user.AvatarImage, err = s.storeAvatar(ctx, user.ID, *in.AvatarImage); err != nil {
			return nil, err
		}
	}

	oldEmail, oldName := user.Email, user.UserName
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.UserName = in.UserName
	user.Email = in.Email

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, conflictError("An account with this email address already exists.")
		}
		return nil, internalError("update profile", err)
	}

	// playlists and catalog songs reference their owner by email and name
	if oldEmail != user.Email || oldName != user.UserName {
		if err := s.playlists.ReassignOwner(ctx, oldEmail, user.Email, user.UserName); err != nil {
			return nil, internalError("reassign playlists", err)
		}
		s.invalidateOwned(ctx, user.Email)
		if err := s.songs.ReassignAdder(ctx, oldEmail, user.Email, user.UserName); err != nil {
			return nil, internalError("reassign songs", err)
		}
	}
	return user, nil
}

// invalidateOwned drops the cached copies of every playlist owned by email.
func (s *UserStore) invalidateOwned(ctx context.Context, email string) {
	if s.cache == nil {
		return
	}
	owned, err := s.playlists.FindPlaylists(ctx, repository.PlaylistScope{OwnerEmail: email})
	if err != nil {
		logger.Warn("Playlist cache invalidation failed", logger.String("owner", email), logger.ErrorField(err))
		return
	}
	for _, p := range owned {
		if err := s.cache.Invalidate(ctx, p.ID); err != nil {
			logger.Warn("Playlist cache invalidation failed", logger.String("playlistId", p.ID), logger.ErrorField(err))
		}
	}
}

// caller resolves an authenticated caller id to its account.
func caller(ctx context.Context, users repository.UserRepository, callerID string) (*model.User, error) {
	if callerID == "" {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}
	user, err := users.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, internalError("resolve caller", err)
	}
	if user == nil {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}
	return user, nil
}

// callerEmail is like caller but treats guests and unknown ids as anonymous.
func callerEmail(ctx context.Context, users repository.UserRepository, callerID string) (string, error) {
	if callerID == "" {
		return "", nil
	}
	user, err := users.GetUserByID(ctx, callerID)
	if err != nil {
		return "", internalError("resolve caller", err)
	}
	if user == nil {
		return "", nil
	}
	return user.Email, nil
}
