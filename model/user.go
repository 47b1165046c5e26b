package model

import "time"

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	UserName     string    `json:"userName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	AvatarImage  string    `json:"avatarImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of a user returned by the auth endpoints.
type Profile struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	AvatarImage string `json:"avatarImage"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	return Profile{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserName:    u.UserName,
		Email:       u.Email,
		AvatarImage: u.AvatarImage,
	}
}
