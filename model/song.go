package model

import "time"

// Song is an entry of the global catalog. (Title, Artist, Year) is unique.
type Song struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	Year          int       `json:"year"`
	YouTubeID     string    `json:"youTubeId"`
	AddedBy       string    `json:"addedBy"` // email of the user who added it
	AddedByName   string    `json:"addedByName"`
	Listens       int64     `json:"listens"`
	PlaylistCount int64     `json:"playlistCount"`
	CreatedDate   time.Time `json:"createdDate"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Embed returns a value copy of s suitable for storing inside a playlist.
func (s *Song) Embed() EmbeddedSong {
	return EmbeddedSong{
		Title:     s.Title,
		Artist:    s.Artist,
		Year:      s.Year,
		YouTubeID: s.YouTubeID,
	}
}

// CatalogSong is a song as returned to a caller of the catalog listing.
type CatalogSong struct {
	*Song
	IsOwnedByCurrentUser bool `json:"isOwnedByCurrentUser"`
}
