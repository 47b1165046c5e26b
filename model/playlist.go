package model

import "time"

// EmbeddedSong is a denormalized copy of catalog song fields kept inside a
// playlist. Editing the catalog entry never changes it.
type EmbeddedSong struct {
	Title     string `json:"title" bson:"title"`
	Artist    string `json:"artist" bson:"artist"`
	Year      int    `json:"year" bson:"year"`
	YouTubeID string `json:"youTubeId" bson:"youTubeId"`
}

// Playlist is an ordered list of embedded songs owned by one user.
type Playlist struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	OwnerEmail      string         `json:"ownerEmail"`
	OwnerName       string         `json:"ownerName"`
	Songs           []EmbeddedSong `json:"songs"`
	Published       bool           `json:"published"`
	Listens         int64          `json:"listens"`
	UniqueListeners []string       `json:"uniqueListeners"`
	CreatedDate     time.Time      `json:"createdDate"`
	LastEditedDate  time.Time      `json:"lastEditedDate"`
}

// PlaylistView is a playlist shaped for one caller. UniqueListeners is only
// populated for the owner.
type PlaylistView struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	OwnerEmail          string         `json:"ownerEmail"`
	OwnerName           string         `json:"ownerName"`
	Songs               []EmbeddedSong `json:"songs"`
	Published           bool           `json:"published"`
	Listens             int64          `json:"listens"`
	UniqueListenerCount int            `json:"uniqueListenerCount"`
	UniqueListeners     []string       `json:"uniqueListeners,omitempty"`
	IsOwner             bool           `json:"isOwner"`
	CreatedDate         time.Time      `json:"createdDate"`
	LastEditedDate      time.Time      `json:"lastEditedDate"`
}

// ViewFor shapes p for the caller identified by email ("" for guests).
func (p *Playlist) ViewFor(callerEmail string) PlaylistView {
	songs := p.Songs
	if songs == nil {
		songs = []EmbeddedSong{}
	}
	v := PlaylistView{
		ID:                  p.ID,
		Name:                p.Name,
		OwnerEmail:          p.OwnerEmail,
		OwnerName:           p.OwnerName,
		Songs:               songs,
		Published:           p.Published,
		Listens:             p.Listens,
		UniqueListenerCount: len(p.UniqueListeners),
		IsOwner:             callerEmail != "" && callerEmail == p.OwnerEmail,
		CreatedDate:         p.CreatedDate,
		LastEditedDate:      p.LastEditedDate,
	}
	if v.IsOwner {
		v.UniqueListeners = append([]string{}, p.UniqueListeners...)
	}
	return v
}

// IDNamePair is a compact playlist reference used by the sidebar listing.
type IDNamePair struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}
