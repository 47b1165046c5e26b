package store

import (
	"cmp"
	"slices"
	"strings"

	"playlister/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort directions accepted in sortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Playlist sort keys.
const (
	PlaylistSortListens        = "listens"
	PlaylistSortName           = "name"
	PlaylistSortOwnerName      = "ownerName"
	PlaylistSortCreatedDate    = "createdDate"
	PlaylistSortLastEditedDate = "lastEditedDate"
)

// Song sort keys.
const (
	SongSortListens       = "listens"
	SongSortPlaylistCount = "playlistCount"
	SongSortTitle         = "title"
	SongSortArtist        = "artist"
	SongSortYear          = "year"
	SongSortCreatedDate   = "createdDate"
)

// PlaylistFilter narrows a playlist candidate set. Empty fields match all.
type PlaylistFilter struct {
	Name       string // substring of the playlist name
	OwnerName  string // substring of the owner name
	SongTitle  string // substring of any embedded song title
	SongArtist string // substring of any embedded song artist
	SongYear   int    // exact year of any embedded song, 0 matches all
}

// SongFilter narrows the catalog. Empty fields match all.
type SongFilter struct {
	Title   string
	Artist  string
	AddedBy string // exact email
	Year    int
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FilterPlaylists returns the playlists matching every condition of f,
// keeping their relative order.
func FilterPlaylists(playlists []*model.Playlist, f PlaylistFilter) []*model.Playlist {
	out := make([]*model.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if f.Name != "" && !containsFold(p.Name, f.Name) {
			continue
		}
		if f.OwnerName != "" && !containsFold(p.OwnerName, f.OwnerName) {
			continue
		}
		if f.SongTitle != "" && !anySong(p.Songs, func(s model.EmbeddedSong) bool { return containsFold(s.Title, f.SongTitle) }) {
			continue
		}
		if f.SongArtist != "" && !anySong(p.Songs, func(s model.EmbeddedSong) bool { return containsFold(s.Artist, f.SongArtist) }) {
			continue
		}
		if f.SongYear != 0 && !anySong(p.Songs, func(s model.EmbeddedSong) bool { return s.Year == f.SongYear }) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func anySong(songs []model.EmbeddedSong, match func(model.EmbeddedSong) bool) bool {
	for _, s := range songs {
		if match(s) {
			return true
		}
	}
	return false
}

// FilterSongs returns the catalog songs matching every condition of f.
func FilterSongs(songs []*model.Song, f SongFilter) []*model.Song {
	out := make([]*model.Song, 0, len(songs))
	for _, s := range songs {
		if f.Title != "" && !containsFold(s.Title, f.Title) {
			continue
		}
		if f.Artist != "" && !containsFold(s.Artist, f.Artist) {
			continue
		}
		if f.AddedBy != "" && s.AddedBy != f.AddedBy {
			continue
		}
		if f.Year != 0 && s.Year != f.Year {
			continue
		}
		out = append(out, s)
	}
	return out
}

// resolveOrder validates order and falls back to def when it is empty.
func resolveOrder(order, def string) (bool, error) {
	switch strings.ToLower(order) {
	case "":
		return def == SortDesc, nil
	case SortAsc:
		return false, nil
	case SortDesc:
		return true, nil
	default:
		return false, validationError("Unknown sort order %q", order)
	}
}

// SortPlaylists orders playlists in place. An empty sortBy sorts by listens.
// Ties are broken by id so that flipping the order reverses the result exactly.
func SortPlaylists(playlists []*model.Playlist, sortBy, sortOrder string) error {
	if sortBy == "" {
		sortBy = PlaylistSortListens
	}

	// collators are not safe for concurrent use
	col := collate.New(language.Und)
	var compare func(a, b *model.Playlist) int
	defOrder := SortDesc
	switch sortBy {
	case PlaylistSortListens:
		compare = func(a, b *model.Playlist) int { return cmp.Compare(a.Listens, b.Listens) }
	case PlaylistSortName:
		compare = func(a, b *model.Playlist) int { return col.CompareString(a.Name, b.Name) }
		defOrder = SortAsc
	case PlaylistSortOwnerName:
		compare = func(a, b *model.Playlist) int { return col.CompareString(a.OwnerName, b.OwnerName) }
		defOrder = SortAsc
	case PlaylistSortCreatedDate:
		compare = func(a, b *model.Playlist) int { return a.CreatedDate.Compare(b.CreatedDate) }
	case PlaylistSortLastEditedDate:
		compare = func(a, b *model.Playlist) int { return a.LastEditedDate.Compare(b.LastEditedDate) }
	default:
		return validationError("Unknown sort key %q", sortBy)
	}

	desc, err := resolveOrder(sortOrder, defOrder)
	if err != nil {
		return err
	}

	slices.SortFunc(playlists, func(a, b *model.Playlist) int {
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
	return nil
}

// SortSongs orders catalog songs in place. An empty sortBy sorts by
// creation date, newest first.
func SortSongs(songs []*model.Song, sortBy, sortOrder string) error {
	if sortBy == "" {
		sortBy = SongSortCreatedDate
	}

	col := collate.New(language.Und)
	var compare func(a, b *model.Song) int
	defOrder := SortDesc
	switch sortBy {
	case SongSortListens:
		compare = func(a, b *model.Song) int { return cmp.Compare(a.Listens, b.Listens) }
	case SongSortPlaylistCount:
		compare = func(a, b *model.Song) int { return cmp.Compare(a.PlaylistCount, b.PlaylistCount) }
	case SongSortTitle:
		compare = func(a, b *model.Song) int { return col.CompareString(a.Title, b.Title) }
		defOrder = SortAsc
	case SongSortArtist:
		compare = func(a, b *model.Song) int { return col.CompareString(a.Artist, b.Artist) }
		defOrder = SortAsc
	case SongSortYear:
		compare = func(a, b *model.Song) int { return cmp.Compare(a.Year, b.Year) }
	case SongSortCreatedDate:
		compare = func(a, b *model.Song) int { return a.CreatedDate.Compare(b.CreatedDate) }
	default:
		return validationError("Unknown sort key %q", sortBy)
	}

	desc, err := resolveOrder(sortOrder, defOrder)
	if err != nil {
		return err
	}

	slices.SortFunc(songs, func(a, b *model.Song) int {
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
	return nil
}
