package store

import (
	"errors"
	"testing"
	"time"

	"playlister/model"
)

func samplePlaylists() []*model.Playlist {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Playlist{
		{ID: "1", Name: "road trip", OwnerName: "ann", Listens: 5, CreatedDate: base, LastEditedDate: base.Add(3 * time.Hour),
			Songs: []model.EmbeddedSong{{Title: "Highway Star", Artist: "Deep Purple", Year: 1972}}},
		{ID: "2", Name: "Workout", OwnerName: "bob", Listens: 9, CreatedDate: base.Add(time.Hour), LastEditedDate: base.Add(time.Hour),
			Songs: []model.EmbeddedSong{{Title: "Eye of the Tiger", Artist: "Survivor", Year: 1982}}},
		{ID: "3", Name: "chill", OwnerName: "Ann Marie", Listens: 5, CreatedDate: base.Add(2 * time.Hour), LastEditedDate: base.Add(2 * time.Hour)},
		{ID: "4", Name: "Beach", OwnerName: "carl", Listens: 0, CreatedDate: base.Add(3 * time.Hour), LastEditedDate: base,
			Songs: []model.EmbeddedSong{{Title: "Surfin' USA", Artist: "The Beach Boys", Year: 1963}}},
	}
}

func ids(ps []*model.Playlist) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterPlaylists(t *testing.T) {
	cases := []struct {
		name   string
		filter PlaylistFilter
		want   []string
	}{
		{"no filter", PlaylistFilter{}, []string{"1", "2", "3", "4"}},
		{"name is case insensitive", PlaylistFilter{Name: "WORK"}, []string{"2"}},
		{"owner substring", PlaylistFilter{OwnerName: "ann"}, []string{"1", "3"}},
		{"song title", PlaylistFilter{SongTitle: "tiger"}, []string{"2"}},
		{"song artist", PlaylistFilter{SongArtist: "beach"}, []string{"4"}},
		{"song year exact", PlaylistFilter{SongYear: 1972}, []string{"1"}},
		{"song year no match", PlaylistFilter{SongYear: 197}, []string{}},
		{"combined", PlaylistFilter{OwnerName: "ann", SongYear: 1972}, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterPlaylists(samplePlaylists(), tc.filter))
			if !equalStrings(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortPlaylists(t *testing.T) {
	cases := []struct {
		sortBy, order string
		want          []string
	}{
		{"", "", []string{"2", "3", "1", "4"}}, // listens desc, ties by id desc
		{PlaylistSortListens, SortAsc, []string{"4", "1", "3", "2"}},
		{PlaylistSortName, "", []string{"4", "3", "1", "2"}},
		{PlaylistSortName, SortDesc, []string{"2", "1", "3", "4"}},
		{PlaylistSortOwnerName, SortAsc, []string{"1", "3", "2", "4"}},
		{PlaylistSortCreatedDate, SortAsc, []string{"1", "2", "3", "4"}},
		{PlaylistSortCreatedDate, "", []string{"4", "3", "2", "1"}},
		{PlaylistSortLastEditedDate, SortDesc, []string{"1", "3", "2", "4"}},
	}
	for _, tc := range cases {
		t.Run(tc.sortBy+"/"+tc.order, func(t *testing.T) {
			ps := samplePlaylists()
			if err := SortPlaylists(ps, tc.sortBy, tc.order); err != nil {
				t.Fatalf("SortPlaylists: %v", err)
			}
			if got := ids(ps); !equalStrings(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortPlaylistsReversible(t *testing.T) {
	for _, key := range []string{PlaylistSortListens, PlaylistSortName, PlaylistSortOwnerName, PlaylistSortCreatedDate, PlaylistSortLastEditedDate} {
		asc := samplePlaylists()
		desc := samplePlaylists()
		if err := SortPlaylists(asc, key, SortAsc); err != nil {
			t.Fatal(err)
		}
		if err := SortPlaylists(desc, key, SortDesc); err != nil {
			t.Fatal(err)
		}
		a, d := ids(asc), ids(desc)
		for i := range a {
			if a[i] != d[len(d)-1-i] {
				t.Errorf("%s: desc %v is not the reverse of asc %v", key, d, a)
				break
			}
		}
	}
}

func TestSortRejectsUnknownKeys(t *testing.T) {
	if err := SortPlaylists(samplePlaylists(), "color", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown playlist key: got %v", err)
	}
	if err := SortPlaylists(samplePlaylists(), PlaylistSortName, "sideways"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown order: got %v", err)
	}
	if err := SortSongs(nil, "mood", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown song key: got %v", err)
	}
}

func TestFilterAndSortSongs(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	songs := []*model.Song{
		{ID: "a", Title: "Yesterday", Artist: "The Beatles", Year: 1965, AddedBy: "x@x.io", Listens: 3, CreatedDate: base},
		{ID: "b", Title: "Help!", Artist: "The Beatles", Year: 1965, AddedBy: "y@x.io", Listens: 7, CreatedDate: base.Add(time.Hour)},
		{ID: "c", Title: "Yellow", Artist: "Coldplay", Year: 2000, AddedBy: "x@x.io", PlaylistCount: 4, CreatedDate: base.Add(2 * time.Hour)},
	}

	got := FilterSongs(songs, SongFilter{Title: "YE"})
	if len(got) != 2 {
		t.Fatalf("title filter: got %d songs", len(got))
	}
	if got := FilterSongs(songs, SongFilter{Artist: "beatles", Year: 1965, AddedBy: "y@x.io"}); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("combined filter: %v", got)
	}

	sorted := append([]*model.Song{}, songs...)
	if err := SortSongs(sorted, "", ""); err != nil {
		t.Fatal(err)
	}
	if sorted[0].ID != "c" || sorted[2].ID != "a" {
		t.Errorf("default sort should be newest first, got %s..%s", sorted[0].ID, sorted[2].ID)
	}

	if err := SortSongs(sorted, SongSortTitle, ""); err != nil {
		t.Fatal(err)
	}
	if sorted[0].Title != "Help!" || sorted[2].Title != "Yesterday" {
		t.Errorf("title sort: %s, %s, %s", sorted[0].Title, sorted[1].Title, sorted[2].Title)
	}

	if err := SortSongs(sorted, SongSortListens, SortDesc); err != nil {
		t.Fatal(err)
	}
	if sorted[0].ID != "b" {
		t.Errorf("listens desc: first = %s", sorted[0].ID)
	}
}
