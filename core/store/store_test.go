package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"playlister/db"
	"playlister/model"
	"playlister/repository"

	"gorm.io/driver/sqlite"
)

type memCache struct {
	mu          sync.Mutex
	items       map[string]model.Playlist
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]model.Playlist)}
}

func (c *memCache) Get(_ context.Context, id string) (*model.Playlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCache) Set(_ context.Context, p *model.Playlist) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = *p
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	plays []*model.Playlist
}

func (n *recordingNotifier) NotifyPlay(p *model.Playlist) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plays = append(n.plays, p)
}

type memAvatars struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memAvatars) PutAvatar(_ context.Context, key, contentType string, data []byte) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

type testEnv struct {
	users     *UserStore
	songs     *SongStore
	playlists *PlaylistStore
	cache     *memCache
	notifier  *recordingNotifier
	repos     repository.Repositories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenGorm(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), true, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.CloseGormDB(gdb) })
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.NewGormRepositories(gdb)
	env := &testEnv{cache: newMemCache(), notifier: &recordingNotifier{}, repos: repos}
	env.users = NewUserStore(repos, nil, env.cache)
	env.songs = NewSongStore(repos)
	env.playlists = NewPlaylistStore(repos, env.cache, env.notifier)
	return env
}

func (e *testEnv) register(t *testing.T, userName, email string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		UserName:       userName,
		Email:          email,
		Password:       "password123",
		PasswordVerify: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "taken", "taken@x.com")

	valid := RegisterInput{UserName: "u", Email: "u@x.com", Password: "password123", PasswordVerify: "password123"}
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		kind   error
	}{
		{"missing user name", func(in *RegisterInput) { in.UserName = "  " }, ErrValidation},
		{"missing password verify", func(in *RegisterInput) { in.PasswordVerify = "" }, ErrValidation},
		{"short password", func(in *RegisterInput) { in.Password, in.PasswordVerify = "short", "short" }, ErrValidation},
		{"mismatched passwords", func(in *RegisterInput) { in.PasswordVerify = "password124" }, ErrValidation},
		{"bad avatar type", func(in *RegisterInput) { in.AvatarImage = "data:image/bmp;base64,AAAA" }, ErrValidation},
		{"oversized avatar", func(in *RegisterInput) {
			in.AvatarImage = "data:image/png;base64," + strings.Repeat("A", 2*1024*1024+8)
		}, ErrValidation},
		{"duplicate email", func(in *RegisterInput) { in.Email = "taken@x.com" }, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			if _, err := env.users.Register(ctx, in); !errors.Is(err, tc.kind) {
				t.Errorf("got %v, want %v", err, tc.kind)
			}
		})
	}

	u, err := env.users.Register(ctx, valid)
	if err != nil {
		t.Fatalf("valid registration: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == valid.Password {
		t.Error("password must be stored hashed")
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "ann", "ann@x.com")

	if _, err := env.users.Login(ctx, "ann@x.com", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err := env.users.Login(ctx, "ann@x.com", "wrong-password")
	if !errors.Is(err, ErrUnauthorized) || Message(err) != "Wrong email or password provided." {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := env.users.Login(ctx, "nobody@x.com", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unknown email: %v", err)
	}
	if _, err := env.users.Login(ctx, "", "password123"); !errors.Is(err, ErrValidation) {
		t.Errorf("missing email: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann", "ann@x.com")
	env.register(t, "bob", "bob@x.com")

	avatar := "https://cdn.example.com/ann.png"
	if _, err := env.users.UpdateProfile(ctx, ann.ID, ProfileInput{UserName: "ann", Email: "ann@x.com", AvatarImage: &avatar}); err != nil {
		t.Fatalf("set avatar: %v", err)
	}

	pl, err := env.playlists.Create(ctx, ann.ID, "Mine", nil)
	if err != nil {
		t.Fatal(err)
	}
	// 先读一次让缓存里保留旧的 owner
	if _, err := env.playlists.Get(ctx, ann.ID, pl.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.cache.items[pl.ID]; !ok {
		t.Fatal("playlist should be cached after Get")
	}

	if _, err := env.users.UpdateProfile(ctx, ann.ID, ProfileInput{UserName: "ann", Email: "bob@x.com"}); !errors.Is(err, ErrConflict) {
		t.Errorf("email collision: %v", err)
	}
	if _, err := env.users.UpdateProfile(ctx, ann.ID, ProfileInput{UserName: "", Email: "ann@x.com"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing user name: %v", err)
	}
	if _, err := env.users.UpdateProfile(ctx, ann.ID, ProfileInput{UserName: "ann", Email: "ann@x.com", Password: "short", PasswordVerify: "short"}); !errors.Is(err, ErrValidation) {
		t.Errorf("short password: %v", err)
	}

	updated, err := env.users.UpdateProfile(ctx, ann.ID, ProfileInput{UserName: "annie", Email: "annie@x.com", Password: "newpassword", PasswordVerify: "newpassword"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.AvatarImage != avatar {
		t.Errorf("omitted avatar should be kept, got %q", updated.AvatarImage)
	}
	if _, err := env.users.Login(ctx, "annie@x.com", "newpassword"); err != nil {
		t.Errorf("login with new credentials: %v", err)
	}

	got, err := env.playlists.Get(ctx, ann.ID, pl.ID)
	if err != nil {
		t.Fatalf("playlist after email change: %v", err)
	}
	if got.OwnerEmail != "annie@x.com" || got.OwnerName != "annie" || !got.IsOwner {
		t.Errorf("playlist ownership not moved: %+v", got)
	}

	name := "Renamed"
	if _, err := env.playlists.Update(ctx, ann.ID, pl.ID, repository.PlaylistPatch{Name: &name}); err != nil {
		t.Errorf("owner update after email change: %v", err)
	}
}

func TestAvatarUpload(t *testing.T) {
	env := newTestEnv(t)
	avatars := &memAvatars{objects: map[string][]byte{}, types: map[string]string{}}
	users := NewUserStore(env.repos, avatars, env.cache)

	u, err := users.Register(context.Background(), RegisterInput{
		UserName:       "pic",
		Email:          "pic@x.com",
		Password:       "password123",
		PasswordVerify: "password123",
		AvatarImage:    "data:image/png;base64,aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !strings.HasPrefix(u.AvatarImage, AvatarPathPrefix+u.ID+"-") || !strings.HasSuffix(u.AvatarImage, ".png") {
		t.Fatalf("avatar path = %q", u.AvatarImage)
	}
	key := strings.TrimPrefix(u.AvatarImage, AvatarPathPrefix)
	if string(avatars.objects[key]) != "hello" || avatars.types[key] != "image/png" {
		t.Errorf("stored object %q (%s)", avatars.objects[key], avatars.types[key])
	}
}

func TestSongCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann", "ann@x.com")
	bob := env.register(t, "bob", "bob@x.com")

	in := SongInput{Title: "S", Artist: "A", Year: 1999, YouTubeID: "id1"}
	song, err := env.songs.Create(ctx, ann.ID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if song.Listens != 0 || song.PlaylistCount != 0 || song.AddedBy != "ann@x.com" {
		t.Errorf("new song: %+v", song)
	}
	if _, err := env.songs.Create(ctx, bob.ID, in); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate song: %v", err)
	}
	if _, err := env.songs.Create(ctx, "", in); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("guest create: %v", err)
	}
	if _, err := env.songs.Create(ctx, ann.ID, SongInput{Title: "T", Artist: "A"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing fields: %v", err)
	}

	other, err := env.songs.Create(ctx, bob.ID, SongInput{Title: "Other", Artist: "A", Year: 2001, YouTubeID: "id2"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("search", func(t *testing.T) {
		found, err := env.songs.List(ctx, ann.ID, SongQuery{SongFilter: SongFilter{Title: "s"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 1 || found[0].ID != song.ID || !found[0].IsOwnedByCurrentUser {
			t.Fatalf("partial title search: %+v", found)
		}

		all, err := env.songs.List(ctx, "", SongQuery{})
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 {
			t.Fatalf("guest listing: %d songs", len(all))
		}
		for _, s := range all {
			if s.IsOwnedByCurrentUser {
				t.Errorf("guest sees %s as owned", s.ID)
			}
		}
	})

	t.Run("ownership", func(t *testing.T) {
		if _, err := env.songs.Update(ctx, bob.ID, song.ID, SongInput{Title: "Stolen"}); !errors.Is(err, ErrForbidden) {
			t.Errorf("non-owner update: %v", err)
		}
		if err := env.songs.Delete(ctx, bob.ID, song.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("non-owner delete: %v", err)
		}
		if err := env.songs.Delete(ctx, bob.ID, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("delete missing: %v", err)
		}
	})

	t.Run("update uniqueness", func(t *testing.T) {
		if _, err := env.songs.Update(ctx, bob.ID, other.ID, SongInput{Title: "S", Year: 1999}); !errors.Is(err, ErrConflict) {
			t.Errorf("update into existing identity: %v", err)
		}
		updated, err := env.songs.Update(ctx, ann.ID, song.ID, SongInput{YouTubeID: "id9"})
		if err != nil {
			t.Fatalf("update own song: %v", err)
		}
		if updated.Title != "S" || updated.YouTubeID != "id9" {
			t.Errorf("partial update: %+v", updated)
		}
	})

	t.Run("play", func(t *testing.T) {
		for want := int64(1); want <= 2; want++ {
			listens, err := env.songs.RecordPlay(ctx, song.ID)
			if err != nil || listens != want {
				t.Fatalf("RecordPlay = %d, %v; want %d", listens, err, want)
			}
		}
		if _, err := env.songs.RecordPlay(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("play missing: %v", err)
		}
	})
}

func TestPlaylistScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	b := env.register(t, "b", "b@x.com")

	p, err := env.playlists.Create(ctx, a.ID, "Road Trip", []model.EmbeddedSong{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Published || p.Listens != 0 || len(p.Songs) != 0 {
		t.Fatalf("new playlist: %+v", p)
	}

	songs := []model.EmbeddedSong{{Title: "X", Artist: "Y", Year: 2020, YouTubeID: "abc"}}
	p, err = env.playlists.Update(ctx, a.ID, p.ID, repository.PlaylistPatch{Songs: &songs})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(p.Songs) != 1 {
		t.Fatalf("songs after update: %d", len(p.Songs))
	}

	p, err = env.playlists.Play(ctx, a.ID, p.ID)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if p.Listens != 1 {
		t.Fatalf("listens = %d", p.Listens)
	}
	if len(env.notifier.plays) != 1 {
		t.Errorf("notifier saw %d plays", len(env.notifier.plays))
	}

	if err := env.playlists.Delete(ctx, b.ID, p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete by other user: %v", err)
	}
	if err := env.playlists.Delete(ctx, a.ID, p.ID); err != nil {
		t.Fatalf("delete by owner: %v", err)
	}
	if _, err := env.playlists.Get(ctx, a.ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestCreateDefaultsName(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a", "a@x.com")
	p, err := env.playlists.Create(context.Background(), a.ID, "   ", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != DefaultPlaylistName || p.Songs == nil {
		t.Errorf("defaults: %+v", p)
	}
	if _, err := env.playlists.Create(context.Background(), "", "x", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("guest create: %v", err)
	}
}

func TestPlaylistVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	b := env.register(t, "b", "b@x.com")
	p, _ := env.playlists.Create(ctx, a.ID, "Draft", nil)

	if _, err := env.playlists.Get(ctx, "", p.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("guest on draft: %v", err)
	}
	if _, err := env.playlists.Get(ctx, b.ID, p.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger on draft: %v", err)
	}
	if _, err := env.playlists.Copy(ctx, b.ID, p.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("copy unpublished foreign playlist: %v", err)
	}
	if _, err := env.playlists.Publish(ctx, b.ID, p.ID, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("publish by stranger: %v", err)
	}

	for i := 0; i < 2; i++ {
		pub, err := env.playlists.Publish(ctx, a.ID, p.ID, true)
		if err != nil || !pub.Published {
			t.Fatalf("publish #%d: %+v %v", i, pub, err)
		}
	}

	guestView, err := env.playlists.Get(ctx, "", p.ID)
	if err != nil {
		t.Fatalf("guest on published: %v", err)
	}
	if guestView.IsOwner {
		t.Error("guest marked as owner")
	}
}

func TestPlayTracksUniqueListeners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	b := env.register(t, "b", "b@x.com")
	p, _ := env.playlists.Create(ctx, a.ID, "Hits", nil)
	env.playlists.Publish(ctx, a.ID, p.ID, true)

	first, err := env.playlists.Play(ctx, b.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.playlists.Play(ctx, b.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	guest, err := env.playlists.Play(ctx, "", p.ID)
	if err != nil {
		t.Fatal(err)
	}

	if first.UniqueListenerCount != 1 || second.UniqueListenerCount != 1 || guest.UniqueListenerCount != 1 {
		t.Errorf("unique listeners: %d %d %d", first.UniqueListenerCount, second.UniqueListenerCount, guest.UniqueListenerCount)
	}
	if guest.Listens != 3 {
		t.Errorf("listens = %d", guest.Listens)
	}
	if second.UniqueListeners != nil {
		t.Errorf("non-owner sees listener ids: %v", second.UniqueListeners)
	}

	own, err := env.playlists.Get(ctx, a.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(own.UniqueListeners) != 1 || own.UniqueListeners[0] != b.ID {
		t.Errorf("owner listener ids: %v", own.UniqueListeners)
	}
	if !own.LastEditedDate.Equal(first.LastEditedDate) {
		t.Error("plays must not change the last edited date")
	}
	if _, err := env.playlists.Play(ctx, "", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("play missing: %v", err)
	}
}

func TestCopyPlaylist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	b := env.register(t, "b", "b@x.com")

	songs := []model.EmbeddedSong{{Title: "X", Artist: "Y", Year: 2020, YouTubeID: "abc"}}
	src, _ := env.playlists.Create(ctx, a.ID, "Mix", songs)
	env.playlists.Publish(ctx, a.ID, src.ID, true)
	env.playlists.Play(ctx, a.ID, src.ID)

	dup, err := env.playlists.Copy(ctx, b.ID, src.ID)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if dup.ID == src.ID || dup.Name != "Mix (Copy)" || dup.OwnerEmail != "b@x.com" {
		t.Errorf("copy: %+v", dup)
	}
	if dup.Published || dup.Listens != 0 || dup.UniqueListenerCount != 0 {
		t.Errorf("copy must start as a fresh draft: %+v", dup)
	}
	if len(dup.Songs) != 1 || dup.Songs[0] != songs[0] {
		t.Errorf("copied songs: %+v", dup.Songs)
	}

	renamed := []model.EmbeddedSong{{Title: "Changed", Artist: "Y", Year: 2020, YouTubeID: "abc"}}
	if _, err := env.playlists.Update(ctx, b.ID, dup.ID, repository.PlaylistPatch{Songs: &renamed}); err != nil {
		t.Fatal(err)
	}
	orig, _ := env.playlists.Get(ctx, a.ID, src.ID)
	if orig.Songs[0].Title != "X" {
		t.Error("editing the copy changed the source")
	}
}

func TestListPlaylistViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice", "a@x.com")
	b := env.register(t, "bob", "b@x.com")

	aDraft, _ := env.playlists.Create(ctx, a.ID, "a draft", nil)
	aPub, _ := env.playlists.Create(ctx, a.ID, "a published", nil)
	env.playlists.Publish(ctx, a.ID, aPub.ID, true)
	bPub, _ := env.playlists.Create(ctx, b.ID, "b published", nil)
	env.playlists.Publish(ctx, b.ID, bPub.ID, true)
	env.playlists.Create(ctx, b.ID, "b draft", nil)

	names := func(views []model.PlaylistView) []string {
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.Name
		}
		return out
	}

	cases := []struct {
		name   string
		caller string
		query  PlaylistQuery
		want   []string
	}{
		{"home", a.ID, PlaylistQuery{View: ViewHome, SortBy: PlaylistSortName, SortOrder: SortAsc}, []string{"a draft", "a published"}},
		{"default is own", a.ID, PlaylistQuery{SortBy: PlaylistSortName}, []string{"a draft", "a published"}},
		{"all", a.ID, PlaylistQuery{View: ViewAll, SortBy: PlaylistSortName}, []string{"a published", "b published"}},
		{"guest", "", PlaylistQuery{View: ViewHome, SortBy: PlaylistSortName}, []string{"a published", "b published"}},
		{"user view keeps own drafts", a.ID, PlaylistQuery{View: ViewUser, PlaylistFilter: PlaylistFilter{OwnerName: "ALI"}, SortBy: PlaylistSortName}, []string{"a draft", "a published"}},
		{"user view without owner is own", a.ID, PlaylistQuery{View: ViewUser, SortBy: PlaylistSortName}, []string{"a draft", "a published"}},
		{"user view hides foreign drafts", a.ID, PlaylistQuery{View: ViewUser, PlaylistFilter: PlaylistFilter{OwnerName: "bob"}, SortBy: PlaylistSortName}, []string{"b published"}},
		{"name desc", a.ID, PlaylistQuery{View: ViewHome, SortBy: PlaylistSortName, SortOrder: SortDesc}, []string{"a published", "a draft"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views, err := env.playlists.List(ctx, tc.caller, tc.query)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(views); !equalStrings(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	pairs, err := env.playlists.Pairs(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0].ID != aDraft.ID {
		t.Errorf("pairs: %+v", pairs)
	}
	if _, err := env.playlists.Pairs(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("guest pairs: %v", err)
	}
}

func TestAddCatalogSong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	b := env.register(t, "b", "b@x.com")

	song, _ := env.songs.Create(ctx, b.ID, SongInput{Title: "T", Artist: "A", Year: 2010, YouTubeID: "yt"})
	p, _ := env.playlists.Create(ctx, a.ID, "P", nil)

	for i := 1; i <= 2; i++ {
		view, err := env.playlists.AddCatalogSong(ctx, a.ID, p.ID, song.ID)
		if err != nil {
			t.Fatalf("AddCatalogSong #%d: %v", i, err)
		}
		if len(view.Songs) != i {
			t.Fatalf("songs after %d adds: %d", i, len(view.Songs))
		}
	}
	got, _ := env.songs.Get(ctx, song.ID)
	if got.PlaylistCount != 2 {
		t.Errorf("playlistCount = %d", got.PlaylistCount)
	}

	if _, err := env.playlists.AddCatalogSong(ctx, b.ID, p.ID, song.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("add to foreign playlist: %v", err)
	}
	if _, err := env.playlists.AddCatalogSong(ctx, a.ID, p.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("add missing song: %v", err)
	}

	if _, err := env.songs.Update(ctx, b.ID, song.ID, SongInput{Title: "Renamed"}); err != nil {
		t.Fatal(err)
	}
	view, _ := env.playlists.Get(ctx, a.ID, p.ID)
	if view.Songs[0].Title != "T" {
		t.Error("catalog edit propagated into a playlist")
	}
}

func TestWritesInvalidateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a", "a@x.com")
	p, _ := env.playlists.Create(ctx, a.ID, "Cached", nil)

	if _, err := env.playlists.Get(ctx, a.ID, p.ID); err != nil {
		t.Fatal(err)
	}
	if cached, _ := env.cache.Get(ctx, p.ID); cached == nil {
		t.Fatal("read did not populate the cache")
	}

	name := "Fresh"
	if _, err := env.playlists.Update(ctx, a.ID, p.ID, repository.PlaylistPatch{Name: &name}); err != nil {
		t.Fatal(err)
	}
	got, err := env.playlists.Get(ctx, a.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Fresh" {
		t.Errorf("stale read after update: %q", got.Name)
	}
	if len(env.cache.invalidated) == 0 {
		t.Error("update did not invalidate the cache")
	}
}
