package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"playlister/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestMongo connects to the server named by PLAYLISTER_TEST_MONGO and
// returns a throwaway database, dropped when the test ends.
func newTestMongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("PLAYLISTER_TEST_MONGO")
	if uri == "" {
		t.Skip("PLAYLISTER_TEST_MONGO not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	database := client.Database("playlister_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	if err := EnsureIndexes(ctx, database); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return database
}

func TestMongoRepositories(t *testing.T) {
	ctx := context.Background()
	repos := NewMongoRepositories(newTestMongo(t))

	u := &model.User{UserName: "ada", Email: "ada@x.io", PasswordHash: "h"}
	if err := repos.Users.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repos.Users.CreateUser(ctx, &model.User{Email: "ada@x.io"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email: got %v", err)
	}

	s := &model.Song{Title: "T", Artist: "A", Year: 2000, YouTubeID: "y", AddedBy: u.Email}
	if err := repos.Songs.CreateSong(ctx, s); err != nil {
		t.Fatalf("CreateSong: %v", err)
	}
	if err := repos.Songs.CreateSong(ctx, &model.Song{Title: "T", Artist: "A", Year: 2000}); !errors.Is(err, ErrDuplicateSong) {
		t.Fatalf("duplicate song: got %v", err)
	}
	if n, ok, err := repos.Songs.IncrementListens(ctx, s.ID); err != nil || !ok || n != 1 {
		t.Fatalf("IncrementListens: %d %v %v", n, ok, err)
	}

	p := &model.Playlist{Name: "P", OwnerEmail: u.Email, OwnerName: u.UserName}
	if err := repos.Playlists.CreatePlaylist(ctx, p); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	played, err := repos.Playlists.RecordPlay(ctx, p.ID, "u1")
	if err != nil {
		t.Fatalf("RecordPlay: %v", err)
	}
	played, _ = repos.Playlists.RecordPlay(ctx, p.ID, "u1")
	if played.Listens != 2 || len(played.UniqueListeners) != 1 {
		t.Fatalf("after plays: %+v", played)
	}
	if !played.LastEditedDate.Equal(p.LastEditedDate) {
		t.Fatalf("play changed last edited date")
	}

	appended, err := repos.Playlists.AppendSong(ctx, p.ID, s.Embed())
	if err != nil || len(appended.Songs) != 1 {
		t.Fatalf("AppendSong: %v %v", appended, err)
	}

	visible, err := repos.Playlists.FindPlaylists(ctx, PlaylistScope{VisibleTo: "other@x.io"})
	if err != nil || len(visible) != 0 {
		t.Fatalf("unpublished playlist visible to stranger: %v %v", visible, err)
	}
}
