package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playlister/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the MongoDB backend.
const (
	usersCollection     = "users"
	songsCollection     = "songs"
	playlistsCollection = "playlists"
)

// mongoNow matches the millisecond precision BSON dates are stored with.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type userDoc struct {
	ID           string    `bson:"_id"`
	FirstName    string    `bson:"firstName"`
	LastName     string    `bson:"lastName"`
	UserName     string    `bson:"userName"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	AvatarImage  string    `bson:"avatarImage,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		UserName:     d.UserName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		AvatarImage:  d.AvatarImage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type songDoc struct {
	ID            string    `bson:"_id"`
	Title         string    `bson:"title"`
	Artist        string    `bson:"artist"`
	Year          int       `bson:"year"`
	YouTubeID     string    `bson:"youTubeId"`
	AddedBy       string    `bson:"addedBy"`
	AddedByName   string    `bson:"addedByName"`
	Listens       int64     `bson:"listens"`
	PlaylistCount int64     `bson:"playlistCount"`
	CreatedDate   time.Time `bson:"createdDate"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (d *songDoc) toModel() *model.Song {
	return &model.Song{
		ID:            d.ID,
		Title:         d.Title,
		Artist:        d.Artist,
		Year:          d.Year,
		YouTubeID:     d.YouTubeID,
		AddedBy:       d.AddedBy,
		AddedByName:   d.AddedByName,
		Listens:       d.Listens,
		PlaylistCount: d.PlaylistCount,
		CreatedDate:   d.CreatedDate,
		UpdatedAt:     d.UpdatedAt,
	}
}

type playlistDoc struct {
	ID              string               `bson:"_id"`
	Name            string               `bson:"name"`
	OwnerEmail      string               `bson:"ownerEmail"`
	OwnerName       string               `bson:"ownerName"`
	Songs           []model.EmbeddedSong `bson:"songs"`
	Published       bool                 `bson:"published"`
	Listens         int64                `bson:"listens"`
	UniqueListeners []string             `bson:"uniqueListeners"`
	CreatedDate     time.Time            `bson:"createdDate"`
	LastEditedDate  time.Time            `bson:"lastEditedDate"`
}

func (d *playlistDoc) toModel() *model.Playlist {
	songs := d.Songs
	if songs == nil {
		songs = []model.EmbeddedSong{}
	}
	listeners := d.UniqueListeners
	if listeners == nil {
		listeners = []string{}
	}
	return &model.Playlist{
		ID:              d.ID,
		Name:            d.Name,
		OwnerEmail:      d.OwnerEmail,
		OwnerName:       d.OwnerName,
		Songs:           songs,
		Published:       d.Published,
		Listens:         d.Listens,
		UniqueListeners: listeners,
		CreatedDate:     d.CreatedDate,
		LastEditedDate:  d.LastEditedDate,
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		songsCollection: {
			{
				Keys:    bson.D{{Key: "title", Value: 1}, {Key: "artist", Value: 1}, {Key: "year", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_song_identity"),
			},
			{Keys: bson.D{{Key: "addedBy", Value: 1}}},
		},
		playlistsCollection: {
			{Keys: bson.D{{Key: "ownerEmail", Value: 1}}},
			{Keys: bson.D{{Key: "published", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// NewMongoRepositories wires the MongoDB implementations of every repository.
func NewMongoRepositories(database *mongo.Database) Repositories {
	return Repositories{
		Users:     &mongoUserRepository{coll: database.Collection(usersCollection)},
		Songs:     &mongoSongRepository{coll: database.Collection(songsCollection)},
		Playlists: &mongoPlaylistRepository{coll: database.Collection(playlistsCollection)},
	}
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func (r *mongoUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := mongoNow()
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		UserName:     user.UserName,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		AvatarImage:  user.AvatarImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = mongoNow()
	_, err := r.coll.UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"firstName":    user.FirstName,
		"lastName":     user.LastName,
		"userName":     user.UserName,
		"email":        user.Email,
		"passwordHash": user.PasswordHash,
		"avatarImage":  user.AvatarImage,
		"updatedAt":    user.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

type mongoSongRepository struct {
	coll *mongo.Collection
}

func (r *mongoSongRepository) CreateSong(ctx context.Context, song *model.Song) error {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	now := mongoNow()
	song.CreatedDate, song.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, songDoc{
		ID:            song.ID,
		Title:         song.Title,
		Artist:        song.Artist,
		Year:          song.Year,
		YouTubeID:     song.YouTubeID,
		AddedBy:       song.AddedBy,
		AddedByName:   song.AddedByName,
		Listens:       song.Listens,
		PlaylistCount: song.PlaylistCount,
		CreatedDate:   now,
		UpdatedAt:     now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSong
		}
		return fmt.Errorf("failed to create song: %w", err)
	}
	return nil
}

func (r *mongoSongRepository) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoSongRepository) FindSongByIdentity(ctx context.Context, title, artist string, year int) (*model.Song, error) {
	return r.findOne(ctx, bson.M{"title": title, "artist": artist, "year": year})
}

func (r *mongoSongRepository) findOne(ctx context.Context, filter bson.M) (*model.Song, error) {
	var doc songDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query song: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoSongRepository) ListSongs(ctx context.Context, addedBy string) ([]*model.Song, error) {
	filter := bson.M{}
	if addedBy != "" {
		filter["addedBy"] = addedBy
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []songDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode songs: %w", err)
	}
	songs := make([]*model.Song, 0, len(docs))
	for i := range docs {
		songs = append(songs, docs[i].toModel())
	}
	return songs, nil
}

func (r *mongoSongRepository) UpdateSong(ctx context.Context, song *model.Song) error {
	song.UpdatedAt = mongoNow()
	_, err := r.coll.UpdateByID(ctx, song.ID, bson.M{"$set": bson.M{
		"title":     song.Title,
		"artist":    song.Artist,
		"year":      song.Year,
		"youTubeId": song.YouTubeID,
		"updatedAt": song.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSong
		}
		return fmt.Errorf("failed to update song %s: %w", song.ID, err)
	}
	return nil
}

func (r *mongoSongRepository) DeleteSong(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoSongRepository) IncrementListens(ctx context.Context, id string) (int64, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc songDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"listens": 1}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to record listen for song %s: %w", id, err)
	}
	return doc.Listens, true, nil
}

func (r *mongoSongRepository) IncrementPlaylistCount(ctx context.Context, id string, delta int64) error {
	if _, err := r.coll.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"playlistCount": delta}}); err != nil {
		return fmt.Errorf("failed to update playlist count for song %s: %w", id, err)
	}
	return nil
}

func (r *mongoSongRepository) ReassignAdder(ctx context.Context, oldEmail, newEmail, newName string) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"addedBy": oldEmail}, bson.M{"$set": bson.M{
		"addedBy":     newEmail,
		"addedByName": newName,
	}})
	if err != nil {
		return fmt.Errorf("failed to reassign songs of %s: %w", oldEmail, err)
	}
	return nil
}

type mongoPlaylistRepository struct {
	coll *mongo.Collection
}

func (r *mongoPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	if playlist.Songs == nil {
		playlist.Songs = []model.EmbeddedSong{}
	}
	playlist.UniqueListeners = []string{}
	now := mongoNow()
	playlist.CreatedDate, playlist.LastEditedDate = now, now
	_, err := r.coll.InsertOne(ctx, playlistDoc{
		ID:              playlist.ID,
		Name:            playlist.Name,
		OwnerEmail:      playlist.OwnerEmail,
		OwnerName:       playlist.OwnerName,
		Songs:           append([]model.EmbeddedSong{}, playlist.Songs...),
		Published:       playlist.Published,
		Listens:         playlist.Listens,
		UniqueListeners: []string{},
		CreatedDate:     now,
		LastEditedDate:  now,
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (r *mongoPlaylistRepository) GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	var doc playlistDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (r *mongoPlaylistRepository) FindPlaylists(ctx context.Context, scope PlaylistScope) ([]*model.Playlist, error) {
	conds := bson.A{}
	if scope.OwnerEmail != "" {
		conds = append(conds, bson.M{"ownerEmail": scope.OwnerEmail})
	}
	if scope.PublishedOnly {
		conds = append(conds, bson.M{"published": true})
	} else if scope.VisibleTo != "" {
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"published": true},
			bson.M{"ownerEmail": scope.VisibleTo},
		}})
	}
	filter := bson.M{}
	if len(conds) > 0 {
		filter["$and"] = conds
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find playlists: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []playlistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}
	playlists := make([]*model.Playlist, 0, len(docs))
	for i := range docs {
		playlists = append(playlists, docs[i].toModel())
	}
	return playlists, nil
}

// findOneAndUpdate applies update and returns the post-update playlist, or
// nil when no playlist has the id.
func (r *mongoPlaylistRepository) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*model.Playlist, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc playlistDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *mongoPlaylistRepository) UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (*model.Playlist, error) {
	set := bson.M{"lastEditedDate": mongoNow()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Songs != nil {
		set["songs"] = append([]model.EmbeddedSong{}, (*patch.Songs)...)
	}
	if patch.Published != nil {
		set["published"] = *patch.Published
	}
	p, err := r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist %s: %w", id, err)
	}
	return p, nil
}

func (r *mongoPlaylistRepository) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoPlaylistRepository) RecordPlay(ctx context.Context, id, listenerID string) (*model.Playlist, error) {
	update := bson.M{"$inc": bson.M{"listens": 1}}
	if listenerID != "" {
		update["$addToSet"] = bson.M{"uniqueListeners": listenerID}
	}
	p, err := r.findOneAndUpdate(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to record play for playlist %s: %w", id, err)
	}
	return p, nil
}

func (r *mongoPlaylistRepository) AppendSong(ctx context.Context, id string, song model.EmbeddedSong) (*model.Playlist, error) {
	p, err := r.findOneAndUpdate(ctx, id, bson.M{
		"$push": bson.M{"songs": song},
		"$set":  bson.M{"lastEditedDate": mongoNow()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append song to playlist %s: %w", id, err)
	}
	return p, nil
}

func (r *mongoPlaylistRepository) ReassignOwner(ctx context.Context, oldEmail, newEmail, newName string) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"ownerEmail": oldEmail}, bson.M{"$set": bson.M{
		"ownerEmail": newEmail,
		"ownerName":  newName,
	}})
	if err != nil {
		return fmt.Errorf("failed to reassign playlists of %s: %w", oldEmail, err)
	}
	return nil
}
