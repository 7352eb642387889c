// Package mongodb stores one document per user, with the books embedded as an array.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Options configures the connection
type Options struct {
	URI        string
	Database   string
	Collection string
	MaxPool    uint64
}

// Store is the mongo-backed book store
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
}

// Connect dials the server, verifies it with a ping and ensures the indexes
func Connect(ctx context.Context, opts Options) (*Store, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPool > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPool)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		users:  client.Database(opts.Database).Collection(opts.Collection),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logging.Info().Str("database", opts.Database).Str("collection", opts.Collection).Msg("Connected to mongodb")
	return s, nil
}

// EnsureIndexes creates the unique email index and the book id index
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "books.id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, email string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{"email": email, "books": bson.A{}}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) FindUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrUserNotFound
		}
		return nil, err
	}
	if user.Books == nil {
		user.Books = []models.Book{}
	}
	return &user, nil
}

func (s *Store) PushBook(ctx context.Context, email string, book models.Book) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$push": bson.M{"books": book}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

// SetBook updates the first array element matching sel. An id selector goes
// through an array filter; legacy title selectors use the positional operator.
func (s *Store) SetBook(ctx context.Context, email string, sel models.BookSelector, update models.BookUpdate) error {
	filter := bson.M{"email": email}
	opts := options.Update()
	elem := "books.$"
	if sel.ID != "" {
		filter["books.id"] = sel.ID
		elem = "books.$[elem]"
		opts.SetArrayFilters(options.ArrayFilters{Filters: []interface{}{bson.M{"elem.id": sel.ID}}})
	} else {
		filter["books.title"] = sel.Title
	}

	set := bson.M{
		elem + ".title":       update.Title,
		elem + ".author":      update.Author,
		elem + ".publishYear": update.PublishYear,
		elem + ".updatedAt":   update.UpdatedAt,
	}
	doc := bson.M{"$set": set}
	if update.Description != "" {
		set[elem+".description"] = update.Description
	} else {
		doc["$unset"] = bson.M{elem + ".description": ""}
	}

	res, err := s.users.UpdateOne(ctx, filter, doc, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return types.ErrBookNotFound
	}
	return nil
}

// pullMatch selects the element by id, or by title and creation time when it
// was stored without one. A missing createdAt decodes to the zero time, so
// that case matches null, absent, or the stored zero date.
func pullMatch(book models.Book) bson.M {
	if book.ID != "" {
		return bson.M{"id": book.ID}
	}
	match := bson.M{
		"id":        bson.M{"$exists": false},
		"title":     book.Title,
		"createdAt": book.CreatedAt,
	}
	if book.CreatedAt.IsZero() {
		match["createdAt"] = bson.M{"$in": bson.A{nil, book.CreatedAt}}
	}
	return match
}

// PullBook removes the given element from the user's list
func (s *Store) PullBook(ctx context.Context, email string, book models.Book) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$pull": bson.M{"books": pullMatch(book)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return types.ErrUserNotFound
	}
	if res.ModifiedCount == 0 {
		return types.ErrBookNotFound
	}
	return nil
}

func (s *Store) CountBooksByMonth(ctx context.Context, email string, from, to time.Time) ([]models.MonthCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"email": email}}},
		{{Key: "$unwind", Value: "$books"}},
		{{Key: "$match", Value: bson.M{"books.createdAt": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       bson.M{"$month": "$books.createdAt"},
			"bookCount": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var counts []models.MonthCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
