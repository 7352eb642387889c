package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/testutil"
	"github.com/localnerve/booksdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPullMatch(t *testing.T) {
	created := time.Date(2026, time.April, 10, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, bson.M{"id": "b1"}, pullMatch(models.Book{ID: "b1", Title: "Dune", CreatedAt: created}))

	assert.Equal(t, bson.M{
		"id":        bson.M{"$exists": false},
		"title":     "Dune",
		"createdAt": created,
	}, pullMatch(models.Book{Title: "Dune", CreatedAt: created}))

	assert.Equal(t, bson.M{
		"id":        bson.M{"$exists": false},
		"title":     "Dune",
		"createdAt": bson.M{"$in": bson.A{nil, time.Time{}}},
	}, pullMatch(models.Book{Title: "Dune"}))
}

func TestStoreWithMongo(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testutil.StartMongo(t, nil)
	require.NoError(t, err, "Failed to start MongoDB")
	defer func() { _ = container.Terminate(ctx) }()

	tc := &testutil.TestContainers{MongoContainer: container}
	uri, err := tc.MongoURI(ctx)
	require.NoError(t, err)

	store, err := Connect(ctx, Options{URI: uri, Database: "booksdb", Collection: "users", MaxPool: 5})
	require.NoError(t, err)
	defer store.Close()

	const email = "reader@example.com"
	require.NoError(t, store.Ping(ctx))

	t.Run("MissingUser", func(t *testing.T) {
		_, err := store.FindUser(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, types.ErrUserNotFound)
		assert.ErrorIs(t, store.PushBook(ctx, "nobody@example.com", models.Book{Title: "x"}), types.ErrUserNotFound)
	})

	t.Run("CreateUserIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.CreateUser(ctx, email))
		require.NoError(t, store.CreateUser(ctx, email))
		user, err := store.FindUser(ctx, email)
		require.NoError(t, err)
		assert.Empty(t, user.Books)
	})

	created := time.Date(2026, time.April, 10, 8, 30, 0, 0, time.UTC)

	t.Run("PushAndSet", func(t *testing.T) {
		require.NoError(t, store.PushBook(ctx, email, models.Book{
			ID: "b1", Title: "Dune", Author: "Frank Herbert", PublishYear: 1965,
			Image: []byte{0xff, 0xd8}, CreatedAt: created, UpdatedAt: created,
		}))
		require.NoError(t, store.PushBook(ctx, email, models.Book{
			Title: "Legacy", Author: "Anon", PublishYear: 1900, CreatedAt: created, UpdatedAt: created,
		}))

		updated := created.Add(time.Hour)
		require.NoError(t, store.SetBook(ctx, email, models.BookSelector{ID: "b1"}, models.BookUpdate{
			Title: "Dune Messiah", Author: "Frank Herbert", PublishYear: 1969, Description: "sequel", UpdatedAt: updated,
		}))
		require.NoError(t, store.SetBook(ctx, email, models.BookSelector{Title: "Legacy"}, models.BookUpdate{
			Title: "Legacy 2", Author: "Anon", PublishYear: 1901, UpdatedAt: updated,
		}))
		assert.ErrorIs(t, store.SetBook(ctx, email, models.BookSelector{ID: "nope"}, models.BookUpdate{}), types.ErrBookNotFound)

		user, err := store.FindUser(ctx, email)
		require.NoError(t, err)
		require.Len(t, user.Books, 2)
		assert.Equal(t, "Dune Messiah", user.Books[0].Title)
		assert.Equal(t, "sequel", user.Books[0].Description)
		assert.Equal(t, []byte{0xff, 0xd8}, user.Books[0].Image)
		assert.True(t, created.Equal(user.Books[0].CreatedAt))
		assert.Equal(t, "Legacy 2", user.Books[1].Title)
	})

	t.Run("CountBooksByMonth", func(t *testing.T) {
		from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		counts, err := store.CountBooksByMonth(ctx, email, from, from.AddDate(1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, []models.MonthCount{{Month: 4, BookCount: 2}}, counts)

		counts, err = store.CountBooksByMonth(ctx, email, from.AddDate(1, 0, 0), from.AddDate(2, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("Pull", func(t *testing.T) {
		user, err := store.FindUser(ctx, email)
		require.NoError(t, err)

		require.NoError(t, store.PullBook(ctx, email, user.Books[1]))
		require.NoError(t, store.PullBook(ctx, email, models.Book{ID: "b1"}))
		assert.ErrorIs(t, store.PullBook(ctx, email, models.Book{ID: "b1"}), types.ErrBookNotFound)

		user, err = store.FindUser(ctx, email)
		require.NoError(t, err)
		assert.Empty(t, user.Books)
	})

	t.Run("PullWithoutCreatedAt", func(t *testing.T) {
		_, err := store.users.UpdateOne(ctx, bson.M{"email": email},
			bson.M{"$push": bson.M{"books": bson.M{"title": "Untimed", "author": "Anon", "publishYear": 1850}}})
		require.NoError(t, err)

		user, err := store.FindUser(ctx, email)
		require.NoError(t, err)
		require.Len(t, user.Books, 1)
		assert.True(t, user.Books[0].CreatedAt.IsZero())

		require.NoError(t, store.PullBook(ctx, email, user.Books[0]))
		user, err = store.FindUser(ctx, email)
		require.NoError(t, err)
		assert.Empty(t, user.Books)
	})
}
