package stubs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/booksdb/internal/models"
	"github.com/localnerve/booksdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindUser(ctx, "a@example.com")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
	assert.ErrorIs(t, store.PushBook(ctx, "a@example.com", models.Book{Title: "x"}), types.ErrUserNotFound)

	require.NoError(t, store.CreateUser(ctx, "a@example.com"))
	require.NoError(t, store.PushBook(ctx, "a@example.com", models.Book{ID: "1", Title: "Dune"}))
	require.NoError(t, store.PushBook(ctx, "a@example.com", models.Book{ID: "2", Title: "Dune"}))

	err = store.SetBook(ctx, "a@example.com", models.BookSelector{Title: "Dune"}, models.BookUpdate{Title: "Dune I"})
	require.NoError(t, err)

	user, err := store.FindUser(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Dune I", user.Books[0].Title)
	assert.Equal(t, "Dune", user.Books[1].Title)

	// a returned document is a snapshot
	user.Books[0].Title = "mutated"
	again, _ := store.FindUser(ctx, "a@example.com")
	assert.Equal(t, "Dune I", again.Books[0].Title)

	require.NoError(t, store.PullBook(ctx, "a@example.com", models.Book{ID: "2"}))
	assert.ErrorIs(t, store.PullBook(ctx, "a@example.com", models.Book{ID: "2"}), types.ErrBookNotFound)
	assert.ErrorIs(t, store.SetBook(ctx, "a@example.com", models.BookSelector{ID: "2"}, models.BookUpdate{}), types.ErrBookNotFound)

	user, _ = store.FindUser(ctx, "a@example.com")
	assert.Len(t, user.Books, 1)
}

func TestMemoryStoreCountBooksByMonth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateUser(ctx, "a@example.com"))

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{
		time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, store.PushBook(ctx, "a@example.com", models.Book{Title: "b", CreatedAt: d}))
	}

	counts, err := store.CountBooksByMonth(ctx, "a@example.com", from, from.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []models.MonthCount{{Month: 5, BookCount: 2}}, counts)

	counts, err = store.CountBooksByMonth(ctx, "missing@example.com", from, from.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMemoryStoreConcurrentPush(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateUser(ctx, "a@example.com"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.PushBook(ctx, "a@example.com", models.Book{Title: "t"})
		}()
	}
	wg.Wait()

	user, err := store.FindUser(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, user.Books, 50)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	assert.ErrorIs(t, store.CreateUser(ctx, "a@example.com"), context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}
