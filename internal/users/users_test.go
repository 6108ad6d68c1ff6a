package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornilov-ux/MyMessenger/internal/logging"
	"github.com/kornilov-ux/MyMessenger/internal/models"
	"github.com/kornilov-ux/MyMessenger/internal/store/memory"
)

func TestInsertAndExists(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(), logging.Nop())

	exists, err := d.Exists(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, d.Insert(ctx, models.User{
		FirstName: "Alice",
		LastName:  "Anders",
		Email:     "alice@x.com",
	}))

	exists, err = d.Exists(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(), logging.Nop())

	user := models.User{FirstName: "Alice", Email: "alice@x.com"}
	require.NoError(t, d.Insert(ctx, user))
	require.ErrorIs(t, d.Insert(ctx, user), ErrUserExists)
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(), logging.Nop())

	require.NoError(t, d.Insert(ctx, models.User{FirstName: "Alice", LastName: "Anders", Email: "alice@x.com"}))
	require.NoError(t, d.Insert(ctx, models.User{FirstName: "Bob", Email: "bob@y.com"}))

	all, err := d.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice Anders", all[0].Name)
	assert.Equal(t, "alice-x-com", all[0].Email)
	assert.Equal(t, "bob-y-com", all[1].Email)
}

func TestAllEmptyDirectory(t *testing.T) {
	d := New(memory.New(), logging.Nop())

	all, err := d.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearchByPrefix(t *testing.T) {
	ctx := context.Background()
	d := New(memory.New(), logging.Nop())

	require.NoError(t, d.Insert(ctx, models.User{FirstName: "Alice", Email: "alice@x.com"}))
	require.NoError(t, d.Insert(ctx, models.User{FirstName: "Albert", Email: "albert@x.com"}))
	require.NoError(t, d.Insert(ctx, models.User{FirstName: "Bob", Email: "bob@y.com"}))

	results, err := d.SearchByPrefix(ctx, "al", "nobody@z.com")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The current user is excluded from results.
	results, err = d.SearchByPrefix(ctx, "al", "alice@x.com")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Albert", results[0].Name)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice Anders", models.User{FirstName: "Alice", LastName: "Anders"}.DisplayName())
	assert.Equal(t, "Alice", models.User{FirstName: "Alice"}.DisplayName())
}
