//go:build integration

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spellbreak/internal/db"
	"spellbreak/internal/db/models"
	"spellbreak/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresUniqueIndexConflict(t *testing.T) {
	gdb := testutil.SetupPostgres(t)
	repo := db.NewRepository[models.User](gdb)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{DiscordID: 1, Username: "tito"}, nil))

	// No pre-check, so the unique index has to catch it.
	err := repo.Create(ctx, &models.User{DiscordID: 2, Username: "tito"}, nil)
	var conflict *db.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.ErrorIs(t, err, db.ErrConflict)

	err = repo.Create(ctx, &models.User{DiscordID: 3, Username: "mara"}, []db.Unique{
		{Field: "username", Column: "username", Value: "mara"},
		{Field: "discord_id", Column: "discord_id", Value: int64(1)},
	})
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "discord_id", conflict.Field)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPostgresLinksClearedOnDelete(t *testing.T) {
	gdb := testutil.SetupPostgres(t)
	users := db.NewRepository[models.User](gdb)
	records := db.NewRepository[models.Record](gdb)
	ctx := context.Background()

	user := &models.User{DiscordID: 1, Username: "tito"}
	require.NoError(t, users.Create(ctx, user, nil))

	rec := &models.Record{Date: time.Now().UTC(), DiscordID: 1, Username: "tito", Place: 1}
	require.NoError(t, records.Create(ctx, rec, nil))
	require.NoError(t, records.ReplaceLinks(ctx, "user_id", user.ID, []uint{rec.ID}))

	ids, err := records.LinkedIDs(ctx, "user_id", user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{rec.ID}, ids)

	require.NoError(t, users.Delete(ctx, user.ID))

	got, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
}

func TestPostgresReplaceLinksMissing(t *testing.T) {
	gdb := testutil.SetupPostgres(t)
	users := db.NewRepository[models.User](gdb)
	records := db.NewRepository[models.Record](gdb)
	ctx := context.Background()

	user := &models.User{DiscordID: 1, Username: "tito"}
	require.NoError(t, users.Create(ctx, user, nil))

	err := records.ReplaceLinks(ctx, "user_id", user.ID, []uint{41, 42})
	var missing *db.MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []uint{41, 42}, missing.IDs)
}
