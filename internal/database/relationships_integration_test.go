package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

func setupSQLiteRepo(t *testing.T) (*Database, *RelationshipRepository) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := NewDatabase(filepath.Join(t.TempDir(), "compset.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	return db, NewRelationshipRepository(db.GetDB(), logger)
}

func seedProperties(t *testing.T, db *Database, portfolioID int64, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, len(names))
	for i, name := range names {
		p := &models.PropertyProfile{PortfolioID: portfolioID, Name: name, ProfileType: models.ProfileCompetitor}
		require.NoError(t, db.CreateProperty(context.Background(), p))
		ids[i] = p.ID
	}
	return ids
}

func TestRelationshipRepository_SQLite_ReversedDuplicate(t *testing.T) {
	db, repo := setupSQLiteRepo(t)
	ctx := context.Background()
	ids := seedProperties(t, db, 1, "Harbor Lofts", "Canal House")

	rel, err := repo.Create(ctx, 1, ids[1], ids[0], "")
	require.NoError(t, err)
	assert.Equal(t, ids[0], rel.PropertyAID, "pair is stored in canonical order")
	assert.Equal(t, ids[1], rel.PropertyBID)

	_, err = repo.Create(ctx, 1, ids[0], ids[1], models.MarketLeader)
	assert.True(t, errors.Is(err, errs.ErrConflict), "got %v", err)

	got, err := repo.Get(ctx, ids[1], ids[0])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rel.ID, got.ID)

	all, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRelationshipRepository_SQLite_Toggle(t *testing.T) {
	db, repo := setupSQLiteRepo(t)
	ctx := context.Background()
	ids := seedProperties(t, db, 1, "Harbor Lofts", "Canal House")

	rel, err := repo.Create(ctx, 1, ids[0], ids[1], "")
	require.NoError(t, err)
	require.True(t, rel.IsActive)

	off, err := repo.Toggle(ctx, rel.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	active, err := repo.ListActive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	on, err := repo.Toggle(ctx, rel.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
	assert.Equal(t, rel.RelationshipType, on.RelationshipType)

	_, err = repo.Toggle(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, errs.ErrNotFound), "got %v", err)
}

func TestRelationshipRepository_SQLite_UnknownProperty(t *testing.T) {
	db, repo := setupSQLiteRepo(t)
	ids := seedProperties(t, db, 1, "Harbor Lofts")

	_, err := repo.Create(context.Background(), 1, ids[0], ids[0]+100, "")
	assert.True(t, errors.Is(err, errs.ErrNotFound), "got %v", err)
}

func TestRelationshipRepository_SQLite_ConcurrentToggleOrCreate(t *testing.T) {
	db, repo := setupSQLiteRepo(t)
	ctx := context.Background()
	ids := seedProperties(t, db, 1, "Harbor Lofts", "Canal House")

	for _, clicks := range []int{20, 7} {
		var wg sync.WaitGroup
		errCh := make(chan error, clicks)
		for i := 0; i < clicks; i++ {
			a, b := ids[0], ids[1]
			if i%2 == 1 {
				a, b = b, a
			}
			wg.Add(1)
			go func(a, b int64) {
				defer wg.Done()
				if _, err := repo.ToggleOrCreate(ctx, 1, a, b, ""); err != nil {
					errCh <- err
				}
			}(a, b)
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			t.Errorf("ToggleOrCreate failed: %v", err)
		}

		all, err := repo.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, all, 1)

		// Reset to a known state for the next round
		_, err = db.GetDB().ExecContext(ctx, `DELETE FROM competitive_relationships`)
		require.NoError(t, err)

		assert.Equal(t, clicks%2 == 1, all[0].IsActive, "%d clicks", clicks)
	}
}
