//go:build integration

package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"umlexport/internal/database"
	"umlexport/internal/models"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("umlexport"),
		postgres.WithUsername("umlexport"),
		postgres.WithPassword("umlexport"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.ConnectDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(ctx, pool))
	return pool
}

func TestRepositories(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	diagrams := NewDiagramRepository(pool)
	exports := NewExportRepository(pool)

	diagram := &models.Diagram{
		Title:   "Library System",
		Content: json.RawMessage(`{"elements": [{"id": "a", "name": "Author", "type": "class"}]}`),
	}
	require.NoError(t, diagrams.Create(ctx, diagram))
	require.NotEqual(t, uuid.Nil, diagram.ID)

	t.Run("diagram round trip", func(t *testing.T) {
		got, err := diagrams.GetByID(ctx, diagram.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Library System", got.Title)
		assert.JSONEq(t, string(diagram.Content), string(got.Content))
	})

	t.Run("missing diagram", func(t *testing.T) {
		got, err := diagrams.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("export lifecycle", func(t *testing.T) {
		export := &models.Export{DiagramID: &diagram.ID, ProjectName: "spring-boot-library-system"}
		require.NoError(t, exports.Create(ctx, export))

		got, err := exports.GetByID(ctx, export.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.ExportPending, got.Status)
		assert.Nil(t, got.FinishedAt)

		require.NoError(t, exports.Finish(ctx, export.ID, models.ExportOutcome{
			Status:            models.ExportSucceeded,
			ClassCount:        2,
			RelationshipCount: 1,
			ArchiveSize:       2048,
			MirrorKey:         "exports/x/demo.zip",
		}))

		got, err = exports.GetByID(ctx, export.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExportSucceeded, got.Status)
		assert.Equal(t, 2, got.ClassCount)
		assert.Equal(t, int64(2048), got.ArchiveSize)
		require.NotNil(t, got.MirrorKey)
		assert.Equal(t, "exports/x/demo.zip", *got.MirrorKey)
		assert.Nil(t, got.ErrorMessage)
		assert.NotNil(t, got.FinishedAt)
	})

	t.Run("failed export keeps message", func(t *testing.T) {
		export := &models.Export{ProjectName: "spring-boot-project"}
		require.NoError(t, exports.Create(ctx, export))
		require.NoError(t, exports.Finish(ctx, export.ID, models.ExportOutcome{
			Status: models.ExportFailed,
			Err:    errors.New("diagram has no class elements"),
		}))

		got, err := exports.GetByID(ctx, export.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DiagramID)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "diagram has no class elements", *got.ErrorMessage)
	})

	t.Run("finish unknown export", func(t *testing.T) {
		err := exports.Finish(ctx, uuid.New(), models.ExportOutcome{Status: models.ExportFailed})
		assert.Error(t, err)
	})
}
