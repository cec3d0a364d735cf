package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"umlexport/internal/models"
)

type ExportRepository struct {
	pool *pgxpool.Pool
}

func NewExportRepository(pool *pgxpool.Pool) *ExportRepository {
	return &ExportRepository{pool: pool}
}

func (r *ExportRepository) Create(ctx context.Context, export *models.Export) error {
	export.Prepare()

	query := `
		INSERT INTO diagram_exports (id, diagram_id, project_name, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		export.ID,
		export.DiagramID,
		export.ProjectName,
		string(export.Status),
		export.StartedAt,
	)
	return err
}

func (r *ExportRepository) Finish(ctx context.Context, id uuid.UUID, outcome models.ExportOutcome) error {
	query := `
		UPDATE diagram_exports SET
			status = $2, class_count = $3, relationship_count = $4, warning_count = $5,
			archive_size = $6, mirror_key = $7, error_message = $8, finished_at = $9
		WHERE id = $1
	`

	var mirrorKey, message *string
	if outcome.MirrorKey != "" {
		mirrorKey = &outcome.MirrorKey
	}
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		message = &msg
	}

	result, err := r.pool.Exec(ctx, query,
		id,
		string(outcome.Status),
		outcome.ClassCount,
		outcome.RelationshipCount,
		outcome.WarningCount,
		outcome.ArchiveSize,
		mirrorKey,
		message,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("export not found")
	}
	return nil
}

// GetByID returns nil, nil when no export has the id.
func (r *ExportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	query := `
		SELECT id, diagram_id, project_name, status, class_count, relationship_count,
			warning_count, archive_size, mirror_key, error_message, started_at, finished_at
		FROM diagram_exports WHERE id = $1
	`

	var export models.Export
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&export.ID,
		&export.DiagramID,
		&export.ProjectName,
		&status,
		&export.ClassCount,
		&export.RelationshipCount,
		&export.WarningCount,
		&export.ArchiveSize,
		&export.MirrorKey,
		&export.ErrorMessage,
		&export.StartedAt,
		&export.FinishedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	export.Status = models.ExportStatus(status)
	return &export, nil
}
