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

type DiagramRepository struct {
	pool *pgxpool.Pool
}

func NewDiagramRepository(pool *pgxpool.Pool) *DiagramRepository {
	return &DiagramRepository{pool: pool}
}

func (r *DiagramRepository) Create(ctx context.Context, diagram *models.Diagram) error {
	diagram.Prepare()

	query := `
		INSERT INTO diagrams (id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	return r.pool.QueryRow(ctx, query,
		diagram.ID,
		diagram.Title,
		[]byte(diagram.Content),
		now,
	).Scan(&diagram.CreatedAt, &diagram.UpdatedAt)
}

// GetByID returns nil, nil when no diagram has the id.
func (r *DiagramRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Diagram, error) {
	query := `
		SELECT id, title, content, created_at, updated_at
		FROM diagrams WHERE id = $1
	`

	var diagram models.Diagram
	var content []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&diagram.ID,
		&diagram.Title,
		&content,
		&diagram.CreatedAt,
		&diagram.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	diagram.Content = content
	return &diagram, nil
}
