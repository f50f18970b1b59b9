package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickai/api/internal/models"
)

var (
	ErrCreationNotFound = errors.New("creation not found")
	ErrCreationExists   = errors.New("creation already exists")
)

const uniqueViolation = "23505"

type CreationRepository struct {
	pool *pgxpool.Pool
}

func NewCreationRepository(pool *pgxpool.Pool) *CreationRepository {
	return &CreationRepository{pool: pool}
}

const creationColumns = `id, user_id, type, prompt, content, published, likes, created_at, updated_at`

func (r *CreationRepository) Create(ctx context.Context, creation models.Creation) error {
	const query = `
		INSERT INTO creations (
			id, user_id, type, prompt, content, published, likes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		creation.ID,
		creation.OwnerID,
		string(creation.Type),
		creation.Prompt,
		creation.Content,
		creation.Published,
		likesOrEmpty(creation.Likes),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrCreationExists
		}
		return err
	}
	return nil
}

func (r *CreationRepository) GetByID(ctx context.Context, id string) (models.Creation, error) {
	const query = `SELECT ` + creationColumns + ` FROM creations WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	creation, err := scanCreation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Creation{}, ErrCreationNotFound
		}
		return models.Creation{}, err
	}
	return creation, nil
}

func (r *CreationRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Creation, error) {
	const query = `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCreations(rows)
}

func (r *CreationRepository) ListPublished(ctx context.Context) ([]models.Creation, error) {
	const query = `
		SELECT ` + creationColumns + `
		FROM creations
		WHERE published
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCreations(rows)
}

// ToggleLike flips the user's membership in the like set in a single UPDATE.
// The row lock serializes concurrent toggles on the same creation, and the
// RETURNING clause reports the post-update state.
func (r *CreationRepository) ToggleLike(ctx context.Context, id string, userID string) ([]string, bool, error) {
	const query = `
		UPDATE creations
		SET likes = CASE
				WHEN $2 = ANY(likes) THEN array_remove(likes, $2)
				ELSE array_append(likes, $2)
			END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING likes, $2 = ANY(likes)
	`

	var likes []string
	var liked bool
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&likes, &liked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrCreationNotFound
		}
		return nil, false, err
	}
	return likes, liked, nil
}

func (r *CreationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM creations WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCreationNotFound
	}
	return nil
}

// HasContentReference reports whether any creation's content URL mentions
// the given object key. Used by the orphan sweeper before removing objects.
func (r *CreationRepository) HasContentReference(ctx context.Context, objectKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM creations WHERE position($1 IN content) > 0)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, objectKey).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanCreation(row pgx.Row) (models.Creation, error) {
	var creation models.Creation
	var kind string
	if err := row.Scan(
		&creation.ID,
		&creation.OwnerID,
		&kind,
		&creation.Prompt,
		&creation.Content,
		&creation.Published,
		&creation.Likes,
		&creation.CreatedAt,
		&creation.UpdatedAt,
	); err != nil {
		return models.Creation{}, err
	}
	creation.Type = models.CreationType(kind)
	return creation, nil
}

func collectCreations(rows pgx.Rows) ([]models.Creation, error) {
	var creations []models.Creation
	for rows.Next() {
		creation, err := scanCreation(rows)
		if err != nil {
			return nil, err
		}
		creations = append(creations, creation)
	}
	return creations, rows.Err()
}

func likesOrEmpty(likes []string) []string {
	if likes == nil {
		return []string{}
	}
	return likes
}
