package poll

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollwinner/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO polls (poll_id, title, description, price_per_vote, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.PollID, p.Title, p.Description, p.PricePerVote, p.Status).Scan(&p.CreatedAt)
	if err != nil {
		return err
	}
	if err := insertOptions(ctx, tx, p.PollID, p.Options); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites title, description, price, and the full option set.
// Option rows are replaced wholesale; ids are regenerated by the service.
func (r *Repository) Update(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE polls SET title = $2, description = $3, price_per_vote = $4
		WHERE poll_id = $1
	`, p.PollID, p.Title, p.Description, p.PricePerVote)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, p.PollID); err != nil {
		return err
	}
	if err := insertOptions(ctx, tx, p.PollID, p.Options); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID returns nil when the poll does not exist.
func (r *Repository) GetByID(ctx context.Context, pollID string) (*models.Poll, error) {
	var p models.Poll
	err := r.pool.QueryRow(ctx, `
		SELECT poll_id, title, description, price_per_vote, status, result_option_id, created_at, closed_at
		FROM polls WHERE poll_id = $1
	`, pollID).Scan(&p.PollID, &p.Title, &p.Description, &p.PricePerVote, &p.Status, &p.ResultOptionID, &p.CreatedAt, &p.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	opts, err := r.optionsFor(ctx, pollID)
	if err != nil {
		return nil, err
	}
	p.Options = opts
	return &p, nil
}

// ListActive returns active polls newest first, options included.
func (r *Repository) ListActive(ctx context.Context) ([]*models.Poll, error) {
	return r.list(ctx, `
		SELECT poll_id, title, description, price_per_vote, status, result_option_id, created_at, closed_at
		FROM polls WHERE status = 'active' ORDER BY created_at DESC
	`)
}

// ListAll returns every poll newest first, options included.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Poll, error) {
	return r.list(ctx, `
		SELECT poll_id, title, description, price_per_vote, status, result_option_id, created_at, closed_at
		FROM polls ORDER BY created_at DESC
	`)
}

func (r *Repository) list(ctx context.Context, query string) ([]*models.Poll, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var polls []*models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.PollID, &p.Title, &p.Description, &p.PricePerVote, &p.Status, &p.ResultOptionID, &p.CreatedAt, &p.ClosedAt); err != nil {
			return nil, err
		}
		polls = append(polls, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range polls {
		opts, err := r.optionsFor(ctx, p.PollID)
		if err != nil {
			return nil, err
		}
		p.Options = opts
	}
	return polls, nil
}

func (r *Repository) optionsFor(ctx context.Context, pollID string) ([]models.PollOption, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT option_id, text, image_base64
		FROM poll_options WHERE poll_id = $1 ORDER BY position
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []models.PollOption
	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.OptionID, &o.Text, &o.ImageBase64); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func insertOptions(ctx context.Context, tx pgx.Tx, pollID string, opts []models.PollOption) error {
	for i, o := range opts {
		_, err := tx.Exec(ctx, `
			INSERT INTO poll_options (option_id, poll_id, text, image_base64, position)
			VALUES ($1, $2, $3, $4, $5)
		`, o.OptionID, pollID, o.Text, o.ImageBase64, i)
		if err != nil {
			return err
		}
	}
	return nil
}
