package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type pledgeOptionRepository struct {
	db *sql.DB
}

func NewPledgeOptionRepository(db *sql.DB) repository.PledgeOptionRepository {
	return &pledgeOptionRepository{db: db}
}

func (r *pledgeOptionRepository) Create(ctx context.Context, o *domain.PledgeOption) error {
	query := `INSERT INTO pledge_options (project_id, title, description, amount_cents, benefits, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now()
	o.CreatedOn = now
	o.UpdatedOn = now
	return r.db.QueryRowContext(ctx, query, o.ProjectID, o.Title, o.Description, o.AmountCents, pq.Array(o.Benefits), o.CreatedOn, o.UpdatedOn).Scan(&o.ID)
}

func (r *pledgeOptionRepository) GetByID(ctx context.Context, id int32) (*domain.PledgeOption, error) {
	o := &domain.PledgeOption{}
	query := `SELECT id, project_id, title, description, amount_cents, benefits, created_on, updated_on FROM pledge_options WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.ProjectID, &o.Title, &o.Description, &o.AmountCents, pq.Array(&o.Benefits), &o.CreatedOn, &o.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pledgeOptionRepository) Update(ctx context.Context, o *domain.PledgeOption) error {
	query := `UPDATE pledge_options SET title=$1, description=$2, amount_cents=$3, benefits=$4, updated_on=$5 WHERE id=$6`
	o.UpdatedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, o.Title, o.Description, o.AmountCents, pq.Array(o.Benefits), o.UpdatedOn, o.ID)
	return err
}

func (r *pledgeOptionRepository) Delete(ctx context.Context, id int32) error {
	query := `DELETE FROM pledge_options WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *pledgeOptionRepository) ListByProject(ctx context.Context, projectID int32) ([]domain.PledgeOption, error) {
	query := `SELECT id, project_id, title, description, amount_cents, benefits, created_on, updated_on
	          FROM pledge_options WHERE project_id = $1 ORDER BY amount_cents`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []domain.PledgeOption
	for rows.Next() {
		var o domain.PledgeOption
		if err := rows.Scan(&o.ID, &o.ProjectID, &o.Title, &o.Description, &o.AmountCents, pq.Array(&o.Benefits), &o.CreatedOn, &o.UpdatedOn); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}
