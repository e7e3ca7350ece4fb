package postgres

import (
	"context"
	"database/sql"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type accessGrantRepository struct {
	db *sql.DB
}

func NewAccessGrantRepository(db *sql.DB) repository.AccessGrantRepository {
	return &accessGrantRepository{db: db}
}

func (r *accessGrantRepository) Upsert(ctx context.Context, g *domain.PrivateAccessGrant) error {
	query := `INSERT INTO private_access_grants (user_id, company_id, access_type, status, is_active, requested_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (user_id, company_id)
	          DO UPDATE SET access_type = EXCLUDED.access_type, status = EXCLUDED.status, is_active = EXCLUDED.is_active, updated_on = EXCLUDED.updated_on`
	now := time.Now()
	if g.RequestedOn.IsZero() {
		g.RequestedOn = now
	}
	g.UpdatedOn = now
	_, err := r.db.ExecContext(ctx, query, g.UserID, g.CompanyID, g.AccessType, g.Status, g.IsActive, g.RequestedOn, g.UpdatedOn)
	return err
}

func (r *accessGrantRepository) Get(ctx context.Context, userID, companyID int32) (*domain.PrivateAccessGrant, error) {
	g := &domain.PrivateAccessGrant{}
	query := `SELECT user_id, company_id, access_type, status, is_active, requested_on, updated_on
	          FROM private_access_grants WHERE user_id = $1 AND company_id = $2`
	err := r.db.QueryRowContext(ctx, query, userID, companyID).Scan(&g.UserID, &g.CompanyID, &g.AccessType, &g.Status, &g.IsActive, &g.RequestedOn, &g.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *accessGrantRepository) SetApproval(ctx context.Context, userID, companyID int32, status domain.AccessStatus, isActive bool) error {
	query := `UPDATE private_access_grants SET status = $1, is_active = $2, updated_on = NOW() WHERE user_id = $3 AND company_id = $4`
	res, err := r.db.ExecContext(ctx, query, status, isActive, userID, companyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *accessGrantRepository) ListByCompany(ctx context.Context, companyID int32) ([]domain.PrivateAccessGrant, error) {
	query := `SELECT user_id, company_id, access_type, status, is_active, requested_on, updated_on
	          FROM private_access_grants WHERE company_id = $1 ORDER BY requested_on DESC`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []domain.PrivateAccessGrant
	for rows.Next() {
		var g domain.PrivateAccessGrant
		if err := rows.Scan(&g.UserID, &g.CompanyID, &g.AccessType, &g.Status, &g.IsActive, &g.RequestedOn, &g.UpdatedOn); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
