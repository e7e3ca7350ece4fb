package postgres

import (
	"context"
	"database/sql"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type inviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) repository.InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) Create(ctx context.Context, inv *domain.UserInvite) error {
	query := `INSERT INTO user_invites (company_id, email, name, token, status, invited_by, invited_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	inv.InvitedOn = time.Now()
	if inv.Status == "" {
		inv.Status = domain.InviteStatusPending
	}
	return r.db.QueryRowContext(ctx, query, inv.CompanyID, inv.Email, inv.Name, inv.Token, inv.Status, inv.InvitedBy, inv.InvitedOn).Scan(&inv.ID)
}

func (r *inviteRepository) GetByToken(ctx context.Context, token string) (*domain.UserInvite, error) {
	inv := &domain.UserInvite{}
	query := `SELECT id, company_id, email, COALESCE(name, ''), token, status, invited_by, invited_on FROM user_invites WHERE token = $1`
	err := r.db.QueryRowContext(ctx, query, token).Scan(&inv.ID, &inv.CompanyID, &inv.Email, &inv.Name, &inv.Token, &inv.Status, &inv.InvitedBy, &inv.InvitedOn)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *inviteRepository) ListByCompany(ctx context.Context, companyID int32) ([]domain.UserInvite, error) {
	query := `SELECT id, company_id, email, COALESCE(name, ''), token, status, invited_by, invited_on
	          FROM user_invites WHERE company_id = $1 ORDER BY invited_on DESC`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.UserInvite
	for rows.Next() {
		var inv domain.UserInvite
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.Email, &inv.Name, &inv.Token, &inv.Status, &inv.InvitedBy, &inv.InvitedOn); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *inviteRepository) MarkAccepted(ctx context.Context, id int32) error {
	// PENDING -> ACCEPTED only; an accepted invite never moves back.
	query := `UPDATE user_invites SET status = $1 WHERE id = $2 AND status = $3`
	_, err := r.db.ExecContext(ctx, query, domain.InviteStatusAccepted, id, domain.InviteStatusPending)
	return err
}
