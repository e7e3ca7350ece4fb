package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type pledgeRepository struct {
	db *sql.DB
}

func NewPledgeRepository(db *sql.DB) repository.PledgeRepository {
	return &pledgeRepository{db: db}
}

const pledgeColumns = `id, user_id, project_id, pledge_option_id, amount_cents, status, checkout_session_id, payment_intent_id, payment_method_id, created_on, updated_on`

func (r *pledgeRepository) Create(ctx context.Context, p *domain.Pledge) error {
	query := `INSERT INTO pledges (user_id, project_id, pledge_option_id, amount_cents, status, checkout_session_id, payment_intent_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	now := time.Now()
	p.CreatedOn = now
	p.UpdatedOn = now
	return r.db.QueryRowContext(ctx, query, p.UserID, p.ProjectID, p.PledgeOptionID, p.AmountCents, p.Status, p.CheckoutSessionID, p.PaymentIntentID, p.CreatedOn, p.UpdatedOn).Scan(&p.ID)
}

func scanPledge(s interface{ Scan(...any) error }, p *domain.Pledge) error {
	var intentID, methodID sql.NullString
	if err := s.Scan(&p.ID, &p.UserID, &p.ProjectID, &p.PledgeOptionID, &p.AmountCents, &p.Status, &p.CheckoutSessionID, &intentID, &methodID, &p.CreatedOn, &p.UpdatedOn); err != nil {
		return err
	}
	if intentID.Valid {
		p.PaymentIntentID = &intentID.String
	}
	if methodID.Valid {
		p.PaymentMethodID = &methodID.String
	}
	return nil
}

func (r *pledgeRepository) GetByID(ctx context.Context, id int32) (*domain.Pledge, error) {
	p := &domain.Pledge{}
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE id = $1`
	if err := scanPledge(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pledgeRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Pledge, error) {
	p := &domain.Pledge{}
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE checkout_session_id = $1`
	if err := scanPledge(r.db.QueryRowContext(ctx, query, sessionID), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pledgeRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Pledge, error) {
	p := &domain.Pledge{}
	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE payment_intent_id = $1`
	if err := scanPledge(r.db.QueryRowContext(ctx, query, paymentIntentID), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pledgeRepository) SetPaymentIntent(ctx context.Context, pledgeID int32, paymentIntentID string) error {
	query := `UPDATE pledges SET payment_intent_id = $1, updated_on = NOW() WHERE id = $2 AND payment_intent_id IS NULL`
	_, err := r.db.ExecContext(ctx, query, paymentIntentID, pledgeID)
	return err
}

// CompletePending is the single serialization point for pledge
// settlement. The status guard makes a redelivered webhook a no-op, and
// the aggregate increment rides in the same transaction so
// amount_pledged_cents moves exactly once per completed pledge.
func (r *pledgeRepository) CompletePending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var projectID int32
	var amountCents int64
	query := `UPDATE pledges SET status = $1, payment_method_id = $2, updated_on = NOW()
	          WHERE id = $3 AND status = $4
	          RETURNING project_id, amount_cents`
	err = tx.QueryRowContext(ctx, query, domain.PledgeStatusCompleted, paymentMethodID, pledgeID, domain.PledgeStatusPending).Scan(&projectID, &amountCents)
	if err == sql.ErrNoRows {
		// Already terminal; nothing to apply.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	incr := `UPDATE projects SET amount_pledged_cents = amount_pledged_cents + $1, updated_on = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, incr, amountCents, projectID); err != nil {
		return false, fmt.Errorf("increment amount_pledged: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *pledgeRepository) FailPending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error) {
	query := `UPDATE pledges SET status = $1, payment_method_id = $2, updated_on = NOW()
	          WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, domain.PledgeStatusFailed, paymentMethodID, pledgeID, domain.PledgeStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *pledgeRepository) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	return r.list(ctx, `user_id`, userID, page, pageSize)
}

func (r *pledgeRepository) ListByProject(ctx context.Context, projectID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	return r.list(ctx, `project_id`, projectID, page, pageSize)
}

func (r *pledgeRepository) list(ctx context.Context, column string, id int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	countQuery := `SELECT count(*) FROM pledges WHERE ` + column + ` = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, id).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pledgeColumns + ` FROM pledges WHERE ` + column + ` = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, id, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pledges []domain.Pledge
	for rows.Next() {
		var p domain.Pledge
		if err := scanPledge(rows, &p); err != nil {
			return nil, 0, err
		}
		pledges = append(pledges, p)
	}
	return pledges, count, rows.Err()
}

func (r *pledgeRepository) CountCompletedByProject(ctx context.Context, projectID int32) (int32, error) {
	var count int32
	query := `SELECT count(*) FROM pledges WHERE project_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, projectID, domain.PledgeStatusCompleted).Scan(&count)
	return count, err
}

func (r *pledgeRepository) SumCompletedByProject(ctx context.Context, projectID int32) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM pledges WHERE project_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, projectID, domain.PledgeStatusCompleted).Scan(&sum)
	return sum, err
}
