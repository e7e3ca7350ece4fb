package postgres

import (
	"context"
	"database/sql"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Add(ctx context.Context, m *domain.CompanyMember) error {
	query := `INSERT INTO company_members (user_id, company_id, role, joined_on) VALUES ($1, $2, $3, $4)`
	m.JoinedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, m.UserID, m.CompanyID, m.Role, m.JoinedOn)
	return err
}

func (r *memberRepository) Get(ctx context.Context, userID, companyID int32) (*domain.CompanyMember, error) {
	m := &domain.CompanyMember{}
	query := `SELECT user_id, company_id, role, joined_on FROM company_members WHERE user_id = $1 AND company_id = $2`
	err := r.db.QueryRowContext(ctx, query, userID, companyID).Scan(&m.UserID, &m.CompanyID, &m.Role, &m.JoinedOn)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) GetByUser(ctx context.Context, userID int32) (*domain.CompanyMember, error) {
	m := &domain.CompanyMember{}
	query := `SELECT user_id, company_id, role, joined_on FROM company_members WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&m.UserID, &m.CompanyID, &m.Role, &m.JoinedOn)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) ListByCompany(ctx context.Context, companyID int32) ([]domain.CompanyMember, []domain.User, error) {
	query := `SELECT m.user_id, m.company_id, m.role, m.joined_on,
	                 u.id, u.email, u.name, u.confirmed_on, u.created_on, u.updated_on
	          FROM company_members m
	          JOIN users u ON u.id = m.user_id
	          WHERE m.company_id = $1
	          ORDER BY m.joined_on`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var members []domain.CompanyMember
	var users []domain.User
	for rows.Next() {
		var m domain.CompanyMember
		var u domain.User
		var confirmedOn sql.NullTime
		if err := rows.Scan(&m.UserID, &m.CompanyID, &m.Role, &m.JoinedOn,
			&u.ID, &u.Email, &u.Name, &confirmedOn, &u.CreatedOn, &u.UpdatedOn); err != nil {
			return nil, nil, err
		}
		if confirmedOn.Valid {
			u.ConfirmedOn = &confirmedOn.Time
		}
		members = append(members, m)
		users = append(users, u)
	}
	return members, users, rows.Err()
}

func (r *memberRepository) Remove(ctx context.Context, userID, companyID int32) error {
	query := `DELETE FROM company_members WHERE user_id = $1 AND company_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, companyID)
	return err
}
