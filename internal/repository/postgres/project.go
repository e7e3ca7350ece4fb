package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) repository.ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `id, company_id, title, description, goal_cents, amount_pledged_cents, end_date, status, visibility, created_on, updated_on`

func (r *projectRepository) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (company_id, title, description, goal_cents, amount_pledged_cents, end_date, status, visibility, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	now := time.Now()
	p.CreatedOn = now
	p.UpdatedOn = now
	return r.db.QueryRowContext(ctx, query, p.CompanyID, p.Title, p.Description, p.GoalCents, p.AmountPledgedCents, p.EndDate, p.Status, p.Visibility, p.CreatedOn, p.UpdatedOn).Scan(&p.ID)
}

func scanProject(s interface{ Scan(...any) error }, p *domain.Project) error {
	return s.Scan(&p.ID, &p.CompanyID, &p.Title, &p.Description, &p.GoalCents, &p.AmountPledgedCents, &p.EndDate, &p.Status, &p.Visibility, &p.CreatedOn, &p.UpdatedOn)
}

func (r *projectRepository) GetByID(ctx context.Context, id int32) (*domain.Project, error) {
	p := &domain.Project{}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	if err := scanProject(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update writes the editable fields. Status, visibility and the pledged
// aggregate have dedicated conditional writes and are never touched here.
func (r *projectRepository) Update(ctx context.Context, p *domain.Project) error {
	query := `UPDATE projects SET title=$1, description=$2, goal_cents=$3, end_date=$4, updated_on=$5 WHERE id=$6`
	p.UpdatedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.GoalCents, p.EndDate, p.UpdatedOn, p.ID)
	return err
}

func (r *projectRepository) ListByCompany(ctx context.Context, companyID int32, page, pageSize int32) ([]domain.Project, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	countQuery := `SELECT count(*) FROM projects WHERE company_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, companyID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE company_id = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, companyID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, count, rows.Err()
}

func (r *projectRepository) ListByIDs(ctx context.Context, ids []int32) ([]domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ANY($1) ORDER BY created_on DESC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *projectRepository) ListPublicIDs(ctx context.Context) ([]int32, error) {
	query := `SELECT id FROM projects WHERE visibility = $1`
	return r.queryIDs(ctx, query, domain.VisibilityPublic)
}

// ListAccessibleIDs unions public projects, projects of the user's own
// company, and projects of companies where the user holds an approved
// and active private-access grant. Computed here so listing surfaces
// never trust a client-supplied id set.
func (r *projectRepository) ListAccessibleIDs(ctx context.Context, userID int32) ([]int32, error) {
	query := `
		SELECT id FROM projects WHERE visibility = 'PUBLIC'
		UNION
		SELECT p.id FROM projects p
		JOIN company_members m ON m.company_id = p.company_id
		WHERE m.user_id = $1
		UNION
		SELECT p.id FROM projects p
		JOIN private_access_grants g ON g.company_id = p.company_id
		WHERE g.user_id = $1 AND g.status = 'APPROVED' AND g.is_active = TRUE`
	return r.queryIDs(ctx, query, userID)
}

func (r *projectRepository) queryIDs(ctx context.Context, query string, args ...any) ([]int32, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *projectRepository) TransitionStatus(ctx context.Context, id int32, from, to domain.ProjectStatus) (bool, error) {
	query := `UPDATE projects SET status = $1, updated_on = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *projectRepository) SetVisibility(ctx context.Context, id int32, v domain.ProjectVisibility) error {
	query := `UPDATE projects SET visibility = $1, updated_on = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, v, id)
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
