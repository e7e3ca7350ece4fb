package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) repository.CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(ctx context.Context, c *domain.Company) error {
	if c.Settings.Version == 0 {
		c.Settings.Version = domain.SettingsVersion
	}
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("marshal company settings: %w", err)
	}
	query := `INSERT INTO companies (name, slug, settings, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	now := time.Now()
	c.CreatedOn = now
	c.UpdatedOn = now
	return r.db.QueryRowContext(ctx, query, c.Name, c.Slug, settings, c.CreatedOn, c.UpdatedOn).Scan(&c.ID)
}

func (r *companyRepository) GetByID(ctx context.Context, id int32) (*domain.Company, error) {
	query := `SELECT id, name, slug, settings, created_on, updated_on FROM companies WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *companyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	query := `SELECT id, name, slug, settings, created_on, updated_on FROM companies WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *companyRepository) scanOne(row *sql.Row) (*domain.Company, error) {
	c := &domain.Company{}
	var settings []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &settings, &c.CreatedOn, &c.UpdatedOn); err != nil {
		return nil, err
	}
	// Settings are schema-validated on read, not just on write.
	if err := unmarshalSettings(settings, &c.Settings); err != nil {
		return nil, err
	}
	return c, nil
}

func unmarshalSettings(raw []byte, s *domain.CompanySettings) error {
	if len(raw) == 0 {
		s.Version = domain.SettingsVersion
		return nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("invalid company settings record: %w", err)
	}
	if s.Version == 0 {
		// Pre-versioned rows are treated as version 1.
		s.Version = domain.SettingsVersion
	}
	return nil
}

func (r *companyRepository) Update(ctx context.Context, c *domain.Company) error {
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("marshal company settings: %w", err)
	}
	query := `UPDATE companies SET name=$1, slug=$2, settings=$3, updated_on=$4 WHERE id=$5`
	c.UpdatedOn = time.Now()
	_, err = r.db.ExecContext(ctx, query, c.Name, c.Slug, settings, c.UpdatedOn, c.ID)
	return err
}

func (r *companyRepository) UpsertSettings(ctx context.Context, companyID int32, settings domain.CompanySettings) error {
	if settings.Version == 0 {
		settings.Version = domain.SettingsVersion
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal company settings: %w", err)
	}
	query := `UPDATE companies SET settings=$1, updated_on=NOW() WHERE id=$2`
	res, err := r.db.ExecContext(ctx, query, raw, companyID)
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

func (r *companyRepository) ListWithCannyKey(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT id, name, slug, settings, created_on, updated_on FROM companies
	          WHERE settings->>'canny_api_key' IS NOT NULL AND settings->>'canny_api_key' != ''`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var c domain.Company
		var settings []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &settings, &c.CreatedOn, &c.UpdatedOn); err != nil {
			return nil, err
		}
		if err := unmarshalSettings(settings, &c.Settings); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
