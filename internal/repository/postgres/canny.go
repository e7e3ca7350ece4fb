package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/repository"
)

// upsertChunkSize caps the rows per multi-row upsert so a large board
// sync never exceeds the store's request-size limit.
const upsertChunkSize = 500

type cannyRepository struct {
	db *sql.DB
}

func NewCannyRepository(db *sql.DB) repository.CannyRepository {
	return &cannyRepository{db: db}
}

func (r *cannyRepository) UpsertBoards(ctx context.Context, boards []domain.CannyBoard) error {
	for start := 0; start < len(boards); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(boards) {
			end = len(boards)
		}
		if err := r.upsertBoardChunk(ctx, boards[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *cannyRepository) upsertBoardChunk(ctx context.Context, boards []domain.CannyBoard) error {
	if len(boards) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO canny_boards (company_id, canny_board_id, name, post_count, synced_on) VALUES `)
	args := make([]any, 0, len(boards)*5)
	now := time.Now()
	for i, b := range boards {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, b.CompanyID, b.CannyBoardID, b.Name, b.PostCount, now)
	}
	sb.WriteString(` ON CONFLICT (company_id, canny_board_id)
	                 DO UPDATE SET name = EXCLUDED.name, post_count = EXCLUDED.post_count, synced_on = EXCLUDED.synced_on`)
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *cannyRepository) UpsertPosts(ctx context.Context, posts []domain.CannyPost) error {
	for start := 0; start < len(posts); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(posts) {
			end = len(posts)
		}
		if err := r.upsertPostChunk(ctx, posts[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *cannyRepository) upsertPostChunk(ctx context.Context, posts []domain.CannyPost) error {
	if len(posts) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO canny_posts (company_id, canny_post_id, canny_board_id, title, details, status, score, synced_on) VALUES `)
	args := make([]any, 0, len(posts)*8)
	now := time.Now()
	for i, p := range posts {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
		args = append(args, p.CompanyID, p.CannyPostID, p.CannyBoardID, p.Title, p.Details, p.Status, p.Score, now)
	}
	// project_id is deliberately left out of the update: a link made
	// locally survives resyncs of the upstream board.
	sb.WriteString(` ON CONFLICT (company_id, canny_post_id)
	                 DO UPDATE SET canny_board_id = EXCLUDED.canny_board_id, title = EXCLUDED.title, details = EXCLUDED.details, status = EXCLUDED.status, score = EXCLUDED.score, synced_on = EXCLUDED.synced_on`)
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *cannyRepository) ListBoards(ctx context.Context, companyID int32) ([]domain.CannyBoard, error) {
	query := `SELECT id, company_id, canny_board_id, name, post_count, synced_on FROM canny_boards WHERE company_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []domain.CannyBoard
	for rows.Next() {
		var b domain.CannyBoard
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.CannyBoardID, &b.Name, &b.PostCount, &b.SyncedOn); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (r *cannyRepository) ListPosts(ctx context.Context, companyID int32, boardID string, page, pageSize int32) ([]domain.CannyPost, int32, error) {
	offset := (page - 1) * pageSize
	where := `WHERE company_id = $1`
	args := []any{companyID}
	if boardID != "" {
		where += ` AND canny_board_id = $2`
		args = append(args, boardID)
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM canny_posts `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, company_id, canny_post_id, canny_board_id, title, details, status, score, project_id, synced_on
	          FROM canny_posts %s ORDER BY score DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []domain.CannyPost
	for rows.Next() {
		var p domain.CannyPost
		var projectID sql.NullInt32
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.CannyPostID, &p.CannyBoardID, &p.Title, &p.Details, &p.Status, &p.Score, &projectID, &p.SyncedOn); err != nil {
			return nil, 0, err
		}
		if projectID.Valid {
			p.ProjectID = &projectID.Int32
		}
		posts = append(posts, p)
	}
	return posts, count, rows.Err()
}

func (r *cannyRepository) LinkPostToProject(ctx context.Context, companyID int32, cannyPostID string, projectID int32) error {
	query := `UPDATE canny_posts SET project_id = $1 WHERE company_id = $2 AND canny_post_id = $3`
	res, err := r.db.ExecContext(ctx, query, projectID, companyID, cannyPostID)
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

func (r *cannyRepository) CreateSyncLog(ctx context.Context, log *domain.CannySyncLog) error {
	query := `INSERT INTO canny_sync_logs (company_id, outcome, board_count, post_count, error, started_on, finished_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return r.db.QueryRowContext(ctx, query, log.CompanyID, log.Outcome, log.BoardCount, log.PostCount, log.Error, log.StartedOn, log.FinishedOn).Scan(&log.ID)
}

func (r *cannyRepository) ListSyncLogs(ctx context.Context, companyID int32, limit int32) ([]domain.CannySyncLog, error) {
	query := `SELECT id, company_id, outcome, board_count, post_count, COALESCE(error, ''), started_on, finished_on
	          FROM canny_sync_logs WHERE company_id = $1 ORDER BY started_on DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.CannySyncLog
	for rows.Next() {
		var l domain.CannySyncLog
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Outcome, &l.BoardCount, &l.PostCount, &l.Error, &l.StartedOn, &l.FinishedOn); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
