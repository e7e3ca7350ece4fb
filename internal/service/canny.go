package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pledgekit-backend/internal/canny"
	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository"
)

type cannySyncService struct {
	companies repository.CompanyRepository
	boards    repository.CannyRepository
	projects  repository.ProjectRepository
	members   repository.MemberRepository
	client    canny.Client
	now       func() time.Time
}

func NewCannySyncService(
	companies repository.CompanyRepository,
	boards repository.CannyRepository,
	projects repository.ProjectRepository,
	members repository.MemberRepository,
	client canny.Client,
) CannySyncService {
	return &cannySyncService{
		companies: companies,
		boards:    boards,
		projects:  projects,
		members:   members,
		client:    client,
		now:       time.Now,
	}
}

// SyncCompany pulls the company's boards and every post on them, then
// replaces the local mirror. A sync log row is written whether the run
// succeeds or fails, so operators can see silent drift.
func (s *cannySyncService) SyncCompany(ctx context.Context, companyID int32) (*domain.CannySyncLog, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load company %d: %w", companyID, err)
	}
	apiKey := company.Settings.CannyAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no canny api key configured", ErrValidation)
	}

	started := s.now()
	syncLog, err := s.pull(ctx, companyID, apiKey)
	syncLog.CompanyID = companyID
	syncLog.StartedOn = started
	syncLog.FinishedOn = s.now()
	if err != nil {
		syncLog.Outcome = domain.SyncOutcomeFailed
		syncLog.Error = err.Error()
	} else {
		syncLog.Outcome = domain.SyncOutcomeSuccess
	}

	if logErr := s.boards.CreateSyncLog(ctx, syncLog); logErr != nil {
		logger.ErrorContext(ctx, "record canny sync log", "company_id", companyID, "error", logErr)
	}

	if err != nil {
		logger.ErrorContext(ctx, "canny sync failed", "company_id", companyID, "error", err)
		return syncLog, fmt.Errorf("sync company %d: %w", companyID, err)
	}
	logger.InfoContext(ctx, "canny sync finished",
		"company_id", companyID, "boards", syncLog.BoardCount, "posts", syncLog.PostCount,
		"duration", syncLog.FinishedOn.Sub(syncLog.StartedOn))
	return syncLog, nil
}

func (s *cannySyncService) pull(ctx context.Context, companyID int32, apiKey string) (*domain.CannySyncLog, error) {
	syncLog := &domain.CannySyncLog{}

	remoteBoards, err := s.client.ListBoards(ctx, apiKey)
	if err != nil {
		return syncLog, fmt.Errorf("list boards: %w", err)
	}

	syncedOn := s.now()
	boards := make([]domain.CannyBoard, 0, len(remoteBoards))
	var posts []domain.CannyPost
	for _, rb := range remoteBoards {
		boards = append(boards, domain.CannyBoard{
			CompanyID:    companyID,
			CannyBoardID: rb.ID,
			Name:         rb.Name,
			PostCount:    rb.PostCount,
			SyncedOn:     syncedOn,
		})

		remotePosts, err := s.client.ListPosts(ctx, apiKey, rb.ID)
		if err != nil {
			return syncLog, fmt.Errorf("list posts for board %s: %w", rb.ID, err)
		}
		for _, rp := range remotePosts {
			posts = append(posts, domain.CannyPost{
				CompanyID:    companyID,
				CannyPostID:  rp.ID,
				CannyBoardID: rb.ID,
				Title:        rp.Title,
				Details:      rp.Details,
				Status:       rp.Status,
				Score:        rp.Score,
				SyncedOn:     syncedOn,
			})
		}
	}

	if err := s.boards.UpsertBoards(ctx, boards); err != nil {
		return syncLog, fmt.Errorf("upsert boards: %w", err)
	}
	if err := s.boards.UpsertPosts(ctx, posts); err != nil {
		return syncLog, fmt.Errorf("upsert posts: %w", err)
	}

	syncLog.BoardCount = int32(len(boards))
	syncLog.PostCount = int32(len(posts))
	return syncLog, nil
}

// SyncAll runs a sync for every company with an API key on file. One
// company's bad key must not starve the rest, so failures are logged
// and the loop continues.
func (s *cannySyncService) SyncAll(ctx context.Context) error {
	companies, err := s.companies.ListWithCannyKey(ctx)
	if err != nil {
		return fmt.Errorf("list companies with canny keys: %w", err)
	}

	var failures int
	for _, company := range companies {
		if _, err := s.SyncCompany(ctx, company.ID); err != nil {
			failures++
		}
	}
	logger.InfoContext(ctx, "canny sync sweep finished", "companies", len(companies), "failures", failures)
	return nil
}

func (s *cannySyncService) LinkPost(ctx context.Context, actorID, companyID int32, cannyPostID string, projectID int32) error {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load project %d: %w", projectID, err)
	}
	if project.CompanyID != companyID {
		return fmt.Errorf("%w: project belongs to another company", ErrValidation)
	}

	if err := s.boards.LinkPostToProject(ctx, companyID, cannyPostID, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("link post %s: %w", cannyPostID, err)
	}
	logger.InfoContext(ctx, "canny post linked to project", "canny_post_id", cannyPostID, "project_id", projectID, "actor_id", actorID)
	return nil
}

func (s *cannySyncService) ListBoards(ctx context.Context, actorID, companyID int32) ([]domain.CannyBoard, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	boards, err := s.boards.ListBoards(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *cannySyncService) ListPosts(ctx context.Context, actorID, companyID int32, boardID string, page, pageSize int32) ([]domain.CannyPost, int32, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, 0, err
	}
	posts, total, err := s.boards.ListPosts(ctx, companyID, boardID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

func (s *cannySyncService) requireMember(ctx context.Context, actorID, companyID int32) error {
	if _, err := s.members.Get(ctx, actorID, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("look up membership: %w", err)
	}
	return nil
}
