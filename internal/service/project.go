package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository"
)

type projectService struct {
	projects repository.ProjectRepository
	options  repository.PledgeOptionRepository
	pledges  repository.PledgeRepository
	members  repository.MemberRepository
	access   AccessControlService
	now      func() time.Time
}

func NewProjectService(
	projects repository.ProjectRepository,
	options repository.PledgeOptionRepository,
	pledges repository.PledgeRepository,
	members repository.MemberRepository,
	access AccessControlService,
) ProjectService {
	return &projectService{
		projects: projects,
		options:  options,
		pledges:  pledges,
		members:  members,
		access:   access,
		now:      time.Now,
	}
}

func (s *projectService) CreateProject(ctx context.Context, actorID int32, project *domain.Project) error {
	if err := s.requireMember(ctx, actorID, project.CompanyID); err != nil {
		return err
	}
	if strings.TrimSpace(project.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if project.GoalCents <= 0 {
		return fmt.Errorf("%w: goal must be a positive amount", ErrValidation)
	}
	if !project.EndDate.IsZero() {
		if err := s.validateEndDate(project.EndDate); err != nil {
			return err
		}
	}

	project.Status = domain.ProjectStatusDraft
	if project.Visibility == "" {
		project.Visibility = domain.VisibilityPrivate
	}
	project.AmountPledgedCents = 0

	if err := s.projects.Create(ctx, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	logger.InfoContext(ctx, "project created", "project_id", project.ID, "company_id", project.CompanyID, "actor_id", actorID)
	return nil
}

func (s *projectService) GetProject(ctx context.Context, projectID int32, actorID *int32) (*domain.Project, error) {
	decision, err := s.access.CanAccessProject(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		// Denied reads are indistinguishable from missing projects.
		logger.InfoContext(ctx, "project read denied", "project_id", projectID, "reason", decision.Reason)
		return nil, ErrNotFound
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}

	// Drafts are a company-internal concern even on projects whose
	// visibility has already been flipped to public.
	if project.Status == domain.ProjectStatusDraft {
		if actorID == nil {
			return nil, ErrNotFound
		}
		role, err := s.access.RoleInCompany(ctx, *actorID, project.CompanyID)
		if err != nil {
			return nil, err
		}
		if role == RoleNone {
			return nil, ErrNotFound
		}
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, actorID *int32) ([]domain.Project, error) {
	ids, err := s.access.AccessibleProjectIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Project{}, nil
	}
	projects, err := s.projects.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	var ownCompany int32
	if actorID != nil {
		member, err := s.members.GetByUser(ctx, *actorID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("look up membership: %w", err)
		}
		if err == nil {
			ownCompany = member.CompanyID
		}
	}

	visible := make([]domain.Project, 0, len(projects))
	for _, p := range projects {
		if p.Status == domain.ProjectStatusDraft && p.CompanyID != ownCompany {
			continue
		}
		visible = append(visible, p)
	}
	return visible, nil
}

func (s *projectService) ListCompanyProjects(ctx context.Context, actorID, companyID int32, page, pageSize int32) ([]domain.Project, int32, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, 0, err
	}
	projects, total, err := s.projects.ListByCompany(ctx, companyID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list company projects: %w", err)
	}
	return projects, total, nil
}

func (s *projectService) EditProject(ctx context.Context, actorID, projectID int32, patch ProjectPatch) (*domain.Project, error) {
	project, err := s.loadForManage(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status.Terminal() {
		return nil, fmt.Errorf("%w: project is %s", ErrInvalidTransition, project.Status)
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		project.Title = *patch.Title
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}

	if patch.GoalCents != nil || patch.EndDate != nil {
		// Funding terms freeze once real money is committed.
		completed, err := s.pledges.CountCompletedByProject(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("count completed pledges: %w", err)
		}
		if completed > 0 {
			return nil, fmt.Errorf("%w: goal and end date are frozen after the first completed pledge", ErrValidation)
		}
		if patch.GoalCents != nil {
			if *patch.GoalCents <= 0 {
				return nil, fmt.Errorf("%w: goal must be a positive amount", ErrValidation)
			}
			project.GoalCents = *patch.GoalCents
		}
		if patch.EndDate != nil {
			endDate, err := time.Parse(time.RFC3339, *patch.EndDate)
			if err != nil {
				return nil, fmt.Errorf("%w: end date must be RFC 3339", ErrValidation)
			}
			if err := s.validateEndDate(endDate); err != nil {
				return nil, err
			}
			project.EndDate = endDate
		}
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// Publish moves a draft live. The conditional status update in the
// repository is what makes two concurrent publishes resolve to a single
// winner.
func (s *projectService) Publish(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	project, err := s.loadForManage(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.validateForPublish(ctx, project); err != nil {
		return nil, err
	}

	moved, err := s.projects.TransitionStatus(ctx, projectID, domain.ProjectStatusDraft, domain.ProjectStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("publish project: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: only draft projects can be published", ErrInvalidTransition)
	}
	logger.InfoContext(ctx, "project published", "project_id", projectID, "actor_id", actorID)

	project.Status = domain.ProjectStatusPublished
	return project, nil
}

func (s *projectService) validateForPublish(ctx context.Context, project *domain.Project) error {
	if project.Status != domain.ProjectStatusDraft {
		return fmt.Errorf("%w: only draft projects can be published", ErrInvalidTransition)
	}
	if strings.TrimSpace(project.Title) == "" || strings.TrimSpace(project.Description) == "" {
		return fmt.Errorf("%w: title and description are required to publish", ErrValidation)
	}
	if project.GoalCents <= 0 {
		return fmt.Errorf("%w: goal must be a positive amount", ErrValidation)
	}
	if err := s.validateEndDate(project.EndDate); err != nil {
		return err
	}
	options, err := s.options.ListByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list pledge options: %w", err)
	}
	if len(options) == 0 {
		return fmt.Errorf("%w: at least one pledge option is required to publish", ErrValidation)
	}
	return nil
}

// validateEndDate enforces the campaign window: strictly in the future
// and no more than the maximum duration out.
func (s *projectService) validateEndDate(endDate time.Time) error {
	now := s.now()
	if !endDate.After(now) {
		return fmt.Errorf("%w: end date must be in the future", ErrValidation)
	}
	if endDate.After(now.Add(domain.MaxCampaignDuration)) {
		return fmt.Errorf("%w: campaigns may run at most 30 days", ErrValidation)
	}
	return nil
}

// SetVisibility is deliberately independent of the lifecycle: a company
// can stage a public draft or retreat a published project to private.
func (s *projectService) SetVisibility(ctx context.Context, actorID, projectID int32, v domain.ProjectVisibility) error {
	if v != domain.VisibilityPublic && v != domain.VisibilityPrivate {
		return fmt.Errorf("%w: unknown visibility %q", ErrValidation, v)
	}
	if _, err := s.loadForManage(ctx, actorID, projectID); err != nil {
		return err
	}
	if err := s.projects.SetVisibility(ctx, projectID, v); err != nil {
		return fmt.Errorf("set visibility: %w", err)
	}
	logger.InfoContext(ctx, "project visibility changed", "project_id", projectID, "visibility", v, "actor_id", actorID)
	return nil
}

func (s *projectService) Cancel(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	project, err := s.loadForManage(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status.Terminal() {
		return nil, fmt.Errorf("%w: project is already %s", ErrInvalidTransition, project.Status)
	}

	moved, err := s.projects.TransitionStatus(ctx, projectID, project.Status, domain.ProjectStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel project: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: project changed state concurrently", ErrInvalidTransition)
	}

	// Completed pledges stay on the books; money already collected is a
	// support/refund matter handled outside this system.
	completed, err := s.pledges.CountCompletedByProject(ctx, projectID)
	if err == nil && completed > 0 {
		logger.Warn("project cancelled with completed pledges", "project_id", projectID, "completed_pledges", completed)
	}
	logger.InfoContext(ctx, "project cancelled", "project_id", projectID, "actor_id", actorID)

	project.Status = domain.ProjectStatusCancelled
	return project, nil
}

func (s *projectService) Complete(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	project, err := s.loadForManage(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	moved, err := s.projects.TransitionStatus(ctx, projectID, domain.ProjectStatusPublished, domain.ProjectStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete project: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: only published projects can be completed", ErrInvalidTransition)
	}
	logger.InfoContext(ctx, "project completed", "project_id", projectID, "actor_id", actorID)

	project.Status = domain.ProjectStatusCompleted
	return project, nil
}

func (s *projectService) AddPledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error {
	project, err := s.loadForManage(ctx, actorID, option.ProjectID)
	if err != nil {
		return err
	}
	if project.Status.Terminal() {
		return fmt.Errorf("%w: project is %s", ErrInvalidTransition, project.Status)
	}
	if err := validateOption(option); err != nil {
		return err
	}
	if err := s.options.Create(ctx, option); err != nil {
		return fmt.Errorf("create pledge option: %w", err)
	}
	return nil
}

func (s *projectService) UpdatePledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error {
	existing, err := s.options.GetByID(ctx, option.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load pledge option %d: %w", option.ID, err)
	}
	if _, err := s.loadForManage(ctx, actorID, existing.ProjectID); err != nil {
		return err
	}
	if err := validateOption(option); err != nil {
		return err
	}
	option.ProjectID = existing.ProjectID
	if err := s.options.Update(ctx, option); err != nil {
		return fmt.Errorf("update pledge option: %w", err)
	}
	return nil
}

func (s *projectService) DeletePledgeOption(ctx context.Context, actorID, optionID int32) error {
	option, err := s.options.GetByID(ctx, optionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load pledge option %d: %w", optionID, err)
	}
	if _, err := s.loadForManage(ctx, actorID, option.ProjectID); err != nil {
		return err
	}

	// Completed pledges keep a foreign key into options; once money has
	// moved the option is part of the record.
	completed, err := s.pledges.CountCompletedByProject(ctx, option.ProjectID)
	if err != nil {
		return fmt.Errorf("count completed pledges: %w", err)
	}
	if completed > 0 {
		return fmt.Errorf("%w: options cannot be removed after completed pledges exist", ErrValidation)
	}

	if err := s.options.Delete(ctx, optionID); err != nil {
		return fmt.Errorf("delete pledge option: %w", err)
	}
	return nil
}

func (s *projectService) ListPledgeOptions(ctx context.Context, projectID int32, actorID *int32) ([]domain.PledgeOption, error) {
	if _, err := s.GetProject(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	options, err := s.options.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list pledge options: %w", err)
	}
	return options, nil
}

func validateOption(option *domain.PledgeOption) error {
	if strings.TrimSpace(option.Title) == "" {
		return fmt.Errorf("%w: option title is required", ErrValidation)
	}
	if option.AmountCents <= 0 {
		return fmt.Errorf("%w: option amount must be a positive amount", ErrValidation)
	}
	return nil
}

// loadForManage loads a project and requires the actor to belong to the
// owning company. Management operations never fall back to access
// grants; grants confer read access only.
func (s *projectService) loadForManage(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	if err := s.requireMember(ctx, actorID, project.CompanyID); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) requireMember(ctx context.Context, actorID, companyID int32) error {
	role, err := s.access.RoleInCompany(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if role == RoleNone {
		return ErrNotAuthorized
	}
	return nil
}
