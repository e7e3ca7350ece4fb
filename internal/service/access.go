package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository"
)

// accessTypePrivateProjects is the only grant kind in use today.
const accessTypePrivateProjects = "PRIVATE_PROJECTS"

type accessService struct {
	members   repository.MemberRepository
	grants    repository.AccessGrantRepository
	projects  repository.ProjectRepository
	companies repository.CompanyRepository
	users     repository.UserRepository
	email     EmailService
}

func NewAccessControlService(
	members repository.MemberRepository,
	grants repository.AccessGrantRepository,
	projects repository.ProjectRepository,
	companies repository.CompanyRepository,
	users repository.UserRepository,
	email EmailService,
) AccessControlService {
	return &accessService{
		members:   members,
		grants:    grants,
		projects:  projects,
		companies: companies,
		users:     users,
		email:     email,
	}
}

func (s *accessService) RoleInCompany(ctx context.Context, userID, companyID int32) (Role, error) {
	member, err := s.members.Get(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoleNone, nil
		}
		return RoleNone, fmt.Errorf("look up membership: %w", err)
	}
	if member.Role == domain.MemberRoleOwner {
		return RoleOwner, nil
	}
	return RoleMember, nil
}

// CanAccessProject evaluates the rules in order: public projects are
// open to everyone, then membership in the owning company, then an
// effective private access grant. The first allow wins; reasons on
// denials are for logs only and never reach the response body.
func (s *accessService) CanAccessProject(ctx context.Context, projectID int32, userID *int32) (AccessDecision, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccessDecision{}, ErrNotFound
		}
		return AccessDecision{}, fmt.Errorf("load project %d: %w", projectID, err)
	}

	if project.Visibility == domain.VisibilityPublic {
		return AccessDecision{Allowed: true, Reason: "public project"}, nil
	}
	if userID == nil {
		return AccessDecision{Reason: "anonymous user on private project"}, nil
	}

	role, err := s.RoleInCompany(ctx, *userID, project.CompanyID)
	if err != nil {
		return AccessDecision{}, err
	}
	if role != RoleNone {
		return AccessDecision{Allowed: true, Reason: "company member"}, nil
	}

	grant, err := s.grants.Get(ctx, *userID, project.CompanyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccessDecision{Reason: "no access grant"}, nil
		}
		return AccessDecision{}, fmt.Errorf("look up access grant: %w", err)
	}
	if grant.Effective() {
		return AccessDecision{Allowed: true, Reason: "private access grant"}, nil
	}
	return AccessDecision{Reason: fmt.Sprintf("grant not effective (status=%s active=%t)", grant.Status, grant.IsActive)}, nil
}

func (s *accessService) AccessibleProjectIDs(ctx context.Context, userID *int32) ([]int32, error) {
	if userID == nil {
		ids, err := s.projects.ListPublicIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list public projects: %w", err)
		}
		return ids, nil
	}
	ids, err := s.projects.ListAccessibleIDs(ctx, *userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible projects: %w", err)
	}
	return ids, nil
}

// RequestPrivateAccess upserts the grant back to a pending state. A
// repeat request after a denial or deactivation is the documented way
// for a user to ask again.
func (s *accessService) RequestPrivateAccess(ctx context.Context, userID, companyID int32) error {
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("load company %d: %w", companyID, err)
	}

	grant := &domain.PrivateAccessGrant{
		UserID:      userID,
		CompanyID:   companyID,
		AccessType:  accessTypePrivateProjects,
		Status:      domain.AccessStatusPending,
		IsActive:    true,
		RequestedOn: time.Now(),
	}
	if err := s.grants.Upsert(ctx, grant); err != nil {
		return fmt.Errorf("upsert access grant: %w", err)
	}
	logger.InfoContext(ctx, "private access requested", "user_id", userID, "company_id", companyID)
	return nil
}

func (s *accessService) ReviewPrivateAccess(ctx context.Context, actorID, userID, companyID int32, approve bool) error {
	role, err := s.RoleInCompany(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if role == RoleNone {
		return ErrNotAuthorized
	}

	grant, err := s.grants.Get(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("look up access grant: %w", err)
	}

	if !approve {
		// Deactivation keeps the row so the request history survives a
		// later re-request.
		if err := s.grants.SetApproval(ctx, userID, companyID, grant.Status, false); err != nil {
			return fmt.Errorf("deactivate access grant: %w", err)
		}
		logger.InfoContext(ctx, "private access deactivated", "user_id", userID, "company_id", companyID, "actor_id", actorID)
		return nil
	}

	if err := s.grants.SetApproval(ctx, userID, companyID, domain.AccessStatusApproved, true); err != nil {
		return fmt.Errorf("approve access grant: %w", err)
	}
	logger.InfoContext(ctx, "private access approved", "user_id", userID, "company_id", companyID, "actor_id", actorID)

	s.notifyApproval(ctx, userID, companyID)
	return nil
}

// notifyApproval is best effort; a mail failure never rolls back the
// approval.
func (s *accessService) notifyApproval(ctx context.Context, userID, companyID int32) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "load user for approval email", "user_id", userID, "error", err)
		return
	}
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		logger.ErrorContext(ctx, "load company for approval email", "company_id", companyID, "error", err)
		return
	}
	if err := s.email.SendPrivateAccessApproved(ctx, user.Email, user.Name, company.Name); err != nil {
		logger.ErrorContext(ctx, "send access approval email", "user_id", userID, "error", err)
	}
}

func (s *accessService) ListAccessRequests(ctx context.Context, actorID, companyID int32) ([]domain.PrivateAccessGrant, error) {
	role, err := s.RoleInCompany(ctx, actorID, companyID)
	if err != nil {
		return nil, err
	}
	if role == RoleNone {
		return nil, ErrNotAuthorized
	}
	grants, err := s.grants.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list access grants: %w", err)
	}
	return grants, nil
}
