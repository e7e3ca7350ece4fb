package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type companyService struct {
	companies repository.CompanyRepository
	members   repository.MemberRepository
	invites   repository.InviteRepository
	users     repository.UserRepository
	email     EmailService
}

func NewCompanyService(
	companies repository.CompanyRepository,
	members repository.MemberRepository,
	invites repository.InviteRepository,
	users repository.UserRepository,
	email EmailService,
) CompanyService {
	return &companyService{
		companies: companies,
		members:   members,
		invites:   invites,
		users:     users,
		email:     email,
	}
}

// CreateCompany registers a company with the creator as its owner. A
// user belongs to at most one company, so creating a second one while
// already a member is rejected.
func (s *companyService) CreateCompany(ctx context.Context, userID int32, name, slug string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase letters, digits and dashes", ErrValidation)
	}

	if _, err := s.members.GetByUser(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: user already belongs to a company", ErrValidation)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("look up membership: %w", err)
	}

	if _, err := s.companies.GetBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("%w: slug is already taken", ErrValidation)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	company := &domain.Company{
		Name:     name,
		Slug:     slug,
		Settings: domain.CompanySettings{Version: domain.SettingsVersion},
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	owner := &domain.CompanyMember{
		UserID:    userID,
		CompanyID: company.ID,
		Role:      domain.MemberRoleOwner,
	}
	if err := s.members.Add(ctx, owner); err != nil {
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	logger.InfoContext(ctx, "company created", "company_id", company.ID, "slug", slug, "owner_id", userID)
	return company, nil
}

func (s *companyService) GetCompany(ctx context.Context, id int32) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load company %d: %w", id, err)
	}
	return company, nil
}

func (s *companyService) GetCompanyBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	company, err := s.companies.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load company %q: %w", slug, err)
	}
	return company, nil
}

func (s *companyService) UpdateSettings(ctx context.Context, actorID, companyID int32, settings domain.CompanySettings) error {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return err
	}
	settings.Version = domain.SettingsVersion
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.companies.UpsertSettings(ctx, companyID, settings); err != nil {
		return fmt.Errorf("save company settings: %w", err)
	}
	logger.InfoContext(ctx, "company settings updated", "company_id", companyID, "actor_id", actorID)
	return nil
}

func (s *companyService) InviteUser(ctx context.Context, actorID, companyID int32, email, name string) (*domain.UserInvite, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load company %d: %w", companyID, err)
	}

	invite := &domain.UserInvite{
		CompanyID: companyID,
		Email:     email,
		Name:      name,
		Token:     uuid.NewString(),
		Status:    domain.InviteStatusPending,
		InvitedBy: actorID,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if err := s.email.SendInvitation(ctx, email, name, invite.Token, company.Name); err != nil {
		// The invite row exists; the token can be re-sent by hand.
		logger.ErrorContext(ctx, "send invitation email", "invite_id", invite.ID, "error", err)
	}

	logger.InfoContext(ctx, "user invited", "invite_id", invite.ID, "company_id", companyID, "actor_id", actorID)
	return invite, nil
}

func (s *companyService) ListMembers(ctx context.Context, actorID, companyID int32) ([]domain.CompanyMember, []domain.User, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, nil, err
	}
	members, users, err := s.members.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("list members: %w", err)
	}
	return members, users, nil
}

func (s *companyService) ListInvites(ctx context.Context, actorID, companyID int32) ([]domain.UserInvite, error) {
	if err := s.requireMember(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	invites, err := s.invites.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invites, nil
}

// RemoveMember is owner-only. The owner cannot remove themselves, which
// keeps every company with at least one owner.
func (s *companyService) RemoveMember(ctx context.Context, actorID, userID, companyID int32) error {
	actor, err := s.members.Get(ctx, actorID, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("look up membership: %w", err)
	}
	if actor.Role != domain.MemberRoleOwner {
		return ErrNotAuthorized
	}
	if userID == actorID {
		return fmt.Errorf("%w: the owner cannot remove themselves", ErrValidation)
	}

	if err := s.members.Remove(ctx, userID, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}
	logger.InfoContext(ctx, "member removed", "company_id", companyID, "user_id", userID, "actor_id", actorID)
	return nil
}

func (s *companyService) requireMember(ctx context.Context, actorID, companyID int32) error {
	if _, err := s.members.Get(ctx, actorID, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("look up membership: %w", err)
	}
	return nil
}
