package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/repository"
	"pledgekit-backend/internal/security"
)

const minPasswordLength = 8

type authService struct {
	users   repository.UserRepository
	invites repository.InviteRepository
	members repository.MemberRepository
	tokens  security.TokenManager
	email   EmailService
}

func NewAuthService(
	users repository.UserRepository,
	invites repository.InviteRepository,
	members repository.MemberRepository,
	tokens security.TokenManager,
	email EmailService,
) AuthService {
	return &authService{
		users:   users,
		invites: invites,
		members: members,
		tokens:  tokens,
		email:   email,
	}
}

// Signup registers a user and, when an invitation token is supplied,
// joins them to the inviting company in the same call. Tokens are
// returned immediately; email confirmation gates nothing today but the
// confirmed flag is tracked for when it does.
func (s *authService) Signup(ctx context.Context, name, email, password, inviteToken string) (*domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", "", fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, "", "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", "", fmt.Errorf("%w: email is already registered", ErrValidation)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", "", fmt.Errorf("check existing user: %w", err)
	}

	var invite *domain.UserInvite
	if inviteToken != "" {
		inv, err := s.invites.GetByToken(ctx, inviteToken)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", "", fmt.Errorf("%w: unknown invitation", ErrValidation)
			}
			return nil, "", "", fmt.Errorf("look up invitation: %w", err)
		}
		if inv.Status != domain.InviteStatusPending {
			return nil, "", "", ErrInviteUsed
		}
		if !strings.EqualFold(inv.Email, email) {
			return nil, "", "", fmt.Errorf("%w: invitation was issued for a different email", ErrValidation)
		}
		invite = inv
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", "", fmt.Errorf("create user: %w", err)
	}

	if invite != nil {
		member := &domain.CompanyMember{
			UserID:    user.ID,
			CompanyID: invite.CompanyID,
			Role:      domain.MemberRoleMember,
		}
		if err := s.members.Add(ctx, member); err != nil {
			return nil, "", "", fmt.Errorf("add invited member: %w", err)
		}
		if err := s.invites.MarkAccepted(ctx, invite.ID); err != nil {
			return nil, "", "", fmt.Errorf("mark invitation accepted: %w", err)
		}
		logger.InfoContext(ctx, "invitation accepted", "user_id", user.ID, "company_id", invite.CompanyID, "invite_id", invite.ID)
	}

	s.sendConfirmation(ctx, user)

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return user, access, refresh, nil
}

// sendConfirmation is best effort; the account exists either way and
// the confirmation email can be re-requested.
func (s *authService) sendConfirmation(ctx context.Context, user *domain.User) {
	token, err := s.tokens.GenerateConfirmToken(user.ID, user.Email)
	if err != nil {
		logger.ErrorContext(ctx, "generate confirmation token", "user_id", user.ID, "error", err)
		return
	}
	if err := s.email.SendConfirmation(ctx, user.Email, user.Name, token); err != nil {
		logger.ErrorContext(ctx, "send confirmation email", "user_id", user.ID, "error", err)
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		return "", "", err
	}
	logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return access, refresh, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("%w: invalid confirmation link", ErrValidation)
	}
	if claims.Type != security.TokenTypeConfirm {
		return fmt.Errorf("%w: invalid confirmation link", ErrValidation)
	}
	if err := s.users.MarkConfirmed(ctx, claims.UserID); err != nil {
		return fmt.Errorf("mark user confirmed: %w", err)
	}
	logger.InfoContext(ctx, "email confirmed", "user_id", claims.UserID)
	return nil
}

func (s *authService) RefreshToken(ctx context.Context, refresh string) (string, string, error) {
	claims, err := s.tokens.ValidateToken(refresh)
	if err != nil {
		return "", "", ErrNotAuthenticated
	}
	if claims.Type != security.TokenTypeRefresh {
		return "", "", ErrNotAuthenticated
	}

	// Rotation requires the account to still exist.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotAuthenticated
		}
		return "", "", fmt.Errorf("look up user: %w", err)
	}
	return s.issueTokens(user)
}

func (s *authService) issueTokens(user *domain.User) (string, string, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	return access, refresh, nil
}
