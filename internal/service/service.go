package service

import (
	"context"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/payment"
)

// Role is a user's relationship to a company as seen by access control.
// Stored ADMIN and MEMBER rows both collapse to RoleMember; anything
// else, including no membership at all, is RoleNone.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleNone   Role = "none"
)

// AccessDecision is an explicit allow/deny result. Denials carry a
// reason for logging; handlers surface a non-leaky message instead.
type AccessDecision struct {
	Allowed bool
	Reason  string
}

type AccessControlService interface {
	RoleInCompany(ctx context.Context, userID, companyID int32) (Role, error)
	// CanAccessProject evaluates visibility rules for an optionally
	// anonymous actor (nil userID).
	CanAccessProject(ctx context.Context, projectID int32, userID *int32) (AccessDecision, error)
	// AccessibleProjectIDs is the server-side basis for listings and
	// search; a nil userID yields public projects only.
	AccessibleProjectIDs(ctx context.Context, userID *int32) ([]int32, error)
	RequestPrivateAccess(ctx context.Context, userID, companyID int32) error
	// ReviewPrivateAccess approves or deactivates a grant; the actor
	// must belong to the company.
	ReviewPrivateAccess(ctx context.Context, actorID, userID, companyID int32, approve bool) error
	ListAccessRequests(ctx context.Context, actorID, companyID int32) ([]domain.PrivateAccessGrant, error)
}

// ProjectPatch carries an edit; nil fields are left unchanged.
type ProjectPatch struct {
	Title       *string
	Description *string
	GoalCents   *int64
	EndDate     *string // RFC 3339
}

type ProjectService interface {
	CreateProject(ctx context.Context, actorID int32, project *domain.Project) error
	GetProject(ctx context.Context, projectID int32, actorID *int32) (*domain.Project, error)
	ListProjects(ctx context.Context, actorID *int32) ([]domain.Project, error)
	ListCompanyProjects(ctx context.Context, actorID, companyID int32, page, pageSize int32) ([]domain.Project, int32, error)
	EditProject(ctx context.Context, actorID, projectID int32, patch ProjectPatch) (*domain.Project, error)
	Publish(ctx context.Context, actorID, projectID int32) (*domain.Project, error)
	SetVisibility(ctx context.Context, actorID, projectID int32, v domain.ProjectVisibility) error
	Cancel(ctx context.Context, actorID, projectID int32) (*domain.Project, error)
	Complete(ctx context.Context, actorID, projectID int32) (*domain.Project, error)

	AddPledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error
	UpdatePledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error
	DeletePledgeOption(ctx context.Context, actorID, optionID int32) error
	ListPledgeOptions(ctx context.Context, projectID int32, actorID *int32) ([]domain.PledgeOption, error)
}

// CheckoutIntent is handed back to the client for redirect.
type CheckoutIntent struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type PledgeService interface {
	CreatePledgeIntent(ctx context.Context, userID, projectID, pledgeOptionID int32) (*CheckoutIntent, error)
	// Reconcile applies an authoritative payment event to local state.
	// Unknown payment intents and redelivered terminal events are
	// logged no-ops, never errors.
	Reconcile(ctx context.Context, event *payment.Event) error
	ListUserPledges(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Pledge, int32, error)
	ListProjectPledges(ctx context.Context, actorID, projectID int32, page, pageSize int32) ([]domain.Pledge, int32, error)
}

type AuthService interface {
	Signup(ctx context.Context, name, email, password, inviteToken string) (*domain.User, string, string, error)
	Login(ctx context.Context, email, password string) (string, string, error)
	ConfirmEmail(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, refresh string) (string, string, error)
}

type CompanyService interface {
	CreateCompany(ctx context.Context, userID int32, name, slug string) (*domain.Company, error)
	GetCompany(ctx context.Context, id int32) (*domain.Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*domain.Company, error)
	UpdateSettings(ctx context.Context, actorID, companyID int32, settings domain.CompanySettings) error
	InviteUser(ctx context.Context, actorID, companyID int32, email, name string) (*domain.UserInvite, error)
	ListMembers(ctx context.Context, actorID, companyID int32) ([]domain.CompanyMember, []domain.User, error)
	ListInvites(ctx context.Context, actorID, companyID int32) ([]domain.UserInvite, error)
	RemoveMember(ctx context.Context, actorID, userID, companyID int32) error
}

type CannySyncService interface {
	// SyncCompany pulls every board and post for the company and upserts
	// the local mirror, recording a sync log row either way.
	SyncCompany(ctx context.Context, companyID int32) (*domain.CannySyncLog, error)
	// SyncAll runs SyncCompany for every company with an API key
	// configured; per-company failures are logged and do not stop the run.
	SyncAll(ctx context.Context) error
	LinkPost(ctx context.Context, actorID, companyID int32, cannyPostID string, projectID int32) error
	ListBoards(ctx context.Context, actorID, companyID int32) ([]domain.CannyBoard, error)
	ListPosts(ctx context.Context, actorID, companyID int32, boardID string, page, pageSize int32) ([]domain.CannyPost, int32, error)
}

type EmailService interface {
	SendInvitation(ctx context.Context, email, name, token, companyName string) error
	SendConfirmation(ctx context.Context, email, name, token string) error
	SendPrivateAccessApproved(ctx context.Context, email, name, companyName string) error
	SendPledgeReceipt(ctx context.Context, email, name, projectTitle string, amountCents int64) error
}
