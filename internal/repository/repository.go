package repository

import (
	"context"
	"pledgekit-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	MarkConfirmed(ctx context.Context, id int32) error
}

type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id int32) (*domain.Company, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)
	Update(ctx context.Context, company *domain.Company) error
	// UpsertSettings replaces the settings record keyed on company id.
	UpsertSettings(ctx context.Context, companyID int32, settings domain.CompanySettings) error
	ListWithCannyKey(ctx context.Context) ([]domain.Company, error)
}

type MemberRepository interface {
	Add(ctx context.Context, member *domain.CompanyMember) error
	// Get returns the membership row for (user, company); sql.ErrNoRows
	// when the user is not a member.
	Get(ctx context.Context, userID, companyID int32) (*domain.CompanyMember, error)
	// GetByUser returns the user's single membership (one company per
	// user in the current model).
	GetByUser(ctx context.Context, userID int32) (*domain.CompanyMember, error)
	ListByCompany(ctx context.Context, companyID int32) ([]domain.CompanyMember, []domain.User, error)
	Remove(ctx context.Context, userID, companyID int32) error
}

type InviteRepository interface {
	Create(ctx context.Context, invite *domain.UserInvite) error
	GetByToken(ctx context.Context, token string) (*domain.UserInvite, error)
	ListByCompany(ctx context.Context, companyID int32) ([]domain.UserInvite, error)
	MarkAccepted(ctx context.Context, id int32) error
}

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int32) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	ListByCompany(ctx context.Context, companyID int32, page, pageSize int32) ([]domain.Project, int32, error)
	ListByIDs(ctx context.Context, ids []int32) ([]domain.Project, error)
	// ListPublicIDs and ListAccessibleIDs back the server-side
	// visibility filter for listings; the latter unions public projects,
	// own-company projects, and effective private-access companies.
	ListPublicIDs(ctx context.Context) ([]int32, error)
	ListAccessibleIDs(ctx context.Context, userID int32) ([]int32, error)
	// TransitionStatus performs a conditional status update and reports
	// whether the row actually moved. It is the serialization point for
	// lifecycle changes.
	TransitionStatus(ctx context.Context, id int32, from, to domain.ProjectStatus) (bool, error)
	SetVisibility(ctx context.Context, id int32, v domain.ProjectVisibility) error
}

type PledgeOptionRepository interface {
	Create(ctx context.Context, option *domain.PledgeOption) error
	GetByID(ctx context.Context, id int32) (*domain.PledgeOption, error)
	Update(ctx context.Context, option *domain.PledgeOption) error
	Delete(ctx context.Context, id int32) error
	ListByProject(ctx context.Context, projectID int32) ([]domain.PledgeOption, error)
}

type PledgeRepository interface {
	Create(ctx context.Context, pledge *domain.Pledge) error
	GetByID(ctx context.Context, id int32) (*domain.Pledge, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Pledge, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Pledge, error)
	SetPaymentIntent(ctx context.Context, pledgeID int32, paymentIntentID string) error
	// CompletePending moves a pledge PENDING -> COMPLETED and increments
	// the owning project's amount_pledged_cents in the same transaction.
	// Returns false without error when the pledge was not PENDING, which
	// makes webhook redelivery a no-op.
	CompletePending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error)
	// FailPending moves a pledge PENDING -> FAILED under the same guard.
	FailPending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error)
	ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Pledge, int32, error)
	ListByProject(ctx context.Context, projectID int32, page, pageSize int32) ([]domain.Pledge, int32, error)
	CountCompletedByProject(ctx context.Context, projectID int32) (int32, error)
	SumCompletedByProject(ctx context.Context, projectID int32) (int64, error)
}

type AccessGrantRepository interface {
	// Upsert inserts or resets the grant keyed on (user_id, company_id),
	// setting status back to PENDING. Last write wins; no history kept.
	Upsert(ctx context.Context, grant *domain.PrivateAccessGrant) error
	Get(ctx context.Context, userID, companyID int32) (*domain.PrivateAccessGrant, error)
	SetApproval(ctx context.Context, userID, companyID int32, status domain.AccessStatus, isActive bool) error
	ListByCompany(ctx context.Context, companyID int32) ([]domain.PrivateAccessGrant, error)
}

type CannyRepository interface {
	// UpsertBoards and UpsertPosts replace mirror rows keyed on
	// (company_id, canny id), batching large writes into fixed-size
	// chunks to respect store request-size limits.
	UpsertBoards(ctx context.Context, boards []domain.CannyBoard) error
	UpsertPosts(ctx context.Context, posts []domain.CannyPost) error
	ListBoards(ctx context.Context, companyID int32) ([]domain.CannyBoard, error)
	ListPosts(ctx context.Context, companyID int32, boardID string, page, pageSize int32) ([]domain.CannyPost, int32, error)
	LinkPostToProject(ctx context.Context, companyID int32, cannyPostID string, projectID int32) error
	CreateSyncLog(ctx context.Context, log *domain.CannySyncLog) error
	ListSyncLogs(ctx context.Context, companyID int32, limit int32) ([]domain.CannySyncLog, error)
}
