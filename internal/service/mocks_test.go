package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/payment"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepo) MarkConfirmed(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) Add(ctx context.Context, member *domain.CompanyMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) Get(ctx context.Context, userID, companyID int32) (*domain.CompanyMember, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompanyMember), args.Error(1)
}
func (m *MockMemberRepo) GetByUser(ctx context.Context, userID int32) (*domain.CompanyMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompanyMember), args.Error(1)
}
func (m *MockMemberRepo) ListByCompany(ctx context.Context, companyID int32) ([]domain.CompanyMember, []domain.User, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.CompanyMember), args.Get(1).([]domain.User), args.Error(2)
}
func (m *MockMemberRepo) Remove(ctx context.Context, userID, companyID int32) error {
	args := m.Called(ctx, userID, companyID)
	return args.Error(0)
}

// MockAccessGrantRepo
type MockAccessGrantRepo struct {
	mock.Mock
}

func (m *MockAccessGrantRepo) Upsert(ctx context.Context, grant *domain.PrivateAccessGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}
func (m *MockAccessGrantRepo) Get(ctx context.Context, userID, companyID int32) (*domain.PrivateAccessGrant, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrivateAccessGrant), args.Error(1)
}
func (m *MockAccessGrantRepo) SetApproval(ctx context.Context, userID, companyID int32, status domain.AccessStatus, isActive bool) error {
	args := m.Called(ctx, userID, companyID, status, isActive)
	return args.Error(0)
}
func (m *MockAccessGrantRepo) ListByCompany(ctx context.Context, companyID int32) ([]domain.PrivateAccessGrant, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.PrivateAccessGrant), args.Error(1)
}

// MockProjectRepo
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}
func (m *MockProjectRepo) GetByID(ctx context.Context, id int32) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}
func (m *MockProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}
func (m *MockProjectRepo) ListByCompany(ctx context.Context, companyID int32, page, pageSize int32) ([]domain.Project, int32, error) {
	args := m.Called(ctx, companyID, page, pageSize)
	return args.Get(0).([]domain.Project), args.Get(1).(int32), args.Error(2)
}
func (m *MockProjectRepo) ListByIDs(ctx context.Context, ids []int32) ([]domain.Project, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Project), args.Error(1)
}
func (m *MockProjectRepo) ListPublicIDs(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockProjectRepo) ListAccessibleIDs(ctx context.Context, userID int32) ([]int32, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockProjectRepo) TransitionStatus(ctx context.Context, id int32, from, to domain.ProjectStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}
func (m *MockProjectRepo) SetVisibility(ctx context.Context, id int32, v domain.ProjectVisibility) error {
	args := m.Called(ctx, id, v)
	return args.Error(0)
}

// MockPledgeOptionRepo
type MockPledgeOptionRepo struct {
	mock.Mock
}

func (m *MockPledgeOptionRepo) Create(ctx context.Context, option *domain.PledgeOption) error {
	args := m.Called(ctx, option)
	return args.Error(0)
}
func (m *MockPledgeOptionRepo) GetByID(ctx context.Context, id int32) (*domain.PledgeOption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PledgeOption), args.Error(1)
}
func (m *MockPledgeOptionRepo) Update(ctx context.Context, option *domain.PledgeOption) error {
	args := m.Called(ctx, option)
	return args.Error(0)
}
func (m *MockPledgeOptionRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockPledgeOptionRepo) ListByProject(ctx context.Context, projectID int32) ([]domain.PledgeOption, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]domain.PledgeOption), args.Error(1)
}

// MockPledgeRepo
type MockPledgeRepo struct {
	mock.Mock
}

func (m *MockPledgeRepo) Create(ctx context.Context, pledge *domain.Pledge) error {
	args := m.Called(ctx, pledge)
	return args.Error(0)
}
func (m *MockPledgeRepo) GetByID(ctx context.Context, id int32) (*domain.Pledge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pledge), args.Error(1)
}
func (m *MockPledgeRepo) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Pledge, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pledge), args.Error(1)
}
func (m *MockPledgeRepo) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Pledge, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pledge), args.Error(1)
}
func (m *MockPledgeRepo) SetPaymentIntent(ctx context.Context, pledgeID int32, paymentIntentID string) error {
	args := m.Called(ctx, pledgeID, paymentIntentID)
	return args.Error(0)
}
func (m *MockPledgeRepo) CompletePending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error) {
	args := m.Called(ctx, pledgeID, paymentMethodID)
	return args.Bool(0), args.Error(1)
}
func (m *MockPledgeRepo) FailPending(ctx context.Context, pledgeID int32, paymentMethodID string) (bool, error) {
	args := m.Called(ctx, pledgeID, paymentMethodID)
	return args.Bool(0), args.Error(1)
}
func (m *MockPledgeRepo) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Pledge), args.Get(1).(int32), args.Error(2)
}
func (m *MockPledgeRepo) ListByProject(ctx context.Context, projectID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	args := m.Called(ctx, projectID, page, pageSize)
	return args.Get(0).([]domain.Pledge), args.Get(1).(int32), args.Error(2)
}
func (m *MockPledgeRepo) CountCompletedByProject(ctx context.Context, projectID int32) (int32, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockPledgeRepo) SumCompletedByProject(ctx context.Context, projectID int32) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCompanyRepo
type MockCompanyRepo struct {
	mock.Mock
}

func (m *MockCompanyRepo) Create(ctx context.Context, company *domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}
func (m *MockCompanyRepo) GetByID(ctx context.Context, id int32) (*domain.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}
func (m *MockCompanyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}
func (m *MockCompanyRepo) Update(ctx context.Context, company *domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}
func (m *MockCompanyRepo) UpsertSettings(ctx context.Context, companyID int32, settings domain.CompanySettings) error {
	args := m.Called(ctx, companyID, settings)
	return args.Error(0)
}
func (m *MockCompanyRepo) ListWithCannyKey(ctx context.Context) ([]domain.Company, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Company), args.Error(1)
}

// MockInviteRepo
type MockInviteRepo struct {
	mock.Mock
}

func (m *MockInviteRepo) Create(ctx context.Context, invite *domain.UserInvite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *MockInviteRepo) GetByToken(ctx context.Context, token string) (*domain.UserInvite, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserInvite), args.Error(1)
}

func (m *MockInviteRepo) ListByCompany(ctx context.Context, companyID int32) ([]domain.UserInvite, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.UserInvite), args.Error(1)
}

func (m *MockInviteRepo) MarkAccepted(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPaymentClient
type MockPaymentClient struct {
	mock.Mock
}

func (m *MockPaymentClient) CreateCheckoutSession(ctx context.Context, params payment.CheckoutParams) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

// MockEmailService is a no-op mail sink; services treat mail as best
// effort, so tests only need it to not fail.
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInvitation(ctx context.Context, email, name, token, companyName string) error {
	return nil
}
func (m *MockEmailService) SendConfirmation(ctx context.Context, email, name, token string) error {
	return nil
}
func (m *MockEmailService) SendPrivateAccessApproved(ctx context.Context, email, name, companyName string) error {
	return nil
}
func (m *MockEmailService) SendPledgeReceipt(ctx context.Context, email, name, projectTitle string, amountCents int64) error {
	return nil
}
