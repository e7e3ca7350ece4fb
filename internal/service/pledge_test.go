package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/payment"
	"pledgekit-backend/internal/service"
)

func TestDecideReconciliation(t *testing.T) {
	cases := []struct {
		name    string
		current domain.PledgeStatus
		kind    payment.EventKind
		want    service.ReconcileAction
	}{
		{"PendingSucceededCompletes", domain.PledgeStatusPending, payment.EventPaymentSucceeded, service.ReconcileComplete},
		{"PendingFailedFails", domain.PledgeStatusPending, payment.EventPaymentFailed, service.ReconcileFail},
		{"CompletedSucceededIsNoop", domain.PledgeStatusCompleted, payment.EventPaymentSucceeded, service.ReconcileNone},
		{"CompletedFailedIsNoop", domain.PledgeStatusCompleted, payment.EventPaymentFailed, service.ReconcileNone},
		{"FailedSucceededIsNoop", domain.PledgeStatusFailed, payment.EventPaymentSucceeded, service.ReconcileNone},
		{"CancelledFailedIsNoop", domain.PledgeStatusCancelled, payment.EventPaymentFailed, service.ReconcileNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.DecideReconciliation(tc.current, tc.kind))
		})
	}
}

type pledgeFixture struct {
	pledges  *MockPledgeRepo
	projects *MockProjectRepo
	options  *MockPledgeOptionRepo
	users    *MockUserRepo
	members  *MockMemberRepo
	grants   *MockAccessGrantRepo
	pay      *MockPaymentClient
	svc      service.PledgeService
}

func newPledgeFixture() *pledgeFixture {
	f := &pledgeFixture{
		pledges:  new(MockPledgeRepo),
		projects: new(MockProjectRepo),
		options:  new(MockPledgeOptionRepo),
		users:    new(MockUserRepo),
		members:  new(MockMemberRepo),
		grants:   new(MockAccessGrantRepo),
		pay:      new(MockPaymentClient),
	}
	access := service.NewAccessControlService(f.members, f.grants, f.projects, new(MockCompanyRepo), f.users, &MockEmailService{})
	f.svc = service.NewPledgeService(f.pledges, f.projects, f.options, f.users, access, f.pay, &MockEmailService{}, "https://pledgekit.example")
	return f
}

func publishedProject(id, companyID int32) *domain.Project {
	return &domain.Project{
		ID:         id,
		CompanyID:  companyID,
		Title:      "Widget Pro",
		GoalCents:  500_000,
		EndDate:    time.Now().Add(14 * 24 * time.Hour),
		Status:     domain.ProjectStatusPublished,
		Visibility: domain.VisibilityPublic,
	}
}

func TestCreatePledgeIntent(t *testing.T) {
	ctx := context.Background()
	backer := &domain.User{ID: 7, Email: "backer@example.com", Name: "Backer"}

	t.Run("Success", func(t *testing.T) {
		f := newPledgeFixture()
		f.users.On("GetByID", ctx, int32(7)).Return(backer, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(publishedProject(1, 10), nil)
		f.options.On("GetByID", ctx, int32(3)).
			Return(&domain.PledgeOption{ID: 3, ProjectID: 1, Title: "Early Bird", AmountCents: 2500}, nil)
		f.pay.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(p payment.CheckoutParams) bool {
			return p.AmountCents == 2500 && p.CustomerEmail == "backer@example.com"
		})).Return(&payment.CheckoutSession{ID: "cs_123", URL: "https://pay.example/cs_123", PaymentIntentID: "pi_123"}, nil)
		f.pledges.On("Create", ctx, mock.MatchedBy(func(p *domain.Pledge) bool {
			return p.Status == domain.PledgeStatusPending && p.CheckoutSessionID == "cs_123" && p.AmountCents == 2500
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Pledge).ID = 42
		}).Return(nil)
		f.pledges.On("SetPaymentIntent", ctx, int32(42), "pi_123").Return(nil)

		intent, err := f.svc.CreatePledgeIntent(ctx, 7, 1, 3)
		assert.NoError(t, err)
		assert.Equal(t, "cs_123", intent.SessionID)
		assert.Equal(t, "https://pay.example/cs_123", intent.CheckoutURL)
		f.pledges.AssertExpectations(t)
	})

	t.Run("DraftProjectIsNotPledgeable", func(t *testing.T) {
		f := newPledgeFixture()
		project := publishedProject(1, 10)
		project.Status = domain.ProjectStatusDraft
		f.users.On("GetByID", ctx, int32(7)).Return(backer, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(project, nil)

		_, err := f.svc.CreatePledgeIntent(ctx, 7, 1, 3)
		assert.ErrorIs(t, err, service.ErrNotPledgeable)
	})

	t.Run("EndedCampaignRejectsPledges", func(t *testing.T) {
		f := newPledgeFixture()
		project := publishedProject(1, 10)
		project.EndDate = time.Now().Add(-time.Hour)
		f.users.On("GetByID", ctx, int32(7)).Return(backer, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(project, nil)

		_, err := f.svc.CreatePledgeIntent(ctx, 7, 1, 3)
		assert.ErrorIs(t, err, service.ErrCampaignEnded)
	})

	t.Run("OptionFromAnotherProjectIsRejected", func(t *testing.T) {
		f := newPledgeFixture()
		f.users.On("GetByID", ctx, int32(7)).Return(backer, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(publishedProject(1, 10), nil)
		f.options.On("GetByID", ctx, int32(3)).
			Return(&domain.PledgeOption{ID: 3, ProjectID: 2, Title: "Wrong", AmountCents: 2500}, nil)

		_, err := f.svc.CreatePledgeIntent(ctx, 7, 1, 3)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("InaccessiblePrivateProjectLooksLikeMissing", func(t *testing.T) {
		f := newPledgeFixture()
		project := publishedProject(1, 10)
		project.Visibility = domain.VisibilityPrivate
		f.users.On("GetByID", ctx, int32(7)).Return(backer, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(project, nil)
		f.members.On("Get", mock.Anything, int32(7), int32(10)).Return(nil, sql.ErrNoRows)
		f.grants.On("Get", mock.Anything, int32(7), int32(10)).Return(nil, sql.ErrNoRows)

		_, err := f.svc.CreatePledgeIntent(ctx, 7, 1, 3)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	pendingPledge := func() *domain.Pledge {
		return &domain.Pledge{
			ID: 42, UserID: 7, ProjectID: 1, PledgeOptionID: 3,
			AmountCents: 2500, Status: domain.PledgeStatusPending,
		}
	}

	t.Run("SucceededEventCompletesPledge", func(t *testing.T) {
		f := newPledgeFixture()
		f.pledges.On("GetByPaymentIntent", ctx, "pi_123").Return(pendingPledge(), nil)
		f.pledges.On("CompletePending", ctx, int32(42), "pm_9").Return(true, nil)
		f.users.On("GetByID", ctx, int32(7)).Return(&domain.User{ID: 7, Email: "b@example.com"}, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(publishedProject(1, 10), nil)

		err := f.svc.Reconcile(ctx, &payment.Event{
			ID: "evt_1", Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_123", PaymentMethodID: "pm_9",
		})
		assert.NoError(t, err)
		f.pledges.AssertExpectations(t)
	})

	t.Run("FailedEventFailsPledge", func(t *testing.T) {
		f := newPledgeFixture()
		f.pledges.On("GetByPaymentIntent", ctx, "pi_123").Return(pendingPledge(), nil)
		f.pledges.On("FailPending", ctx, int32(42), "pm_9").Return(true, nil)

		err := f.svc.Reconcile(ctx, &payment.Event{
			ID: "evt_2", Kind: payment.EventPaymentFailed, PaymentIntentID: "pi_123", PaymentMethodID: "pm_9",
		})
		assert.NoError(t, err)
		f.pledges.AssertExpectations(t)
	})

	t.Run("RedeliveryOfTerminalPledgeIsNoop", func(t *testing.T) {
		f := newPledgeFixture()
		completed := pendingPledge()
		completed.Status = domain.PledgeStatusCompleted
		f.pledges.On("GetByPaymentIntent", ctx, "pi_123").Return(completed, nil)

		err := f.svc.Reconcile(ctx, &payment.Event{
			ID: "evt_1", Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_123", PaymentMethodID: "pm_9",
		})
		assert.NoError(t, err)
		// No CompletePending call: the decision is made before any write.
		f.pledges.AssertNotCalled(t, "CompletePending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RaceLostAtGuardIsStillNoop", func(t *testing.T) {
		f := newPledgeFixture()
		f.pledges.On("GetByPaymentIntent", ctx, "pi_123").Return(pendingPledge(), nil)
		// A concurrent delivery completed the pledge between read and write.
		f.pledges.On("CompletePending", ctx, int32(42), "pm_9").Return(false, nil)

		err := f.svc.Reconcile(ctx, &payment.Event{
			ID: "evt_1", Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_123", PaymentMethodID: "pm_9",
		})
		assert.NoError(t, err)
	})

	t.Run("UnknownIntentIsAcknowledged", func(t *testing.T) {
		f := newPledgeFixture()
		f.pledges.On("GetByPaymentIntent", ctx, "pi_unknown").Return(nil, sql.ErrNoRows)

		err := f.svc.Reconcile(ctx, &payment.Event{
			ID: "evt_3", Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_unknown",
		})
		assert.NoError(t, err)
	})
}

func TestListProjectPledges(t *testing.T) {
	ctx := context.Background()

	t.Run("NonMemberIsDenied", func(t *testing.T) {
		f := newPledgeFixture()
		f.projects.On("GetByID", ctx, int32(1)).Return(publishedProject(1, 10), nil)
		f.members.On("Get", mock.Anything, int32(99), int32(10)).Return(nil, sql.ErrNoRows)

		_, _, err := f.svc.ListProjectPledges(ctx, 99, 1, 1, 20)
		assert.ErrorIs(t, err, service.ErrNotAuthorized)
	})
}
