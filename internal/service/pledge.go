package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/payment"
	"pledgekit-backend/internal/repository"
)

// ReconcileAction is what a payment event should do to a pledge.
type ReconcileAction int

const (
	ReconcileNone ReconcileAction = iota
	ReconcileComplete
	ReconcileFail
)

// DecideReconciliation maps (current pledge state, event kind) to an
// action. Terminal pledges never move again, so a redelivered event
// decides to do nothing rather than erroring; acknowledging the
// redelivery is what stops the processor from retrying forever.
func DecideReconciliation(current domain.PledgeStatus, kind payment.EventKind) ReconcileAction {
	if current.Terminal() {
		return ReconcileNone
	}
	switch kind {
	case payment.EventPaymentSucceeded:
		return ReconcileComplete
	case payment.EventPaymentFailed:
		return ReconcileFail
	}
	return ReconcileNone
}

type pledgeService struct {
	pledges  repository.PledgeRepository
	projects repository.ProjectRepository
	options  repository.PledgeOptionRepository
	users    repository.UserRepository
	access   AccessControlService
	pay      payment.Client
	email    EmailService
	baseURL  string
	now      func() time.Time
}

func NewPledgeService(
	pledges repository.PledgeRepository,
	projects repository.ProjectRepository,
	options repository.PledgeOptionRepository,
	users repository.UserRepository,
	access AccessControlService,
	pay payment.Client,
	email EmailService,
	baseURL string,
) PledgeService {
	return &pledgeService{
		pledges:  pledges,
		projects: projects,
		options:  options,
		users:    users,
		access:   access,
		pay:      pay,
		email:    email,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// CreatePledgeIntent validates the pledge, opens a checkout session
// with the processor, and records a PENDING pledge keyed by the session
// before the user is redirected. The pending row is what the webhook
// reconciles against later.
func (s *pledgeService) CreatePledgeIntent(ctx context.Context, userID, projectID, pledgeOptionID int32) (*CheckoutIntent, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	decision, err := s.access.CanAccessProject(ctx, projectID, &userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrNotFound
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	if project.Status != domain.ProjectStatusPublished {
		return nil, fmt.Errorf("%w: project is %s", ErrNotPledgeable, project.Status)
	}
	if s.now().After(project.EndDate) {
		return nil, ErrCampaignEnded
	}

	option, err := s.options.GetByID(ctx, pledgeOptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: pledge option not found", ErrValidation)
		}
		return nil, fmt.Errorf("load pledge option %d: %w", pledgeOptionID, err)
	}
	if option.ProjectID != projectID {
		return nil, fmt.Errorf("%w: pledge option does not belong to this project", ErrValidation)
	}

	session, err := s.pay.CreateCheckoutSession(ctx, payment.CheckoutParams{
		AmountCents:   option.AmountCents,
		Currency:      "usd",
		ProductName:   fmt.Sprintf("%s — %s", project.Title, option.Title),
		CustomerEmail: user.Email,
		SuccessURL:    s.baseURL + "/pledge/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/pledge/cancelled",
		Metadata: map[string]string{
			"user_id":    strconv.FormatInt(int64(userID), 10),
			"project_id": strconv.FormatInt(int64(projectID), 10),
			"option_id":  strconv.FormatInt(int64(pledgeOptionID), 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open checkout session: %w", err)
	}

	pledge := &domain.Pledge{
		UserID:            userID,
		ProjectID:         projectID,
		PledgeOptionID:    pledgeOptionID,
		AmountCents:       option.AmountCents,
		Status:            domain.PledgeStatusPending,
		CheckoutSessionID: session.ID,
	}
	if err := s.pledges.Create(ctx, pledge); err != nil {
		// The orphaned session expires on the processor side; it never
		// produces a reconcilable event because no pledge references it.
		logger.ErrorContext(ctx, "record pending pledge", "session_id", session.ID, "error", err)
		return nil, fmt.Errorf("record pending pledge: %w", err)
	}
	if session.PaymentIntentID != "" {
		if err := s.pledges.SetPaymentIntent(ctx, pledge.ID, session.PaymentIntentID); err != nil {
			return nil, fmt.Errorf("attach payment intent: %w", err)
		}
	}

	logger.InfoContext(ctx, "pledge intent created",
		"pledge_id", pledge.ID, "project_id", projectID, "amount_cents", option.AmountCents, "session_id", session.ID)
	return &CheckoutIntent{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// Reconcile applies a verified payment event. The decision is computed
// from the pledge's current state, then applied through a conditional
// update guarded on PENDING; between the two, a concurrent delivery of
// the same event can win the race, which the guard absorbs silently.
func (s *pledgeService) Reconcile(ctx context.Context, event *payment.Event) error {
	pledge, err := s.pledges.GetByPaymentIntent(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Not ours, or the pending insert lost a race with a very fast
			// webhook. The processor will redeliver; by then the row exists
			// or it never will.
			logger.WarnContext(ctx, "payment event for unknown intent",
				"event_id", event.ID, "payment_intent_id", event.PaymentIntentID, "kind", event.Kind)
			return nil
		}
		return fmt.Errorf("look up pledge for intent %s: %w", event.PaymentIntentID, err)
	}

	switch DecideReconciliation(pledge.Status, event.Kind) {
	case ReconcileComplete:
		moved, err := s.pledges.CompletePending(ctx, pledge.ID, event.PaymentMethodID)
		if err != nil {
			return fmt.Errorf("complete pledge %d: %w", pledge.ID, err)
		}
		if !moved {
			logger.InfoContext(ctx, "pledge already terminal, event ignored", "pledge_id", pledge.ID, "event_id", event.ID)
			return nil
		}
		logger.InfoContext(ctx, "pledge completed",
			"pledge_id", pledge.ID, "project_id", pledge.ProjectID, "amount_cents", pledge.AmountCents, "event_id", event.ID)
		s.sendReceipt(ctx, pledge)

	case ReconcileFail:
		moved, err := s.pledges.FailPending(ctx, pledge.ID, event.PaymentMethodID)
		if err != nil {
			return fmt.Errorf("fail pledge %d: %w", pledge.ID, err)
		}
		if !moved {
			logger.InfoContext(ctx, "pledge already terminal, event ignored", "pledge_id", pledge.ID, "event_id", event.ID)
			return nil
		}
		logger.InfoContext(ctx, "pledge failed", "pledge_id", pledge.ID, "event_id", event.ID)

	default:
		logger.InfoContext(ctx, "payment event is a no-op",
			"pledge_id", pledge.ID, "pledge_status", pledge.Status, "kind", event.Kind, "event_id", event.ID)
	}
	return nil
}

// sendReceipt is best effort; the pledge is already completed.
func (s *pledgeService) sendReceipt(ctx context.Context, pledge *domain.Pledge) {
	user, err := s.users.GetByID(ctx, pledge.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "load user for receipt", "user_id", pledge.UserID, "error", err)
		return
	}
	project, err := s.projects.GetByID(ctx, pledge.ProjectID)
	if err != nil {
		logger.ErrorContext(ctx, "load project for receipt", "project_id", pledge.ProjectID, "error", err)
		return
	}
	if err := s.email.SendPledgeReceipt(ctx, user.Email, user.Name, project.Title, pledge.AmountCents); err != nil {
		logger.ErrorContext(ctx, "send pledge receipt", "pledge_id", pledge.ID, "error", err)
	}
}

func (s *pledgeService) ListUserPledges(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	pledges, total, err := s.pledges.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list pledges for user %d: %w", userID, err)
	}
	return pledges, total, nil
}

func (s *pledgeService) ListProjectPledges(ctx context.Context, actorID, projectID int32, page, pageSize int32) ([]domain.Pledge, int32, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("load project %d: %w", projectID, err)
	}
	role, err := s.access.RoleInCompany(ctx, actorID, project.CompanyID)
	if err != nil {
		return nil, 0, err
	}
	if role == RoleNone {
		return nil, 0, ErrNotAuthorized
	}
	pledges, total, err := s.pledges.ListByProject(ctx, projectID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list pledges for project %d: %w", projectID, err)
	}
	return pledges, total, nil
}
