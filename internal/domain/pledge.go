package domain

import "time"

type PledgeStatus string

const (
	PledgeStatusPending   PledgeStatus = "PENDING"
	PledgeStatusCompleted PledgeStatus = "COMPLETED"
	PledgeStatusCancelled PledgeStatus = "CANCELLED"
	PledgeStatusFailed    PledgeStatus = "FAILED"
)

// Terminal reports whether the pledge has reached a final state. A
// terminal pledge is never transitioned again, regardless of what the
// payment processor redelivers.
func (s PledgeStatus) Terminal() bool {
	return s != PledgeStatusPending
}

type Pledge struct {
	ID             int32        `json:"id"`
	UserID         int32        `json:"user_id"`
	ProjectID      int32        `json:"project_id"`
	PledgeOptionID int32        `json:"pledge_option_id"`
	AmountCents    int64        `json:"amount_cents"`
	Status         PledgeStatus `json:"status"`
	// CheckoutSessionID is set when the row is created, before the user
	// is redirected to the processor. PaymentIntentID arrives with the
	// session and is the reconciliation key for webhook events.
	CheckoutSessionID string    `json:"checkout_session_id"`
	PaymentIntentID   *string   `json:"payment_intent_id,omitempty"`
	PaymentMethodID   *string   `json:"payment_method_id,omitempty"`
	CreatedOn         time.Time `json:"created_on"`
	UpdatedOn         time.Time `json:"updated_on"`
}
