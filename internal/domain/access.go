package domain

import "time"

type AccessStatus string

const (
	AccessStatusPending  AccessStatus = "PENDING"
	AccessStatusApproved AccessStatus = "APPROVED"
)

// PrivateAccessGrant lets a user outside a company see that company's
// private projects. (user_id, company_id) is the natural key; requests
// are upserted against it, so re-requesting after a denial simply
// resets the row to PENDING.
type PrivateAccessGrant struct {
	UserID      int32        `json:"user_id"`
	CompanyID   int32        `json:"company_id"`
	AccessType  string       `json:"access_type"`
	Status      AccessStatus `json:"status"`
	IsActive    bool         `json:"is_active"`
	RequestedOn time.Time    `json:"requested_on"`
	UpdatedOn   time.Time    `json:"updated_on"`
}

// Effective reports whether the grant currently confers access.
func (g *PrivateAccessGrant) Effective() bool {
	return g.Status == AccessStatusApproved && g.IsActive
}
