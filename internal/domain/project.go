package domain

import "time"

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusPublished ProjectStatus = "PUBLISHED"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

// Terminal reports whether no further lifecycle transition is legal.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

type ProjectVisibility string

const (
	VisibilityPublic  ProjectVisibility = "PUBLIC"
	VisibilityPrivate ProjectVisibility = "PRIVATE"
)

// MaxCampaignDuration is the farthest out a campaign may end, measured
// from the moment the end date is set or changed.
const MaxCampaignDuration = 30 * 24 * time.Hour

type Project struct {
	ID          int32             `json:"id"`
	CompanyID   int32             `json:"company_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	// GoalCents and AmountPledgedCents are currency minor units.
	// AmountPledgedCents is a cached aggregate maintained exclusively by
	// the pledge reconciler.
	GoalCents          int64             `json:"goal_cents"`
	AmountPledgedCents int64             `json:"amount_pledged_cents"`
	EndDate            time.Time         `json:"end_date"`
	Status             ProjectStatus     `json:"status"`
	Visibility         ProjectVisibility `json:"visibility"`
	CreatedOn          time.Time         `json:"created_on"`
	UpdatedOn          time.Time         `json:"updated_on"`
}

type PledgeOption struct {
	ID          int32     `json:"id"`
	ProjectID   int32     `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Benefits    []string  `json:"benefits"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}
