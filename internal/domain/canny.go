package domain

import "time"

// CannyBoard and CannyPost mirror the external feature-request board.
// Rows are replaced wholesale by the sync job; treat them as a
// read-mostly cache, not a source of truth.
type CannyBoard struct {
	ID           int32     `json:"id"`
	CompanyID    int32     `json:"company_id"`
	CannyBoardID string    `json:"canny_board_id"`
	Name         string    `json:"name"`
	PostCount    int32     `json:"post_count"`
	SyncedOn     time.Time `json:"synced_on"`
}

type CannyPost struct {
	ID           int32     `json:"id"`
	CompanyID    int32     `json:"company_id"`
	CannyPostID  string    `json:"canny_post_id"`
	CannyBoardID string    `json:"canny_board_id"`
	Title        string    `json:"title"`
	Details      string    `json:"details"`
	Status       string    `json:"status"`
	Score        int32     `json:"score"`
	// ProjectID links a post to a fundable project once a company
	// promotes it to a campaign.
	ProjectID *int32    `json:"project_id,omitempty"`
	SyncedOn  time.Time `json:"synced_on"`
}

type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "SUCCESS"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
)

type CannySyncLog struct {
	ID         int32       `json:"id"`
	CompanyID  int32       `json:"company_id"`
	Outcome    SyncOutcome `json:"outcome"`
	BoardCount int32       `json:"board_count"`
	PostCount  int32       `json:"post_count"`
	Error      string      `json:"error,omitempty"`
	StartedOn  time.Time   `json:"started_on"`
	FinishedOn time.Time   `json:"finished_on"`
}
