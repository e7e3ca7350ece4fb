package jobs

import (
	"context"
	"time"

	"pledgekit-backend/internal/logger"
)

// ExpireCampaigns completes published projects whose end date has
// passed. Expiry is the one lifecycle transition the system performs on
// its own; everything else is operator-driven.
func (jr *JobRunner) ExpireCampaigns() {
	jr.runWithRecovery("ExpireCampaigns", func() {
		ctx := context.Background()

		query := `
			UPDATE projects
			SET status = 'COMPLETED',
			    updated_on = NOW()
			WHERE status = 'PUBLISHED'
			  AND end_date < $1
			RETURNING id, company_id, goal_cents, amount_pledged_cents
		`

		rows, err := jr.db.QueryContext(ctx, query, time.Now())
		if err != nil {
			logger.Error("Failed to expire campaigns", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var id, companyID int32
			var goal, pledged int64
			if err := rows.Scan(&id, &companyID, &goal, &pledged); err != nil {
				logger.Error("Failed to scan expired campaign", "error", err)
				continue
			}
			logger.Info("Campaign expired", "project_id", id, "company_id", companyID,
				"goal_cents", goal, "amount_pledged_cents", pledged, "funded", pledged >= goal)
			count++
		}

		if err := rows.Err(); err != nil {
			logger.Error("Error iterating expired campaigns", "error", err)
			return
		}

		logger.Info("Expired campaigns", "count", count)
	})
}

// FailStalePledges fails PENDING pledges whose checkout session was
// abandoned. The processor only reports sessions that finish; a closed
// browser tab leaves the pledge pending forever without this sweep.
// The guard on status keeps the sweep safe against a webhook racing in:
// whichever update runs first wins and the other is a no-op.
func (jr *JobRunner) FailStalePledges() {
	jr.runWithRecovery("FailStalePledges", func() {
		ctx := context.Background()

		maxAge := time.Duration(jr.config.Scheduler.StalePledgeAgeHours) * time.Hour
		if maxAge <= 0 {
			maxAge = 24 * time.Hour
		}
		cutoff := time.Now().Add(-maxAge)

		query := `
			UPDATE pledges
			SET status = 'FAILED',
			    updated_on = NOW()
			WHERE status = 'PENDING'
			  AND created_on < $1
			RETURNING id, user_id, project_id
		`

		rows, err := jr.db.QueryContext(ctx, query, cutoff)
		if err != nil {
			logger.Error("Failed to fail stale pledges", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var id, userID, projectID int32
			if err := rows.Scan(&id, &userID, &projectID); err != nil {
				logger.Error("Failed to scan stale pledge", "error", err)
				continue
			}
			logger.Info("Stale pledge failed", "pledge_id", id, "user_id", userID, "project_id", projectID)
			count++
		}

		if err := rows.Err(); err != nil {
			logger.Error("Error iterating stale pledges", "error", err)
			return
		}

		logger.Info("Failed stale pledges", "count", count)
	})
}
