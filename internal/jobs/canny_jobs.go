package jobs

import (
	"context"

	"pledgekit-backend/internal/logger"
)

// SyncCannyBoards refreshes the feature-board mirror for every company
// with an API key configured.
func (jr *JobRunner) SyncCannyBoards() {
	jr.runWithRecovery("SyncCannyBoards", func() {
		ctx := context.Background()
		if err := jr.services.CannySync.SyncAll(ctx); err != nil {
			logger.Error("Failed to run canny sync sweep", "error", err)
		}
	})
}
