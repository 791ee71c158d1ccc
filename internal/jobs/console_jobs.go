package jobs

import "viaje-seguro-partner/internal/logger"

// ExpireIdleCaptures closes capture sessions left open longer than the idle
// timeout so their cameras are released.
func (jr *JobRunner) ExpireIdleCaptures() {
	jr.runWithRecovery("ExpireIdleCaptures", func() {
		cutoff := jr.now().Add(-jr.config.CaptureIdleTimeout())
		expired := jr.services.Captures.ExpireIdle(cutoff)
		if len(expired) > 0 {
			logger.Info("Expired idle capture sessions", "count", len(expired), "bookings", expired)
		}
	})
}

// PruneDashboards drops cached snapshots nobody refreshed within the TTL.
func (jr *JobRunner) PruneDashboards() {
	jr.runWithRecovery("PruneDashboards", func() {
		cutoff := jr.now().Add(-jr.config.SnapshotTTL())
		if pruned := jr.services.Dashboards.PruneSnapshots(cutoff); pruned > 0 {
			logger.Info("Pruned dashboard snapshots", "count", pruned)
		}
	})
}
