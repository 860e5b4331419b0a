// ABOUTME: Cache-merge pass run before reconciliation
// ABOUTME: Carries cached outreach onto server leads and keeps just-imported cache-only leads
package sync

import (
	"time"

	"github.com/harperreed/leadsync/models"
)

// MergeWithCache returns the server leads in server order, each enriched with
// the cached outreach record when the server sent none. Cached leads with no
// server counterpart are appended only while inside CacheMergeGraceWindow.
func MergeWithCache(serverLeads, cached []models.Lead, now time.Time) []models.Lead {
	pool := make([]models.Lead, len(cached))
	copy(pool, cached)

	matcher := NewLeadMatcher(pool)
	matched := make(map[*models.Lead]bool, len(pool))

	merged := make([]models.Lead, 0, len(serverLeads))
	for _, lead := range serverLeads {
		if hit, ok := matcher.FindMatch(lead); ok {
			matched[hit] = true
			if lead.ReachOut.IsZero() && !hit.ReachOut.IsZero() {
				lead.ReachOut = hit.ReachOut
			}
		}
		merged = append(merged, lead)
	}

	guard := ProtectedSourceGuard{GraceWindow: CacheMergeGraceWindow}
	for i := range pool {
		if matched[&pool[i]] {
			continue
		}
		if guard.WithinGraceWindow(pool[i], now) {
			merged = append(merged, pool[i])
		}
	}

	return merged
}
