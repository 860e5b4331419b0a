// ABOUTME: Outreach repairs reported by Evaluate
// ABOUTME: Callers apply a repair to the lead and persist the result
package lifecycle

import "github.com/harperreed/leadsync/models"

// RepairKind names the correction to apply to a lead's outreach record.
type RepairKind string

const (
	// RepairClearCompletion drops a completion timestamp that has no connected
	// call or text behind it.
	RepairClearCompletion RepairKind = "clear_completion"
	// RepairResetOutreach restarts outreach after a completion has expired.
	RepairResetOutreach RepairKind = "reset_outreach"
)

type Repair struct {
	Kind RepairKind
}

// Apply mutates lead according to the repair. Stage, contact fields and
// attempt counters are never touched.
func (r *Repair) Apply(lead *models.Lead) {
	if r == nil || lead == nil {
		return
	}

	switch r.Kind {
	case RepairClearCompletion:
		lead.ReachOut.CompletedAt = nil
		lead.ReachOut.ReachOutCompletedAt = nil
	case RepairResetOutreach:
		lead.ReachOut.CallsConnected = 0
		lead.ReachOut.TextCount = 0
		lead.ReachOut.EmailSent = false
		lead.ReachOut.TextSent = false
		lead.ReachOut.CallMade = false
		lead.ReachOut.ReachOutCompletedAt = nil
	}
}
