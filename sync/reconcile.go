// ABOUTME: Partitions the server lead list into active and archived namespaces
// ABOUTME: Applies protection, archive-set membership and server flags in fixed precedence
package sync

import (
	"time"

	"github.com/harperreed/leadsync/models"
)

// Placement is the namespace a lead is assigned to.
type Placement string

const (
	PlacementActive   Placement = models.NamespaceActive
	PlacementArchived Placement = models.NamespaceArchived
)

// Reason names the rule that decided a placement.
type Reason string

const (
	ReasonProtected      Reason = "protected"
	ReasonServerArchived Reason = "server_archived"
	ReasonArchiveMatch   Reason = "archive_match"
	ReasonFlagged        Reason = "flagged"
	ReasonDefault        Reason = "default"
)

type Reconciler struct {
	Guard ProtectedSourceGuard
}

// NewReconciler uses the reconciliation grace window for the given protected source.
func NewReconciler(protectedSource string) *Reconciler {
	return &Reconciler{Guard: NewProtectedSourceGuard(protectedSource, ReconcileGraceWindow)}
}

// Classify decides where a single lead belongs.
//
// Precedence:
//  1. protected leads stay active unless the server archived them
//  2. any identity key in the archive set archives the lead
//  3. a lead flagged archived is archived
//  4. everything else is active
func (r *Reconciler) Classify(lead models.Lead, set *ArchiveSet, now time.Time) (Placement, Reason) {
	if r.Guard.IsProtected(lead, now) {
		if lead.Archived {
			return PlacementArchived, ReasonServerArchived
		}
		return PlacementActive, ReasonProtected
	}

	if set.Matches(ComputeIdentityKeys(lead)) {
		return PlacementArchived, ReasonArchiveMatch
	}

	if lead.Archived {
		return PlacementArchived, ReasonFlagged
	}

	return PlacementActive, ReasonDefault
}

// Reconcile partitions serverLeads. Every input lead appears exactly once in
// the result, in input order. Inputs are not modified; leads archived by a
// set match carry Archived=true in the output.
func (r *Reconciler) Reconcile(serverLeads []models.Lead, set *ArchiveSet, now time.Time) models.Partition {
	p := models.Partition{
		Active:   make([]models.Lead, 0, len(serverLeads)),
		Archived: make([]models.Lead, 0),
	}

	for _, lead := range serverLeads {
		placement, reason := r.Classify(lead, set, now)
		if placement == PlacementArchived {
			if reason == ReasonArchiveMatch {
				lead.Archived = true
			}
			p.Archived = append(p.Archived, lead)
			continue
		}
		p.Active = append(p.Active, lead)
	}

	return p
}
