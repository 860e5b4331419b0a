// ABOUTME: Protected-source guard shielding leads from implicit archival
// ABOUTME: Covers the protected lead source and freshly created leads inside a grace window
package sync

import (
	"time"

	"github.com/harperreed/leadsync/models"
)

// DefaultProtectedSource is the dialer integration whose leads are only
// archived on explicit server instruction.
const DefaultProtectedSource = "ViciDial"

// The reconciliation pass and the cache-merge pass use different windows.
const (
	ReconcileGraceWindow  = 10 * time.Minute
	CacheMergeGraceWindow = 5 * time.Minute
)

type ProtectedSourceGuard struct {
	Source      string
	GraceWindow time.Duration
}

// NewProtectedSourceGuard falls back to DefaultProtectedSource when source is empty.
func NewProtectedSourceGuard(source string, window time.Duration) ProtectedSourceGuard {
	if source == "" {
		source = DefaultProtectedSource
	}
	return ProtectedSourceGuard{Source: source, GraceWindow: window}
}

// IsProtected reports whether lead must not be archived by identity matching.
func (g ProtectedSourceGuard) IsProtected(lead models.Lead, now time.Time) bool {
	if g.Source != "" && lead.Source == g.Source && !lead.Archived {
		return true
	}
	return g.WithinGraceWindow(lead, now)
}

// WithinGraceWindow reports whether lead was created less than GraceWindow before now.
func (g ProtectedSourceGuard) WithinGraceWindow(lead models.Lead, now time.Time) bool {
	if lead.CreatedAt == nil || g.GraceWindow <= 0 {
		return false
	}
	return now.Sub(*lead.CreatedAt) < g.GraceWindow
}
