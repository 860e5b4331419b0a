// ABOUTME: Preparation of externally imported leads before they enter the cache
// ABOUTME: Tags source and creation time and assigns ids so the grace window applies
package sync

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/leadsync/models"
)

// PrepareImport returns copies of leads tagged with source, stamped with
// now as CreatedAt when unset, and given a fresh id when they have none.
// Imported leads always start active.
func PrepareImport(leads []models.Lead, source string, now time.Time) []models.Lead {
	out := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if strings.TrimSpace(lead.ID) == "" {
			lead.ID = uuid.New().String()
		}
		if source != "" {
			lead.Source = source
		}
		if lead.CreatedAt == nil {
			created := now
			lead.CreatedAt = &created
		}
		if lead.Stage == "" {
			lead.Stage = models.StageNew
		}
		lead.Archived = false
		lead.UpdatedAt = now
		out = append(out, lead)
	}
	return out
}
