// ABOUTME: Read-path action board built from cached leads
// ABOUTME: Evaluates next actions and persists any outreach repairs the evaluation asks for
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/lifecycle"
	"github.com/harperreed/leadsync/models"
)

// ActionRow is one lead with its derived next action.
type ActionRow struct {
	Lead     models.Lead          `json:"lead"`
	Action   string               `json:"action"`
	Emphasis lifecycle.Emphasis   `json:"emphasis,omitempty"`
	Repair   lifecycle.RepairKind `json:"repair,omitempty"`
}

// Repaired reports whether the lead's outreach record was corrected.
func (r ActionRow) Repaired() bool {
	return r.Repair != ""
}

// LeadSaver persists a single repaired lead.
type LeadSaver interface {
	SaveLead(ctx context.Context, lead models.Lead) error
}

// BuildActionBoard evaluates every lead at now. Repairs are applied to the row's
// lead and saved through store; save failures are joined and returned after all
// rows are built.
func BuildActionBoard(ctx context.Context, store LeadSaver, leads []models.Lead, now time.Time) ([]ActionRow, error) {
	rows := make([]ActionRow, 0, len(leads))
	var errs []error

	for _, lead := range leads {
		eval := lifecycle.Evaluate(lead, now)
		row := ActionRow{Lead: lead, Action: eval.Action, Emphasis: eval.Emphasis}

		if eval.Repair != nil {
			eval.Repair.Apply(&row.Lead)
			row.Repair = eval.Repair.Kind
			if store != nil {
				if err := store.SaveLead(ctx, row.Lead); err != nil {
					errs = append(errs, fmt.Errorf("failed to save repaired lead %s: %w", lead.ID, err))
				}
			}
		}

		rows = append(rows, row)
	}

	return rows, errors.Join(errs...)
}

// ActionBoard builds the board for leads using the orchestrator's clock and
// records repairs in its metrics.
func (o *Orchestrator) ActionBoard(ctx context.Context, leads []models.Lead) ([]ActionRow, error) {
	rows, err := BuildActionBoard(ctx, guardedSaver{o}, leads, o.now())
	for _, row := range rows {
		if row.Repaired() {
			o.metrics.RecordRepair(ctx, string(row.Repair))
		}
	}
	return rows, err
}

// guardedSaver saves repairs under the orchestrator's write lock.
type guardedSaver struct {
	o *Orchestrator
}

func (g guardedSaver) SaveLead(ctx context.Context, lead models.Lead) error {
	return g.o.Mutate(ctx, func(ctx context.Context) error {
		return g.o.store.SaveLead(ctx, lead)
	})
}
