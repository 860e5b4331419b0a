// ABOUTME: Next-action derivation from a lead's pipeline stage and outreach sub-record
// ABOUTME: Pure evaluation that reports repairs instead of mutating the lead
package lifecycle

import (
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
)

// CompletionTTL is how long a completed outreach stays valid before it resets.
const CompletionTTL = 48 * time.Hour

// Emphasis tells the rendering layer how to present an action label.
type Emphasis string

const (
	EmphasisNone    Emphasis = ""
	EmphasisSuccess Emphasis = "success"
	EmphasisUrgent  Emphasis = "urgent"
)

// Action labels.
const (
	ActionNone             = ""
	ActionAssignStage      = "Assign Stage"
	ActionFollowUp         = "Follow up with lead"
	ActionPrepareQuote     = "Prepare Quote"
	ActionPrepareApp       = "Prepare app."
	ActionSendApplication  = "Send application"
	ActionArchiveLead      = "Archive lead"
	ActionProcessComplete  = "Process complete"
	ActionReviewLead       = "Review lead"
	ActionReachOut         = "Reach out to lead"
	ActionEmailQuoteAndCal = "Email Quote, and make contact"
)

var outreachStages = map[string]bool{
	models.StageQuoted:            true,
	models.StageInfoRequested:     true,
	models.StageLossRunsRequested: true,
	models.StageAppSent:           true,
	models.StageQuoteSent:         true,
	models.StageQuoteSentUnaware:  true,
	models.StageQuoteSentAware:    true,
	models.StageInterested:        true,
}

// outreachLabels is consulted when outreach is outstanding; stages missing here
// fall back to stageLabels.
var outreachLabels = map[string]string{
	models.StageQuoted:            ActionEmailQuoteAndCal,
	models.StageQuoteSentAware:    ActionFollowUp,
	models.StageInfoRequested:     ActionReachOut,
	models.StageLossRunsRequested: ActionReachOut,
	models.StageQuoteSent:         ActionReachOut,
	models.StageQuoteSentUnaware:  ActionReachOut,
	models.StageInterested:        ActionReachOut,
}

var stageLabels = map[string]string{
	models.StageNew:              ActionAssignStage,
	models.StageContactAttempted: ActionFollowUp,
	models.StageInfoReceived:     ActionPrepareQuote,
	models.StageLossRunsReceived: ActionPrepareApp,
	models.StageAppPrepared:      ActionSendApplication,
	models.StageAppSent:          ActionNone,
	models.StageNotInterested:    ActionArchiveLead,
	models.StageClosed:           ActionProcessComplete,
	models.StageConverted:        ActionProcessComplete,
}

// Evaluation is the derived display state for one lead.
type Evaluation struct {
	Action   string
	Emphasis Emphasis
	// Repair is non-nil when the lead's outreach record must be corrected and persisted.
	Repair *Repair
}

// IsOutreachStage reports whether the stage runs through outreach tracking.
func IsOutreachStage(stage string) bool {
	return outreachStages[stage]
}

// Evaluate derives the next action for lead at now using the lead's own stage.
func Evaluate(lead models.Lead, now time.Time) Evaluation {
	return evaluate(lead.Stage, lead, now)
}

// NextAction returns the action label for lead as if it were in stage.
// The lead is never modified; use Evaluate to obtain the repair.
func NextAction(stage string, lead models.Lead, now time.Time) string {
	return evaluate(stage, lead, now).Action
}

func evaluate(stage string, lead models.Lead, now time.Time) Evaluation {
	if !IsOutreachStage(stage) {
		return labelled(staticLabel(stage), nil)
	}

	r := lead.ReachOut
	if r.HasCompletionTimestamp() {
		if !r.HasCorroboratingAction() {
			return labelled(outreachLabel(stage), &Repair{Kind: RepairClearCompletion})
		}

		if r.ReachOutCompletedAt != nil && now.Sub(*r.ReachOutCompletedAt) > CompletionTTL {
			return labelled(outreachLabel(stage), &Repair{Kind: RepairResetOutreach})
		}

		return Evaluation{Action: ActionNone}
	}

	return labelled(outreachLabel(stage), nil)
}

func labelled(action string, repair *Repair) Evaluation {
	return Evaluation{
		Action:   action,
		Emphasis: EmphasisFor(action),
		Repair:   repair,
	}
}

func outreachLabel(stage string) string {
	if label, ok := outreachLabels[stage]; ok {
		return label
	}
	return staticLabel(stage)
}

func staticLabel(stage string) string {
	if label, ok := stageLabels[stage]; ok {
		return label
	}
	return ActionReviewLead
}

// EmphasisFor returns the presentation emphasis carried by an action label.
func EmphasisFor(action string) Emphasis {
	switch {
	case action == ActionProcessComplete:
		return EmphasisSuccess
	case strings.HasPrefix(action, "Reach out"):
		return EmphasisUrgent
	default:
		return EmphasisNone
	}
}
