// ABOUTME: Data models for the lead reconciliation engine
// ABOUTME: Defines Lead, ReachOut, Partition, SyncState and the pipeline stage constants
package models

import (
	"errors"
	"time"
)

// ErrLeadNotFound is returned by lead stores when no cached lead has the given id.
var ErrLeadNotFound = errors.New("lead not found")

type Lead struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	Source    string     `json:"source,omitempty"`
	Stage     string     `json:"stage"`
	Archived  bool       `json:"archived"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	ReachOut  ReachOut   `json:"reachOut"`
	UpdatedAt time.Time  `json:"updatedAt,omitzero"`
}

// ReachOut tracks outreach effort against a lead.
type ReachOut struct {
	CallAttempts        int        `json:"callAttempts"`
	CallsConnected      int        `json:"callsConnected"`
	EmailCount          int        `json:"emailCount"`
	TextCount           int        `json:"textCount"`
	EmailSent           bool       `json:"emailSent,omitempty"`
	TextSent            bool       `json:"textSent,omitempty"`
	CallMade            bool       `json:"callMade,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	ReachOutCompletedAt *time.Time `json:"reachOutCompletedAt,omitempty"`
}

// IsZero reports whether no outreach has been tracked at all.
func (r ReachOut) IsZero() bool {
	return r.CallAttempts == 0 && r.CallsConnected == 0 && r.EmailCount == 0 && r.TextCount == 0 &&
		!r.EmailSent && !r.TextSent && !r.CallMade &&
		r.CompletedAt == nil && r.ReachOutCompletedAt == nil
}

// HasCompletionTimestamp reports whether either completion timestamp is set.
func (r ReachOut) HasCompletionTimestamp() bool {
	return r.CompletedAt != nil || r.ReachOutCompletedAt != nil
}

// HasCorroboratingAction reports whether a connected call or a text backs up a completion.
func (r ReachOut) HasCorroboratingAction() bool {
	return r.CallsConnected > 0 || r.TextCount > 0
}

// Partition is the active/archived split persisted by the lead cache.
// A lead appears in exactly one of the two slices.
type Partition struct {
	Active   []Lead `json:"active"`
	Archived []Lead `json:"archived"`
}

// Len returns the number of leads across both namespaces.
func (p Partition) Len() int {
	return len(p.Active) + len(p.Archived)
}

// All returns active leads followed by archived leads.
func (p Partition) All() []Lead {
	all := make([]Lead, 0, p.Len())
	all = append(all, p.Active...)
	return append(all, p.Archived...)
}

// Cache namespace names.
const (
	NamespaceActive   = "active"
	NamespaceArchived = "archived"
)

// Pipeline stages.
const (
	StageNew               = "new"
	StageContactAttempted  = "contact_attempted"
	StageInfoRequested     = "info_requested"
	StageInfoReceived      = "info_received"
	StageLossRunsRequested = "loss_runs_requested"
	StageLossRunsReceived  = "loss_runs_received"
	StageAppPrepared       = "app_prepared"
	StageAppSent           = "app_sent"
	StageQuoted            = "quoted"
	StageQuoteSent         = "quote_sent"
	StageQuoteSentUnaware  = "quote-sent-unaware"
	StageQuoteSentAware    = "quote-sent-aware"
	StageInterested        = "interested"
	StageNotInterested     = "not-interested"
	StageClosed            = "closed"
	StageConverted         = "converted"
)

// Stages lists every known pipeline stage in workflow order.
var Stages = []string{
	StageNew,
	StageContactAttempted,
	StageInfoRequested,
	StageInfoReceived,
	StageLossRunsRequested,
	StageLossRunsReceived,
	StageAppPrepared,
	StageAppSent,
	StageQuoted,
	StageQuoteSent,
	StageQuoteSentUnaware,
	StageQuoteSentAware,
	StageInterested,
	StageNotInterested,
	StageClosed,
	StageConverted,
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// SyncServiceLeads is the sync_state service name for lead reconciliation.
const SyncServiceLeads = "leads"

type SyncState struct {
	Service      string     `json:"service"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	LastPassID   string     `json:"last_pass_id,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ActiveCount  int        `json:"active_count"`
	ArchiveCount int        `json:"archive_count"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
