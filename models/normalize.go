// ABOUTME: Boundary normalization from loosely shaped lead records to the canonical Lead
// ABOUTME: Accepts string or numeric ids, field-name aliases, and several timestamp encodings
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field aliases seen across the server API, imports and older cache entries.
var (
	idFields        = []string{"id", "leadId", "lead_id"}
	nameFields      = []string{"name", "fullName", "full_name"}
	phoneFields     = []string{"phone", "phoneNumber", "phone_number"}
	emailFields     = []string{"email", "emailAddress", "email_address"}
	sourceFields    = []string{"source", "leadSource", "lead_source"}
	stageFields     = []string{"stage", "status", "pipelineStage"}
	archivedFields  = []string{"archived", "isArchived", "is_archived"}
	createdAtFields = []string{"createdAt", "created_at", "dateCreated"}
	updatedAtFields = []string{"updatedAt", "updated_at"}
	reachOutFields  = []string{"reachOut", "reach_out", "outreach"}
	envelopeFields  = []string{"leads", "data", "items"}
)

// minMillisDigits is the shortest digit string read as epoch milliseconds.
// Shorter numeric strings such as "20240101" are not timestamps.
const minMillisDigits = 11

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeLeads parses a server payload into canonical leads. The payload may be a
// bare array or an object wrapping the array under leads, data or items.
// Elements that are not JSON objects are skipped.
func DecodeLeads(data []byte) ([]Lead, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode lead payload: %w", err)
	}

	var records []interface{}
	switch v := payload.(type) {
	case []interface{}:
		records = v
	case map[string]interface{}:
		for _, key := range envelopeFields {
			if arr, ok := v[key].([]interface{}); ok {
				records = arr
				break
			}
		}
		if records == nil {
			return nil, fmt.Errorf("lead payload object has no leads array")
		}
	case nil:
		return []Lead{}, nil
	default:
		return nil, fmt.Errorf("unexpected lead payload type %T", payload)
	}

	leads := make([]Lead, 0, len(records))
	for _, r := range records {
		rec, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		leads = append(leads, NormalizeRecord(rec))
	}
	return leads, nil
}

// NormalizeRecord converts one decoded JSON object into a Lead.
// Missing or malformed fields are left at their zero value.
func NormalizeRecord(rec map[string]interface{}) Lead {
	lead := Lead{
		ID:       NormalizeID(first(rec, idFields)),
		Name:     strings.TrimSpace(asString(first(rec, nameFields))),
		Phone:    strings.TrimSpace(asString(first(rec, phoneFields))),
		Email:    strings.TrimSpace(asString(first(rec, emailFields))),
		Source:   strings.TrimSpace(asString(first(rec, sourceFields))),
		Stage:    strings.ToLower(strings.TrimSpace(asString(first(rec, stageFields)))),
		Archived: asBool(first(rec, archivedFields)),
	}
	lead.CreatedAt = asTime(first(rec, createdAtFields))
	if updated := asTime(first(rec, updatedAtFields)); updated != nil {
		lead.UpdatedAt = *updated
	}

	if sub, ok := first(rec, reachOutFields).(map[string]interface{}); ok {
		lead.ReachOut = normalizeReachOut(sub)
	}

	return lead
}

func normalizeReachOut(sub map[string]interface{}) ReachOut {
	return ReachOut{
		CallAttempts:        asInt(first(sub, []string{"callAttempts", "call_attempts"})),
		CallsConnected:      asInt(first(sub, []string{"callsConnected", "calls_connected"})),
		EmailCount:          asInt(first(sub, []string{"emailCount", "email_count"})),
		TextCount:           asInt(first(sub, []string{"textCount", "text_count"})),
		EmailSent:           asBool(first(sub, []string{"emailSent", "email_sent"})),
		TextSent:            asBool(first(sub, []string{"textSent", "text_sent"})),
		CallMade:            asBool(first(sub, []string{"callMade", "call_made"})),
		CompletedAt:         asTime(first(sub, []string{"completedAt", "completed_at"})),
		ReachOutCompletedAt: asTime(first(sub, []string{"reachOutCompletedAt", "reach_out_completed_at"})),
	}
}

// NormalizeID renders an id that may have arrived as a string or a number.
func NormalizeID(v interface{}) string {
	return strings.TrimSpace(asString(v))
}

func first(rec map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			return formatFloat(f)
		}
		return t.String()
	case float64:
		return formatFloat(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func asTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed
			}
		}
		if len(s) < minMillisDigits {
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromMillis(ms)
		}
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return fromMillis(ms)
		}
	case float64:
		return fromMillis(int64(t))
	case time.Time:
		if !t.IsZero() {
			return &t
		}
	}
	return nil
}

func fromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	ts := time.UnixMilli(ms).UTC()
	return &ts
}
