// ABOUTME: Lead identity keys and matching logic
// ABOUTME: Derives kind-tagged id/phone/email/name keys and finds the same lead across lists
package sync

import (
	"strings"
	"unicode"

	"github.com/harperreed/leadsync/models"
)

// IdentityKeys holds the normalized identity of a lead. Absent keys are empty.
// Each key carries its kind as a prefix so keys only collide within one kind.
type IdentityKeys struct {
	ID    string
	Phone string
	Email string
	Name  string
}

// All returns the present keys in id, phone, email, name order.
func (k IdentityKeys) All() []string {
	keys := make([]string, 0, 4)
	for _, key := range []string{k.ID, k.Phone, k.Email, k.Name} {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// IsEmpty reports whether the lead carried no usable identity at all.
func (k IdentityKeys) IsEmpty() bool {
	return k.ID == "" && k.Phone == "" && k.Email == "" && k.Name == ""
}

// ComputeIdentityKeys normalizes a lead's identifying attributes.
func ComputeIdentityKeys(lead models.Lead) IdentityKeys {
	return IdentityKeys{
		ID:    idKey(lead.ID),
		Phone: tagged("phone:", normalizePhone(lead.Phone)),
		Email: tagged("email:", normalizeEmail(lead.Email)),
		Name:  tagged("name:", normalizeName(lead.Name)),
	}
}

func idKey(id string) string {
	return tagged("id:", strings.TrimSpace(id))
}

func tagged(kind, value string) string {
	if value == "" {
		return ""
	}
	return kind + value
}

// normalizePhone keeps only the digits of a phone number.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeEmail converts email to lowercase for comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LeadMatcher indexes leads by every identity key.
type LeadMatcher struct {
	byID    map[string]*models.Lead
	byPhone map[string]*models.Lead
	byEmail map[string]*models.Lead
	byName  map[string]*models.Lead
}

// NewLeadMatcher creates a matcher over leads. Returned matches point into the
// given slice. When several leads share a key the first one wins.
func NewLeadMatcher(leads []models.Lead) *LeadMatcher {
	m := &LeadMatcher{
		byID:    make(map[string]*models.Lead),
		byPhone: make(map[string]*models.Lead),
		byEmail: make(map[string]*models.Lead),
		byName:  make(map[string]*models.Lead),
	}

	for i := range leads {
		m.AddLead(&leads[i])
	}

	return m
}

// FindMatch looks for an indexed lead sharing any identity key with lead,
// trying id, then phone, email and name.
func (m *LeadMatcher) FindMatch(lead models.Lead) (*models.Lead, bool) {
	keys := ComputeIdentityKeys(lead)

	lookups := []struct {
		key   string
		index map[string]*models.Lead
	}{
		{keys.ID, m.byID},
		{keys.Phone, m.byPhone},
		{keys.Email, m.byEmail},
		{keys.Name, m.byName},
	}

	for _, l := range lookups {
		if l.key == "" {
			continue
		}
		if match, ok := l.index[l.key]; ok {
			return match, true
		}
	}

	return nil, false
}

// AddLead indexes a lead that was not part of the initial list.
func (m *LeadMatcher) AddLead(lead *models.Lead) {
	keys := ComputeIdentityKeys(*lead)
	addIfAbsent(m.byID, keys.ID, lead)
	addIfAbsent(m.byPhone, keys.Phone, lead)
	addIfAbsent(m.byEmail, keys.Email, lead)
	addIfAbsent(m.byName, keys.Name, lead)
}

func addIfAbsent(index map[string]*models.Lead, key string, lead *models.Lead) {
	if key == "" {
		return
	}
	if _, exists := index[key]; !exists {
		index[key] = lead
	}
}
