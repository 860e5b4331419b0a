// ABOUTME: Archive set construction from every source of archive evidence
// ABOUTME: Rebuilt from scratch on each reconciliation pass, never patched
package sync

import (
	"github.com/harperreed/leadsync/models"
)

// ArchiveSet is the union of identity keys known to belong to archived leads.
type ArchiveSet struct {
	keys map[string]struct{}
}

// BuildArchiveSet collects keys from permanent archive ids, explicit archive
// lists and leads in the general pool flagged as archived.
func BuildArchiveSet(explicitLists [][]models.Lead, permanentIDs []string, pool []models.Lead) *ArchiveSet {
	s := &ArchiveSet{keys: make(map[string]struct{})}

	for _, id := range permanentIDs {
		s.add(idKey(models.NormalizeID(id)))
	}

	for _, list := range explicitLists {
		for _, lead := range list {
			s.addKeys(ComputeIdentityKeys(lead))
		}
	}

	for _, lead := range pool {
		if lead.Archived {
			s.addKeys(ComputeIdentityKeys(lead))
		}
	}

	return s
}

func (s *ArchiveSet) addKeys(keys IdentityKeys) {
	for _, key := range keys.All() {
		s.add(key)
	}
}

func (s *ArchiveSet) add(key string) {
	if key != "" {
		s.keys[key] = struct{}{}
	}
}

// Matches reports whether any of the keys is in the set.
func (s *ArchiveSet) Matches(keys IdentityKeys) bool {
	if s == nil {
		return false
	}
	for _, key := range keys.All() {
		if _, ok := s.keys[key]; ok {
			return true
		}
	}
	return false
}

// Len returns the number of distinct keys.
func (s *ArchiveSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
