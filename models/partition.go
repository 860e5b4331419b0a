// ABOUTME: User-action mutations on the active/archived partition
// ABOUTME: Shared by every lead cache backend so both namespaces change together
package models

import (
	"strings"
	"time"
)

// Find returns the first lead with id and the namespace holding it.
func (p Partition) Find(id string) (Lead, string, bool) {
	id = strings.TrimSpace(id)
	for _, l := range p.Active {
		if l.ID == id {
			return l, NamespaceActive, true
		}
	}
	for _, l := range p.Archived {
		if l.ID == id {
			return l, NamespaceArchived, true
		}
	}
	return Lead{}, "", false
}

// Update overwrites every lead sharing lead.ID in place.
func (p *Partition) Update(lead Lead) bool {
	found := false
	for _, ns := range [][]Lead{p.Active, p.Archived} {
		for i := range ns {
			if ns[i].ID == lead.ID {
				ns[i] = lead
				found = true
			}
		}
	}
	return found
}

// Archive moves leads with id from active to archived and flags them.
// Archiving an already archived lead is a no-op.
func (p *Partition) Archive(id string, now time.Time) error {
	var moved []Lead
	p.Active, moved = take(p.Active, strings.TrimSpace(id))
	if len(moved) == 0 {
		if _, ns, ok := p.Find(id); ok && ns == NamespaceArchived {
			return nil
		}
		return ErrLeadNotFound
	}

	for _, l := range moved {
		l.Archived = true
		l.UpdatedAt = now
		p.Archived = append(p.Archived, l)
	}
	return nil
}

// Unarchive moves leads with id from archived back to active.
func (p *Partition) Unarchive(id string, now time.Time) error {
	var moved []Lead
	p.Archived, moved = take(p.Archived, strings.TrimSpace(id))
	if len(moved) == 0 {
		if _, ns, ok := p.Find(id); ok && ns == NamespaceActive {
			return nil
		}
		return ErrLeadNotFound
	}

	for _, l := range moved {
		l.Archived = false
		l.UpdatedAt = now
		p.Active = append(p.Active, l)
	}
	return nil
}

// Remove drops every lead with id from both namespaces and returns how many were removed.
func (p *Partition) Remove(id string) int {
	id = strings.TrimSpace(id)
	var fromActive, fromArchived []Lead
	p.Active, fromActive = take(p.Active, id)
	p.Archived, fromArchived = take(p.Archived, id)
	return len(fromActive) + len(fromArchived)
}

func take(leads []Lead, id string) (kept, taken []Lead) {
	kept = make([]Lead, 0, len(leads))
	for _, l := range leads {
		if l.ID == id {
			taken = append(taken, l)
			continue
		}
		kept = append(kept, l)
	}
	return kept, taken
}
