package sync

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/models"
)

func TestReconcileViciDialProtectionWins(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet(nil, []string{"42"}, nil)
	now := testNow

	lead := models.Lead{ID: "42", Source: "ViciDial", Archived: false, CreatedAt: &now}
	p := r.Reconcile([]models.Lead{lead}, set, now)

	require.Len(t, p.Active, 1)
	assert.Empty(t, p.Archived)
	assert.Equal(t, "42", p.Active[0].ID)
	assert.False(t, p.Active[0].Archived)
}

func TestReconcileServerArchiveBeatsProtection(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet(nil, []string{"42"}, nil)

	lead := models.Lead{ID: "42", Source: "ViciDial", Archived: true}
	p := r.Reconcile([]models.Lead{lead}, set, testNow)

	assert.Empty(t, p.Active)
	require.Len(t, p.Archived, 1)

	placement, reason := r.Classify(lead, set, testNow)
	assert.Equal(t, PlacementArchived, placement)
	assert.Equal(t, ReasonArchiveMatch, reason, "server-archived ViciDial leads are not protected")
}

func TestReconcileGraceWindowBeatsArchiveMatch(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet([][]models.Lead{{{Phone: "555-123-4567"}}}, nil, nil)

	fresh := models.Lead{ID: "1", Source: "Website", Phone: "5551234567", CreatedAt: createdAgo(time.Minute)}
	stale := models.Lead{ID: "2", Source: "Website", Phone: "5551234567", CreatedAt: createdAgo(24 * time.Hour)}

	placement, reason := r.Classify(fresh, set, testNow)
	assert.Equal(t, PlacementActive, placement)
	assert.Equal(t, ReasonProtected, reason)

	placement, reason = r.Classify(stale, set, testNow)
	assert.Equal(t, PlacementArchived, placement)
	assert.Equal(t, ReasonArchiveMatch, reason)

	// A day-old ViciDial lead is still protected by its source.
	stale.Source = "ViciDial"
	placement, reason = r.Classify(stale, set, testNow)
	assert.Equal(t, PlacementActive, placement)
	assert.Equal(t, ReasonProtected, reason)
}

func TestReconcileGraceWindowServerArchived(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)

	lead := models.Lead{ID: "1", Source: "Website", Archived: true, CreatedAt: createdAgo(time.Minute)}
	placement, reason := r.Classify(lead, BuildArchiveSet(nil, nil, nil), testNow)

	assert.Equal(t, PlacementArchived, placement)
	assert.Equal(t, ReasonServerArchived, reason)
}

func TestReconcilePermanentArchiveIsAbsolute(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet(nil, []string{"7", "8"}, nil)

	leads := []models.Lead{
		{ID: "7", Source: "Website", Stage: models.StageQuoted, CreatedAt: createdAgo(48 * time.Hour)},
		{ID: "8", Source: "Referral"},
		{ID: "9", Source: "Website"},
	}

	p := r.Reconcile(leads, set, testNow)

	require.Len(t, p.Archived, 2)
	assert.Equal(t, "7", p.Archived[0].ID)
	assert.Equal(t, "8", p.Archived[1].ID)
	assert.True(t, p.Archived[0].Archived, "matched leads are flagged archived on output")
	require.Len(t, p.Active, 1)
	assert.Equal(t, "9", p.Active[0].ID)
}

func TestReconcileFlagAndDefault(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet(nil, nil, nil)

	placement, reason := r.Classify(models.Lead{ID: "1", Archived: true}, set, testNow)
	assert.Equal(t, PlacementArchived, placement)
	assert.Equal(t, ReasonFlagged, reason)

	placement, reason = r.Classify(models.Lead{ID: "2"}, set, testNow)
	assert.Equal(t, PlacementActive, placement)
	assert.Equal(t, ReasonDefault, reason)

	// No identity at all is not an error; only the lead's own flag decides.
	placement, reason = r.Classify(models.Lead{}, set, testNow)
	assert.Equal(t, PlacementActive, placement)
	assert.Equal(t, ReasonDefault, reason)
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	set := BuildArchiveSet(nil, []string{"1"}, nil)

	leads := []models.Lead{{ID: "1"}, {ID: "2"}}
	p := r.Reconcile(leads, set, testNow)

	require.Len(t, p.Archived, 1)
	assert.True(t, p.Archived[0].Archived)
	assert.False(t, leads[0].Archived, "input lead must not be modified")
}

func TestReconcileKeepsDuplicates(t *testing.T) {
	r := NewReconciler(DefaultProtectedSource)
	leads := []models.Lead{{ID: "1"}, {ID: "1"}}

	p := r.Reconcile(leads, BuildArchiveSet(nil, nil, nil), testNow)
	assert.Equal(t, 2, p.Len())
}

func randomLeads(rng *rand.Rand, n int) []models.Lead {
	sources := []string{"ViciDial", "Website", "Referral", ""}
	leads := make([]models.Lead, 0, n)
	for i := 0; i < n; i++ {
		lead := models.Lead{
			ID:       fmt.Sprintf("%d", i),
			Source:   sources[rng.IntN(len(sources))],
			Archived: rng.IntN(3) == 0,
			Stage:    models.Stages[rng.IntN(len(models.Stages))],
		}
		if rng.IntN(2) == 0 {
			lead.Phone = fmt.Sprintf("555-%04d", i)
		}
		if rng.IntN(2) == 0 {
			lead.Email = fmt.Sprintf("lead%d@example.com", i)
		}
		if rng.IntN(2) == 0 {
			lead.CreatedAt = createdAgo(time.Duration(rng.IntN(30)) * time.Minute)
		}
		leads = append(leads, lead)
	}
	return leads
}

func TestReconcilePartitionProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	r := NewReconciler(DefaultProtectedSource)

	for round := 0; round < 50; round++ {
		leads := randomLeads(rng, 1+rng.IntN(40))

		var permanent []string
		var explicit []models.Lead
		for _, lead := range leads {
			switch rng.IntN(6) {
			case 0:
				permanent = append(permanent, lead.ID)
			case 1:
				explicit = append(explicit, models.Lead{Phone: lead.Phone, Email: lead.Email})
			}
		}
		set := BuildArchiveSet([][]models.Lead{explicit}, permanent, leads)

		p := r.Reconcile(leads, set, testNow)

		// Totality.
		require.Equal(t, len(leads), p.Len(), "round %d", round)

		// No identity in both namespaces.
		activeIDs := make(map[string]bool)
		for _, lead := range p.Active {
			activeIDs[lead.ID] = true
		}
		for _, lead := range p.Archived {
			assert.False(t, activeIDs[lead.ID], "round %d: lead %s in both namespaces", round, lead.ID)
		}

		// Input order is preserved within each namespace.
		assertOrdered(t, p.Active)
		assertOrdered(t, p.Archived)

		// Permanent ids are archived unless protected and not server-archived.
		permanentSet := make(map[string]bool)
		for _, id := range permanent {
			permanentSet[id] = true
		}
		for _, lead := range p.Active {
			if permanentSet[lead.ID] {
				assert.True(t, r.Guard.IsProtected(lead, testNow) && !lead.Archived,
					"round %d: permanent id %s active without protection", round, lead.ID)
			}
		}

		// Idempotence.
		again := r.Reconcile(leads, set, testNow)
		assert.Equal(t, p, again, "round %d", round)
	}
}

func assertOrdered(t *testing.T, leads []models.Lead) {
	t.Helper()
	prev := -1
	for _, lead := range leads {
		var n int
		_, err := fmt.Sscanf(lead.ID, "%d", &n)
		require.NoError(t, err)
		assert.Greater(t, n, prev, "leads out of input order")
		prev = n
	}
}
