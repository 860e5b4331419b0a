// ABOUTME: The view a client currently has mounted on the orchestrator
// ABOUTME: Decides whether a finished pass needs to be pushed to the renderer
package sync

import "github.com/harperreed/leadsync/models"

// View names.
const (
	ViewLeads     = "leads"
	ViewTodos     = "todos"
	ViewDashboard = "dashboard"
	ViewArchive   = "archive"
	ViewPolicies  = "policies"
	ViewSettings  = "settings"
)

var leadViews = map[string]bool{
	ViewLeads:     true,
	ViewTodos:     true,
	ViewDashboard: true,
	ViewArchive:   true,
}

// ViewContext describes the mounted view and how it presents leads.
type ViewContext struct {
	Name      string
	Filter    string
	SortField string
	SortDesc  bool
}

// DependsOnLeads reports whether the view shows lead data.
func (v ViewContext) DependsOnLeads() bool {
	return leadViews[v.Name]
}

// Renderer receives the new partition after a pass when the mounted view
// depends on lead data.
type Renderer interface {
	Render(view ViewContext, p models.Partition)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(view ViewContext, p models.Partition)

func (f RendererFunc) Render(view ViewContext, p models.Partition) {
	f(view, p)
}
