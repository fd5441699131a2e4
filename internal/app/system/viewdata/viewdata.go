// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/auth"
	"github.com/dalemusser/carehub/internal/app/system/navigation"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	UserName   string
	UserEmail  string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection; empty when the csrf middleware is not mounted.
	CSRFToken string

	// Nav lists the resources the user may view.
	Nav []navigation.Item

	// CanAudit shows the audit log link.
	CanAudit bool

	// Flashes are one-shot notifications popped for this render.
	Flashes []auth.Flash
}

// AuditPermission grants the audit log page.
const AuditPermission = "audit.view"

// menu is set by Init and used to build the resource navigation.
var menu *navigation.Menu

// Init installs the resource menu. Call once at startup from bootstrap.
func Init(m *navigation.Menu) {
	menu = m
}

// NewBaseVM creates a BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    models.DefaultSiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserName = u.Name
		vm.UserEmail = u.Email
		vm.CanAudit = u.Can(AuditPermission)
		if menu != nil {
			vm.Nav = menu.For(u, vm.CurrentPath)
		}
	}
	return vm
}

// WithFlashes pops queued notifications into vm. Call it only on
// responses that render them, so they are not lost.
func (vm BaseVM) WithFlashes(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager) BaseVM {
	if sm != nil {
		vm.Flashes = append(vm.Flashes, sm.PopFlashes(w, r)...)
	}
	return vm
}
