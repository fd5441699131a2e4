package viewdata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/carehub/internal/app/system/catalog"
	"github.com/dalemusser/carehub/internal/app/system/navigation"
	"github.com/dalemusser/carehub/internal/domain/models"
	"github.com/dalemusser/carehub/internal/testutil"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	Init(navigation.NewMenu(catalog.Default(), "/admin"))
	t.Cleanup(func() { Init(nil) })

	vm := NewBaseVM(httptest.NewRequest(http.MethodGet, "/login", nil), "Sign in", "/")
	if vm.IsLoggedIn || vm.CanAudit {
		t.Errorf("anonymous vm = %+v", vm)
	}
	if len(vm.Nav) != 0 {
		t.Errorf("anonymous nav = %+v", vm.Nav)
	}
	if vm.SiteName != models.DefaultSiteName || vm.Title != "Sign in" {
		t.Errorf("SiteName=%q Title=%q", vm.SiteName, vm.Title)
	}
	if vm.CSRFToken != "" {
		t.Errorf("CSRFToken = %q without the csrf middleware", vm.CSRFToken)
	}
}

func TestNewBaseVM_Viewer(t *testing.T) {
	Init(navigation.NewMenu(catalog.Default(), "/admin"))
	t.Cleanup(func() { Init(nil) })

	user := testutil.ViewerUser("zone")
	vm := NewBaseVM(testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/zones", user), "Zones", "/dashboard")
	if !vm.IsLoggedIn || vm.UserName != user.Name || vm.UserEmail != user.Email {
		t.Errorf("user fields = %+v", vm)
	}
	if vm.CanAudit {
		t.Error("viewer without audit.view can audit")
	}
	if len(vm.Nav) != 1 || vm.Nav[0].Name != "zone" || !vm.Nav[0].Active {
		t.Errorf("nav = %+v", vm.Nav)
	}

	admin := NewBaseVM(testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", testutil.AdminUser()), "Dashboard", "/")
	if !admin.CanAudit {
		t.Error("admin cannot audit")
	}
	if len(admin.Nav) != len(catalog.Default().All()) {
		t.Errorf("admin nav has %d items", len(admin.Nav))
	}
}

func TestNewBaseVM_NoMenu(t *testing.T) {
	Init(nil)
	vm := NewBaseVM(testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AdminUser()), "Home", "/")
	if vm.Nav != nil {
		t.Errorf("nav without a menu = %+v", vm.Nav)
	}
}

func TestWithFlashes_NilManager(t *testing.T) {
	vm := BaseVM{}.WithFlashes(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if len(vm.Flashes) != 0 {
		t.Errorf("flashes = %+v", vm.Flashes)
	}
}
