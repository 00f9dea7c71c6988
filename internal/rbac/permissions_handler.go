package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalog.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireActor())
		r.Get("/", h.listPermissions)
	})
}

type catalogResponse struct {
	Permissions []PermissionInfo `json:"permissions"`
	Categories  []Category       `json:"categories"`
	Granted     []Permission     `json:"granted"`
	FullAccess  bool             `json:"hasFullSystemAccess"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	resp := catalogResponse{Permissions: Catalog(), Granted: []Permission{}}
	for c := range Categories() {
		resp.Categories = append(resp.Categories, c)
	}
	sort.Slice(resp.Categories, func(i, j int) bool { return resp.Categories[i] < resp.Categories[j] })
	if subject, ok := SubjectFromContext(r.Context()); ok {
		resp.FullAccess = subject.HasFullSystemAccess()
		if eff := Effective(subject.Roles); len(eff) > 0 {
			resp.Granted = eff
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
