// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/auth"
)

// Handler serves user information for authenticated sessions.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// info is the JSON body. The bearer token is never included.
type info struct {
	IsAuthenticated bool     `json:"isAuthenticated"`
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Permissions     []string `json:"permissions"`
}

// ServeUserInfo returns JSON with the current user's identity and the
// permissions the backend granted at sign-in.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	body := info{Permissions: []string{}}
	if user, ok := auth.CurrentUser(r); ok {
		body.IsAuthenticated = true
		body.ID = user.ID
		body.Name = user.Name
		body.Email = user.Email
		if user.Permissions != nil {
			body.Permissions = user.Permissions
		}
	}
	_ = json.NewEncoder(w).Encode(body)
}
