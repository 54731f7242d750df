package handlers

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/google/uuid"
)

type RoleHandler struct {
	roleService *service.RoleService
	responder   *httputil.Responder
}

func NewRoleHandler(roleService *service.RoleService, responder *httputil.Responder) *RoleHandler {
	return &RoleHandler{roleService: roleService, responder: responder}
}

type CreateRoleRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	PermissionIDs []uuid.UUID `json:"permissionIds"`
}

// UpdateRoleRequest leaves the permission set alone when permissionIds is
// omitted or null
type UpdateRoleRequest struct {
	Name          *string      `json:"name"`
	Description   *string      `json:"description"`
	PermissionIDs *[]uuid.UUID `json:"permissionIds"`
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrRoleNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	role, err := h.roleService.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	role, err := h.roleService.Create(r.Context(), service.CreateRoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrRoleNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	var req UpdateRoleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	role, err := h.roleService.Update(r.Context(), id, service.UpdateRoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrRoleNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.roleService.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Role deleted successfully")
}
