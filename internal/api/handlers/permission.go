package handlers

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/service"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
	responder         *httputil.Responder
}

func NewPermissionHandler(permissionService *service.PermissionService, responder *httputil.Responder) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService, responder: responder}
}

type PermissionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permissionService.List(r.Context())
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, perms)
}

func (h *PermissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrPermissionNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	perm, err := h.permissionService.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, perm)
}

func (h *PermissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	var name, description string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}

	perm, err := h.permissionService.Create(r.Context(), name, description)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, perm)
}

func (h *PermissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrPermissionNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	var req PermissionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	perm, err := h.permissionService.Update(r.Context(), id, service.PermissionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, perm)
}

func (h *PermissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrPermissionNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.permissionService.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Permission deleted successfully")
}
