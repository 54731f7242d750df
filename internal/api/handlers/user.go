package handlers

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService *service.UserService
	responder   *httputil.Responder
}

func NewUserHandler(userService *service.UserService, responder *httputil.Responder) *UserHandler {
	return &UserHandler{userService: userService, responder: responder}
}

type CreateUserRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	RoleID    uuid.UUID `json:"roleId"`
	IsActive  *bool     `json:"isActive"`
}

type UpdateUserRequest struct {
	Email          *string    `json:"email"`
	FirstName      *string    `json:"firstName"`
	LastName       *string    `json:"lastName"`
	ProfilePicture *string    `json:"profilePicture"`
	RoleID         *uuid.UUID `json:"roleId"`
	IsActive       *bool      `json:"isActive"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrUserNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if req.RoleID == uuid.Nil {
		httputil.WriteMessage(w, http.StatusBadRequest, "roleId is required")
		return
	}

	user, err := h.userService.Create(r.Context(), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrUserNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	var req UpdateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	user, err := h.userService.Update(r.Context(), id, service.UpdateUserInput{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ProfilePicture: req.ProfilePicture,
		RoleID:         req.RoleID,
		IsActive:       req.IsActive,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrUserNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Password updated successfully")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id", domain.ErrUserNotFound)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "User deleted successfully")
}
