package handlers

import (
	"net/http"

	"github.com/dom/rbac-backend/internal/api/httputil"
	"github.com/dom/rbac-backend/internal/api/middleware"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *service.AuthService
	responder   *httputil.Responder
}

func NewAuthHandler(authService *service.AuthService, responder *httputil.Responder) *AuthHandler {
	return &AuthHandler{authService: authService, responder: responder}
}

type RegisterRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	RoleID    uuid.UUID `json:"roleId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type RegisterResponse struct {
	Message string           `json:"message"`
	User    *domain.UserView `json:"user"`
}

type LoginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    *domain.UserView `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" || req.RoleID == uuid.Nil {
		httputil.WriteMessage(w, http.StatusBadRequest, "Email, password and roleId are required")
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		User:    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		ClientIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

// Logout revokes the token given in the body, or in the Authorization header
// when the body has none. It succeeds whether or not a session matched.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.responder.Error(w, r, err)
			return
		}
	}
	if req.Token == "" {
		req.Token, _ = middleware.BearerToken(r)
	}

	if err := h.authService.Logout(r.Context(), req.Token); err != nil {
		h.responder.Error(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		h.responder.Error(w, r, service.ErrMissingToken)
		return
	}

	user, err := h.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
