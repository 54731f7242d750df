// Package httputil holds the JSON response helpers shared by handlers and
// middleware, including the mapping from service errors to status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/rbac-backend/internal/auth"
	"github.com/dom/rbac-backend/internal/domain"
	"github.com/dom/rbac-backend/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// MessageResponse is the body of every error and of plain acknowledgements
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteMessage writes {"message": ...} with the given status code
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Message: message})
}

// Responder turns service errors into HTTP responses
type Responder struct {
	log          logrus.FieldLogger
	exposeErrors bool
}

// NewResponder builds a Responder. exposeErrors includes the error text of
// unexpected failures in 500 bodies and should only be set in development.
func NewResponder(log logrus.FieldLogger, exposeErrors bool) *Responder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Responder{log: log, exposeErrors: exposeErrors}
}

// StatusFor returns the HTTP status for err
func StatusFor(err error) int {
	var dependents *domain.DependentsError
	switch {
	case errors.As(err, &dependents):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateRole),
		errors.Is(err, domain.ErrDuplicatePermission),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidPermission):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrExpiredSession),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrIncorrectPassword):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrPermissionNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error writes the response for err. Unexpected errors are logged and their
// detail suppressed unless exposeErrors is set.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var dependents *domain.DependentsError
	var forbidden *service.ForbiddenError
	switch {
	case errors.As(err, &dependents):
		WriteJSON(w, status, map[string]interface{}{
			"message": dependents.Error(),
			"count":   dependents.Count,
		})
	case errors.As(err, &forbidden):
		body := map[string]interface{}{
			"message":  "You do not have permission to access this resource",
			"userRole": forbidden.UserRole,
		}
		if len(forbidden.RequiredRoles) > 0 {
			body["requiredRoles"] = forbidden.RequiredRoles
		}
		if len(forbidden.RequiredPermissions) > 0 {
			body["requiredPermissions"] = forbidden.RequiredPermissions
		}
		WriteJSON(w, status, body)
	case status == http.StatusInternalServerError:
		rs.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).WithError(err).Error("request failed")

		body := map[string]interface{}{"message": "Internal server error"}
		if rs.exposeErrors {
			body["error"] = err.Error()
		}
		WriteJSON(w, status, body)
	default:
		WriteMessage(w, status, err.Error())
	}
}
