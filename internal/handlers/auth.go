package handlers

import (
	"encoding/json"
	"net/http"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/models"
	"hiddengems-web/internal/services"
)

// SessionCookies sets and clears the browser's session cookie.
type SessionCookies interface {
	SetCookie(w http.ResponseWriter, token string)
	ClearCookie(w http.ResponseWriter)
}

type AuthHandler struct {
	authService *services.AuthService
	cookies     SessionCookies
}

func NewAuthHandler(authService *services.AuthService, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.cookies.SetCookie(w, result.SessionToken)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: result.SessionToken, User: result.Session.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.cookies.SetCookie(w, result.SessionToken)
	writeJSON(w, http.StatusOK, sessionResponse{Token: result.SessionToken, User: result.Session.User})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	session := middleware.GetSession(r.Context())

	if err := h.authService.Logout(r.Context(), sessionID, session); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.cookies.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	writeJSON(w, http.StatusOK, session.User)
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := api.AsError(err); ok {
		handleBackendError(w, r, apiErr)
		return
	}

	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// handleBackendError surfaces backend failures with the backend's own
// status and detail so the page can show them as-is.
func handleBackendError(w http.ResponseWriter, r *http.Request, e *api.Error) {
	switch {
	case e.Kind == api.KindPrecondition:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", e.Error(), r))
	case e.Kind == api.KindValidation:
		writeJSON(w, http.StatusBadGateway, errorResp("INVALID_BACKEND_RESPONSE", e.Error(), r))
	case e.IsNetwork():
		writeJSON(w, http.StatusBadGateway, errorResp("BACKEND_UNAVAILABLE", "The marketplace backend is unreachable", r))
	default:
		writeJSON(w, e.Status, errorResp("BACKEND_ERROR", e.Error(), r))
	}
}
