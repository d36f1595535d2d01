package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Hryurt/dezztech-backend/internal/http/middleware"
	"github.com/Hryurt/dezztech-backend/internal/http/response"
	"github.com/Hryurt/dezztech-backend/internal/observability"
	"github.com/Hryurt/dezztech-backend/internal/repository"
	"github.com/Hryurt/dezztech-backend/internal/service"
)

type ProfileHandler struct {
	profileSvc *service.ProfileService
}

func NewProfileHandler(profileSvc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	observability.RecordProfileEvent(r.Context(), "me", "success")
	response.JSON(w, r, http.StatusOK, user)
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "current_password and new_password are required", nil)
		return
	}

	if err := h.profileSvc.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		observability.RecordProfileEvent(r.Context(), "change_password", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordProfileEvent(r.Context(), "change_password", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "password updated"})
}

func (h *ProfileHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	var req struct {
		NewEmail        string `json:"new_email"`
		CurrentPassword string `json:"current_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	newEmail, valid := validEmail(req.NewEmail)
	if !valid || req.CurrentPassword == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "new_email and current_password are required", nil)
		return
	}

	if err := h.profileSvc.RequestEmailChange(r.Context(), user.ID, newEmail, req.CurrentPassword); err != nil {
		observability.RecordProfileEvent(r.Context(), "email_change_request", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordProfileEvent(r.Context(), "email_change_request", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":       "verification code sent to the new address",
		"pending_email": newEmail,
	})
}

func (h *ProfileHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}

	if err := h.profileSvc.ConfirmEmailChange(r.Context(), user.ID, strings.TrimSpace(req.Code)); err != nil {
		observability.RecordProfileEvent(r.Context(), "email_change_confirm", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordProfileEvent(r.Context(), "email_change_confirm", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "email address updated"})
}

func (h *ProfileHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "password is required", nil)
		return
	}

	if err := h.profileSvc.DeactivateAccount(r.Context(), user.ID, req.Password); err != nil {
		observability.RecordProfileEvent(r.Context(), "deactivate", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordProfileEvent(r.Context(), "deactivate", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "account deactivated"})
}

func (h *ProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}

	page := repository.PageRequest{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
	}
	result, err := h.profileSvc.ListUsers(r.Context(), user.Role, page)
	if err != nil {
		observability.RecordProfileEvent(r.Context(), "admin_list_users", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordProfileEvent(r.Context(), "admin_list_users", "success")
	response.JSON(w, r, http.StatusOK, result)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
