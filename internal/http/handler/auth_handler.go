package handler

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/Hryurt/dezztech-backend/internal/http/response"
	"github.com/Hryurt/dezztech-backend/internal/observability"
	"github.com/Hryurt/dezztech-backend/internal/security"
	"github.com/Hryurt/dezztech-backend/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
	tokens  *security.TokenCodec
}

func NewAuthHandler(authSvc *service.AuthService, tokens *security.TokenCodec) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, tokens: tokens}
}

func (h *AuthHandler) StartRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required", nil)
		return
	}

	result, err := h.authSvc.StartRegister(r.Context(), email)
	if err != nil {
		observability.RecordAuthEvent(r.Context(), "start_register", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "start_register", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"email":              email,
		"already_registered": result.AlreadyRegistered,
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required", nil)
		return
	}
	if req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "password is required", nil)
		return
	}

	result, err := h.authSvc.Register(r.Context(), email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		observability.RecordAuthEvent(r.Context(), "register", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "register", "success")
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"user_id":  result.UserID,
		"otp_sent": result.OTPSent,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok || strings.TrimSpace(req.Code) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and code are required", nil)
		return
	}

	if err := h.authSvc.VerifyEmail(r.Context(), email, strings.TrimSpace(req.Code)); err != nil {
		observability.RecordAuthEvent(r.Context(), "verify_email", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "verify_email", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "email verified"})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required", nil)
		return
	}

	result, err := h.authSvc.ResendOTP(r.Context(), email)
	if err != nil {
		observability.RecordAuthEvent(r.Context(), "resend_otp", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "resend_otp", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message":          "verification code sent",
		"cooldown_seconds": result.CooldownSeconds,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}

	token, err := h.authSvc.Login(r.Context(), email, req.Password)
	if err != nil {
		observability.RecordAuthEvent(r.Context(), "login", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "login", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.tokens.TTL().Seconds()),
	})
}

// ForgotPassword acknowledges every well-formed request identically so the
// endpoint cannot be used to probe which emails are registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := validEmail(req.Email)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required", nil)
		return
	}

	if err := h.authSvc.ForgotPassword(r.Context(), email); err != nil {
		observability.RecordAuthEvent(r.Context(), "forgot_password", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "forgot_password", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "if the email is registered, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "token and new_password are required", nil)
		return
	}

	if err := h.authSvc.ResetPassword(r.Context(), strings.TrimSpace(req.Token), req.NewPassword); err != nil {
		observability.RecordAuthEvent(r.Context(), "reset_password", "error")
		writeDomainError(w, r, err)
		return
	}
	observability.RecordAuthEvent(r.Context(), "reset_password", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"message": "password has been reset"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	return true
}

// validEmail trims and sanity checks the address. Matching against stored
// emails stays byte-exact; no case folding happens here.
func validEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
