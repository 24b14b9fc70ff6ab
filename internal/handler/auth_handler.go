package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"petromanage/internal/event"
	"petromanage/internal/model"
	"petromanage/internal/service"
	"petromanage/internal/token"
	"petromanage/pkg/apierror"
)

type AuthHandler struct {
	auth   *service.AuthService
	otp    *service.OtpService
	issuer *token.Issuer
	events event.Bus
}

func NewAuthHandler(auth *service.AuthService, otp *service.OtpService, issuer *token.Issuer) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp, issuer: issuer}
}

// WithEvents makes h publish an event for every register, login, and
// password-reset outcome.
func (h *AuthHandler) WithEvents(bus event.Bus) *AuthHandler {
	h.events = bus
	return h
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeRequest(w, r, &payload); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	user, err := h.auth.Register(r.Context(), payload.Email, payload.Password, payload.Role, payload.Name)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	h.publish(r, event.Event{Type: event.TypeUserRegistered, UserID: user.ID, Email: user.Email, Role: user.Role})
	writeMessage(w, "User registered successfully")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeRequest(w, r, &payload); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	identity, err := h.auth.Login(r.Context(), payload.Email, payload.Password, payload.Role)
	if err != nil {
		if kind, ok := model.KindOf(err); ok {
			slog.Info("login rejected", "code", kind.Code)
		}
		h.publishFailure(r, event.TypeLoginFailed, payload.Email, payload.Role, err)
		writeError(w, err, http.StatusUnauthorized)
		return
	}

	issued, err := h.issuer.Issue(identity)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	slog.Info("login succeeded", "user_id", identity.UserID, "role", identity.Role)
	h.publish(r, event.Event{Type: event.TypeLoginSucceeded, UserID: identity.UserID, Email: identity.Email, Role: identity.Role})
	writeJSON(w, http.StatusOK, model.LoginResponse{
		Message: "Login Successful",
		Token:   issued.Value,
		UserID:  identity.UserID,
		Name:    identity.Name,
		Role:    identity.Role,
		Email:   identity.Email,
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ForgotPasswordRequest
	if err := decodeRequest(w, r, &payload); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	if _, err := h.otp.ForgotPassword(r.Context(), payload.Email); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	h.publish(r, event.Event{Type: event.TypeOtpIssued, Email: payload.Email})

	writeMessage(w, "OTP generated. Check your email")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if err := decodeRequest(w, r, &payload); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	if err := h.otp.VerifyOtp(r.Context(), payload.Email, payload.Otp, payload.NewPassword); err != nil {
		h.publishFailure(r, event.TypePasswordResetFailed, payload.Email, "", err)
		writeError(w, err, http.StatusBadRequest)
		return
	}

	h.publish(r, event.Event{Type: event.TypePasswordReset, Email: payload.Email})

	writeMessage(w, "Password reset successfully")
}

// Details lists users by the role given in the query string.
func (h *AuthHandler) Details(w http.ResponseWriter, r *http.Request) {
	role := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role")))
	if role != "manager" && role != "admin" {
		writeError(w, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "role must be manager or admin", http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.listRole(w, r, role)
}

func (h *AuthHandler) ManagerDetails(w http.ResponseWriter, r *http.Request) {
	h.listRole(w, r, "manager")
}

func (h *AuthHandler) AdminDetails(w http.ResponseWriter, r *http.Request) {
	h.listRole(w, r, "admin")
}

func (h *AuthHandler) listRole(w http.ResponseWriter, r *http.Request, role string) {
	users, err := h.auth.ListByRole(r.Context(), role)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
