package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"messenger-lab/errors"
	"messenger-lab/services"
)

type AuthHandler struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewAuthHandler(log *slog.Logger, auth services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, auth: auth}
}

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authPayload struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, h.log, errors.ErrMissingField, "register body decode")
		return
	}
	token, user, err := h.auth.Register(body.Username, body.Email, body.Password)
	if err != nil {
		fail(w, h.log, err, "register failed")
		return
	}
	respond(w, http.StatusCreated, "user registered successfully", authPayload{
		Token: string(token),
		User:  user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, h.log, errors.ErrMissingField, "login body decode")
		return
	}
	token, user, err := h.auth.Login(body.Email, body.Password)
	if err != nil {
		fail(w, h.log, err, "login failed")
		return
	}
	respond(w, http.StatusOK, "login successful", authPayload{
		Token: string(token),
		User:  user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(requestUserID(r))
	if err != nil {
		fail(w, h.log, err, "current user lookup failed")
		return
	}
	respond(w, http.StatusOK, "", map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(requestUserID(r)); err != nil {
		fail(w, h.log, err, "logout failed")
		return
	}
	respond(w, http.StatusOK, "logged out successfully", nil)
}
