// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"clomery/internal/account"
	"clomery/internal/metrics"
	"clomery/internal/middleware"
	"clomery/internal/session"
)

// Account groups the sign-up, sign-in and token endpoints.
type Account struct {
	service *account.Service
	metrics *metrics.Metrics
}

// NewAccount creates the account handler group.
func NewAccount(service *account.Service, m *metrics.Metrics) *Account {
	return &Account{service: service, metrics: m}
}

type signUpPayload struct {
	Name     string `json:"name" validate:"required,min=2,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type signInPayload struct {
	Name     string `json:"name" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

// SignUp handles POST /users/signup.
func (h *Account) SignUp(w http.ResponseWriter, r *http.Request) {
	var p signUpPayload
	if !decodeValid(w, r, &p) {
		return
	}

	res, err := h.service.SignUp(r.Context(), p.Name, strings.TrimSpace(p.Email), p.Password, r.UserAgent())
	switch {
	case errors.Is(err, account.ErrNameTaken), errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// SignIn handles POST /users/signin.
func (h *Account) SignIn(w http.ResponseWriter, r *http.Request) {
	var p signInPayload
	if !decodeValid(w, r, &p) {
		return
	}

	res, err := h.service.SignIn(r.Context(), p.Name, p.Password, r.UserAgent())
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		h.metrics.SignIn("invalid")
		writeError(w, http.StatusUnauthorized, err.Error())
	case err != nil:
		h.metrics.SignIn("error")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.metrics.SignIn("ok")
		writeJSON(w, http.StatusOK, res)
	}
}

// SignOut handles POST /users/signout, revoking the presented token.
func (h *Account) SignOut(w http.ResponseWriter, r *http.Request) {
	id, value, ok := session.ParseBearer(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	revoked, err := h.service.SignOut(r.Context(), id, value)
	if err != nil {
		internalError(w, r, "sign out failed", err)
		return
	}
	if !revoked {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HeartBeat handles POST /users/heartbeat, extending the presented token.
func (h *Account) HeartBeat(w http.ResponseWriter, r *http.Request) {
	id, value, ok := session.ParseBearer(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	alive, err := h.service.HeartBeat(r.Context(), id, value)
	if err != nil {
		internalError(w, r, "heartbeat failed", err)
		return
	}
	if !alive {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type avatarPayload struct {
	Avatar int64 `json:"avatar" validate:"required,gt=0"`
}

// Avatar handles POST /users/avatar, pointing the signed-in user's avatar
// at a stored resource.
func (h *Account) Avatar(w http.ResponseWriter, r *http.Request) {
	var p avatarPayload
	if !decodeValid(w, r, &p) {
		return
	}
	tok := middleware.TokenFromCtx(r.Context())
	if tok == nil {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	u, err := h.service.SetAvatar(r.Context(), tok.UserID, p.Avatar)
	if err != nil {
		internalError(w, r, "set avatar failed", err, "user", tok.UserID)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
