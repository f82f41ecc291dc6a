package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quillworks/quill/internal/blog/service"
	"github.com/quillworks/quill/pkg/httpx"
)

// SignupHandler registers new authors.
type SignupHandler struct {
	UserService *service.UserService
}

type signupRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// ServeHTTP accepts a registration and answers 202 once it is queued
// into the store. Duplicate usernames answer 409.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.UserService.Register(r.Context(), req.Username, req.DisplayName, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// LoginHandler exchanges basic-auth credentials for a bearer token.
type LoginHandler struct {
	UserService *service.UserService
	TokenTTL    time.Duration
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ServeHTTP verifies the Basic credentials and returns the token both in
// the Authorization response header and in the body.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="login"`)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_request", "basic credentials required")
		return
	}

	token, err := h.UserService.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.TokenTTL.Seconds()),
	})
}
