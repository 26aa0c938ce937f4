package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

type registerRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// RegisterHandler creates an account.
//
// Request payload:
//
//	{
//	  "login": "alice",
//	  "password": "password",
//	  "name": "Alice"
//	}
//
// Responds 201 with the new user id, or 409 when the login is taken.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}

	user, err := s.Accounts.Register(r.Context(), req.Login, req.Password, req.Name)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		Message: fmt.Sprintf("User %s registered successfully", user.Name),
		UserID:  user.ID,
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// LoginHandler exchanges credentials for a JWT. The token is returned in the
// body and also set as the auth_token cookie.
//
// Response payload:
//
//	{
//	  "token": "{jwt}",
//	  "userId": "{uuid}",
//	  "name": "Alice"
//	}
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.Logger, err)
		return
	}

	token, user, err := s.Accounts.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(s.Accounts.Tokens().Expiry().Seconds()),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, UserID: user.ID, Name: user.Name})
}
