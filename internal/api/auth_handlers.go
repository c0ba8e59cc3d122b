package api

import (
	"net/http"
	"time"

	"fileshare/internal/auth"
	"fileshare/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Name     string `json:"name" example:"Alice"`
	Password string `json:"password" example:"password123"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
	TokenType   string       `json:"token_type" example:"Bearer"`
	ExpiresIn   int64        `json:"expires_in" example:"3600"`
	User        *models.User `json:"user"`
}

type EmailRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" example:"new-password"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// @Summary      Register a new account
// @Description  Creates an unverified account and emails a confirmation link.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        registerRequest  body      RegisterRequest  true  "Account details"
// @Success      201              {object}  models.User
// @Failure      400              {string}  string "Invalid input"
// @Failure      409              {string}  string "Email already registered"
// @Failure      429              {string}  string "Too many requests"
// @Router       /auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.identity.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// @Summary      Log in
// @Description  Authenticates with email and password and returns a short-lived access token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body      LoginRequest  true  "Login credentials"
// @Success      200           {object}  TokenResponse
// @Failure      400           {string}  string "Invalid request body"
// @Failure      401           {string}  string "Invalid email or password"
// @Failure      403           {string}  string "Account disabled or not verified"
// @Failure      429           {string}  string "Too many requests"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ttl := s.config.JWT.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl / time.Second),
		User:        user,
	})
}

// @Summary      Confirm email address
// @Description  Marks the account as verified. Following the same link twice is harmless.
// @Tags         auth
// @Produce      json
// @Param        token  path      string  true  "Confirmation token"
// @Success      200    {object}  models.User
// @Failure      400    {string}  string "Invalid or expired token"
// @Failure      404    {string}  string "User not found"
// @Router       /auth/confirm/{token} [get]
func (s *Server) ConfirmEmailHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// @Summary      Resend confirmation email
// @Description  Always answers 202 so the endpoint cannot be used to discover which accounts exist.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        emailRequest  body      EmailRequest  true  "Account email"
// @Success      202           {object}  MessageResponse
// @Failure      400           {string}  string "Invalid request body"
// @Router       /auth/resend-verification [post]
func (s *Server) ResendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.identity.ResendVerification(r.Context(), req.Email); err != nil {
		s.log.Error("resend verification failed", zap.Error(err))
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "If the account exists and is unverified, a new link has been sent."})
}

// @Summary      Request a password reset
// @Description  Emails a reset link to active accounts. Always answers 202.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        emailRequest  body      EmailRequest  true  "Account email"
// @Success      202           {object}  MessageResponse
// @Failure      400           {string}  string "Invalid request body"
// @Router       /auth/forgot-password [post]
func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.identity.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.log.Error("password reset request failed", zap.Error(err))
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "If the account exists, a reset link has been sent."})
}

// @Summary      Reset password
// @Description  Sets a new password using the emailed reset token.
// @Tags         auth
// @Accept       json
// @Param        token                 path  string                true  "Reset token"
// @Param        resetPasswordRequest  body  ResetPasswordRequest  true  "New password"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid token or password"
// @Router       /auth/reset-password/{token} [post]
func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.identity.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
