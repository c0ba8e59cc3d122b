package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fileshare/internal/permissions"

	"github.com/go-chi/chi/v5"
)

type UpdateProfileRequest struct {
	Name  string `json:"name" example:"Alice Smith"`
	Email string `json:"email" example:"alice@example.com"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" example:"password123"`
	NewPassword     string `json:"new_password" example:"password456"`
}

type StatsResponse struct {
	OwnedFiles   int64 `json:"owned_files" example:"12"`
	SharedWithMe int64 `json:"shared_with_me" example:"3"`
	TrashedFiles int64 `json:"trashed_files" example:"1"`
	TotalBytes   int64 `json:"total_bytes" example:"1048576"`
}

type CurrentUserResponse struct {
	ID           int64                    `json:"id" example:"1"`
	Email        string                   `json:"email" example:"alice@example.com"`
	Name         string                   `json:"name" example:"Alice"`
	Role         permissions.Role         `json:"role" example:"user"`
	IsVerified   bool                     `json:"is_verified"`
	Capabilities []permissions.Capability `json:"capabilities"`
}

type SetRoleRequest struct {
	Role string `json:"role" example:"manager" enums:"admin,manager,user,guest"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

// @Summary      Get current user info
// @Description  Returns the authenticated user together with the capabilities their role grants.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CurrentUserResponse
// @Failure      401  {string}  string "Unauthorized"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, CurrentUserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		IsVerified:   user.IsVerified,
		Capabilities: s.perms.CapabilitiesOf(user.Role),
	})
}

// @Summary      Update profile
// @Description  Changes name and/or email. A new email must be confirmed again.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        updateProfileRequest  body      UpdateProfileRequest  true  "Profile fields"
// @Success      200                   {object}  models.User
// @Failure      400                   {string}  string "Invalid input"
// @Failure      409                   {string}  string "Email already registered"
// @Router       /me [put]
func (s *Server) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := s.identity.UpdateProfile(r.Context(), user.ID, req.Name, req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// @Summary      Get usage statistics
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatsResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /me/stats [get]
func (s *Server) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	stats, err := s.files.Stats(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		OwnedFiles:   stats.OwnedFiles,
		SharedWithMe: stats.SharedWithMe,
		TrashedFiles: stats.TrashedFiles,
		TotalBytes:   stats.TotalBytes,
	})
}

// @Summary      Change password
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        changePasswordRequest  body  ChangePasswordRequest  true  "Current and new password"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid input"
// @Failure      401  {string}  string "Current password is wrong"
// @Router       /me/password [post]
func (s *Server) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.identity.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Delete account
// @Description  Deletes the account, every owned file and every grant referencing the user.
// @Tags         users
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Router       /me [delete]
func (s *Server) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := s.identity.DeleteAccount(r.Context(), user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of users to return" default(100)
// @Param        offset  query     int  false  "Offset for pagination" default(0)
// @Success      200     {array}   models.User
// @Failure      403     {string}  string "Access denied"
// @Router       /users [get]
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	users, err := s.identity.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	return id, err == nil && id > 0
}

// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        userId          path  int             true  "User ID"
// @Param        setRoleRequest  body  SetRoleRequest  true  "New role"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Unknown role"
// @Failure      403  {string}  string "Access denied"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{userId}/role [put]
func (s *Server) SetUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req SetRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	role, err := permissions.ParseRole(req.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.identity.SetRole(r.Context(), userID, role); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Activate or deactivate a user
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        userId            path  int               true  "User ID"
// @Param        setActiveRequest  body  SetActiveRequest  true  "Desired state"
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Cannot deactivate yourself"
// @Failure      403  {string}  string "Access denied"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{userId}/active [put]
func (s *Server) SetUserActiveHandler(w http.ResponseWriter, r *http.Request) {
	caller := GetUserFromContext(r.Context())
	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req SetActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Active && userID == caller.ID {
		http.Error(w, "Cannot deactivate yourself", http.StatusBadRequest)
		return
	}

	var err error
	if req.Active {
		err = s.identity.Reactivate(r.Context(), userID)
	} else {
		err = s.identity.Deactivate(r.Context(), userID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
