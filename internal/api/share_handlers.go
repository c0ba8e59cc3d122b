package api

import (
	"net/http"
	"strings"

	"fileshare/internal/permissions"

	"github.com/go-chi/chi/v5"
)

// RecipientRequest names another user either by id or by email.
type RecipientRequest struct {
	UserID int64  `json:"user_id,omitempty" example:"2"`
	Email  string `json:"email,omitempty" example:"bob@example.com"`
}

type ShareRequest struct {
	RecipientRequest
	CanWrite  bool `json:"can_write"`
	CanDelete bool `json:"can_delete"`
}

type UpdateGrantRequest struct {
	CanWrite  bool `json:"can_write"`
	CanDelete bool `json:"can_delete"`
}

func (s *Server) resolveRecipient(r *http.Request, req RecipientRequest) (int64, error) {
	if req.UserID > 0 {
		return req.UserID, nil
	}
	user, err := s.identity.GetByEmail(r.Context(), req.Email)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func validRecipient(req RecipientRequest) bool {
	return req.UserID > 0 || strings.TrimSpace(req.Email) != ""
}

// @Summary      Share a file
// @Description  Grants another user access to a file the caller owns.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId        path      string        true  "File ID"
// @Param        shareRequest  body      ShareRequest  true  "Recipient and flags"
// @Success      201           {object}  models.Grant
// @Failure      400           {string}  string "Bad Request"
// @Failure      403           {string}  string "Only the owner can share"
// @Failure      404           {string}  string "File or recipient not found"
// @Failure      409           {string}  string "File is already shared with this user"
// @Router       /files/{fileId}/share [post]
func (s *Server) ShareFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil || !validRecipient(req.RecipientRequest) {
		http.Error(w, "Invalid request body, provide user_id or email", http.StatusBadRequest)
		return
	}

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	granteeID, err := s.resolveRecipient(r, req.RecipientRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	grant, err := s.sharing.Grant(r.Context(), f, user.ID, granteeID, req.CanWrite, req.CanDelete)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// @Summary      Revoke a share
// @Tags         shares
// @Accept       json
// @Security     BearerAuth
// @Param        fileId            path  string            true  "File ID"
// @Param        recipientRequest  body  RecipientRequest  true  "Recipient"
// @Success      204  {null}    nil "No Content"
// @Failure      403  {string}  string "Only the owner can revoke"
// @Failure      404  {string}  string "File not found or not shared with this user"
// @Router       /files/{fileId}/unshare [post]
func (s *Server) UnshareFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req RecipientRequest
	if err := decodeJSON(r, &req); err != nil || !validRecipient(req) {
		http.Error(w, "Invalid request body, provide user_id or email", http.StatusBadRequest)
		return
	}

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	granteeID, err := s.resolveRecipient(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.sharing.Revoke(r.Context(), f, user.ID, granteeID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Change share flags
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId              path      string              true  "File ID"
// @Param        userId              path      int                 true  "Grantee ID"
// @Param        updateGrantRequest  body      UpdateGrantRequest  true  "New flags"
// @Success      200                 {object}  models.Grant
// @Failure      403                 {string}  string "Only the owner can change shares"
// @Failure      404                 {string}  string "File not found or not shared with this user"
// @Router       /files/{fileId}/grants/{userId} [put]
func (s *Server) UpdateGrantHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	granteeID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req UpdateGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	grant, err := s.sharing.UpdateGrant(r.Context(), f, user.ID, granteeID, req.CanWrite, req.CanDelete)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// @Summary      List who a file is shared with
// @Description  Available to the owner and to roles with manage_files.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200     {array}   database.GrantWithUser
// @Failure      403     {string}  string "Access denied"
// @Failure      404     {string}  string "File not found"
// @Router       /files/{fileId}/grants [get]
func (s *Server) ListGrantsHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.OwnerID != user.ID && !s.perms.RoleHas(user.Role, permissions.ManageFiles) {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	grants, err := s.sharing.ListGrants(r.Context(), f.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// @Summary      Transfer ownership
// @Description  Hands the file to another user. The stored bytes move to the new owner's namespace.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId            path      string            true  "File ID"
// @Param        recipientRequest  body      RecipientRequest  true  "New owner"
// @Success      200               {object}  models.File
// @Failure      400               {string}  string "File already belongs to this user"
// @Failure      403               {string}  string "Only the owner can transfer"
// @Failure      404               {string}  string "File or recipient not found"
// @Failure      409               {string}  string "File changed since it was loaded"
// @Router       /files/{fileId}/transfer [post]
func (s *Server) TransferFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req RecipientRequest
	if err := decodeJSON(r, &req); err != nil || !validRecipient(req) {
		http.Error(w, "Invalid request body, provide user_id or email", http.StatusBadRequest)
		return
	}

	f, err := s.files.Get(r.Context(), user, chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	newOwnerID, err := s.resolveRecipient(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	moved, err := s.sharing.TransferOwnership(r.Context(), f, user.ID, newOwnerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// @Summary      List outgoing shares
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items to return" default(100)
// @Param        offset  query     int  false  "Offset for pagination" default(0)
// @Success      200     {array}   database.OutgoingGrant
// @Failure      401     {string}  string "Unauthorized"
// @Router       /shares/outgoing [get]
func (s *Server) ListOutgoingSharesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	grants, err := s.sharing.ListOutgoing(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}
