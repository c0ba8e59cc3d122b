package api

import (
	"net/http"
)

type PurgeResponse struct {
	Purged int `json:"purged" example:"3"`
}

// @Summary      List trash contents
// @Description  Retrieves the caller's soft-deleted files, most recently deleted first.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items to return" default(100)
// @Param        offset  query     int  false  "Offset for pagination" default(0)
// @Success      200     {array}   models.File
// @Failure      401     {string}  string "Unauthorized"
// @Failure      500     {string}  string "Internal Server Error"
// @Router       /trash [get]
func (s *Server) ListTrashHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	trashed, err := s.files.ListTrash(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trashed)
}

// @Summary      Purge trash
// @Description  Permanently deletes every file in the caller's trash. This action cannot be undone.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PurgeResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /trash/purge [delete]
func (s *Server) PurgeTrashHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	n, err := s.files.PurgeTrash(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Purged: n})
}
