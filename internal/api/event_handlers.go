package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fileshare/internal/models"
)

// EventResponse is one journaled notification. EventType is one of the
// database.Event* constants; the payload shape depends on it.
type EventResponse struct {
	ID        int64           `json:"id" example:"123"`
	EventType string          `json:"event_type" example:"file_transferred_to_you" enums:"file_uploaded,file_deleted,file_restored,file_unlink_failed,file_shared_with_you,share_updated_for_you,share_revoked_for_you,file_transferred_to_you,file_transferred_away,trash_purged"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
}

func newEventResponses(events []models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:        e.ID,
			EventType: e.EventType,
			EventTime: e.EventTime,
			Payload:   e.Payload,
		})
	}
	return out
}

// @Summary      Get new events
// @Description  Returns file events journaled for the caller after the given journal ID, oldest first, at most 100 per call. The same events are pushed on the websocket; use this to catch up after a disconnect.
// @Description  Uploads and trash: file_uploaded, file_deleted, file_restored, file_unlink_failed, trash_purged.
// @Description  Sharing: file_shared_with_you, share_updated_for_you, share_revoked_for_you.
// @Description  Ownership: file_transferred_to_you (recipient), file_transferred_away (previous owner).
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "Journal ID of the last event received. Omit or use 0 to get everything."
// @Success      200    {array}   EventResponse
// @Failure      400    {string}  string "Invalid 'since' parameter"
// @Failure      401    {string}  string "Unauthorized"
// @Failure      500    {string}  string "Internal Server Error"
// @Router       /events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		sinceStr = "0"
	}

	sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil || sinceID < 0 {
		http.Error(w, "Invalid 'since' parameter, must be a non-negative number", http.StatusBadRequest)
		return
	}

	events, err := s.store.GetEventsSince(r.Context(), user.ID, sinceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponses(events))
}
