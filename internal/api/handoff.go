package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/shopagent/internal/handoff"
	"github.com/go-chi/chi/v5"
)

// PullHandoff returns the persisted handoff slot for a topic.
func (h *Handler) PullHandoff(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if topic != handoff.TopicSearchResults && topic != handoff.TopicOrderResults {
		Error(w, http.StatusNotFound, "unknown topic")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	detail, found, err := sess.App.Hub.Pull(r.Context(), topic)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read handoff")
		return
	}
	if !found {
		detail = json.RawMessage("null")
	}
	JSON(w, http.StatusOK, handoff.Event{Topic: topic, Detail: detail})
}
