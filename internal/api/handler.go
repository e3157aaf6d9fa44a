package api

import (
	"github.com/gin-gonic/gin"

	"github.com/classpulse/backend/internal/session"
	"github.com/classpulse/backend/pkg/response"
)

// Handler serves the read-only query surface clients use to reconcile state
// after a page reload, outside the WebSocket channel.
type Handler struct {
	coord *session.Coordinator
}

// NewHandler creates the query handler.
func NewHandler(coord *session.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// PollHistory handles GET /api/poll-history: completed polls, chronological.
func (h *Handler) PollHistory(c *gin.Context) {
	response.OK(c, h.coord.History())
}

// ActivePoll handles GET /api/active-poll: the live poll, or empty data.
func (h *Handler) ActivePoll(c *gin.Context) {
	if poll, ok := h.coord.ActivePoll(); ok {
		response.OK(c, poll)
		return
	}
	response.OK(c, nil)
}

// Students handles GET /api/students: registered students in join order.
func (h *Handler) Students(c *gin.Context) {
	response.OK(c, h.coord.Students())
}
