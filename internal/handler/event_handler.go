package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/1Kunalvats9/dorry-backend/internal/pkg/response"
	"github.com/1Kunalvats9/dorry-backend/internal/service"
)

type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	events, err := h.events.ListByUser(c.Request.Context(), getUserID(c), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"events": events})
}
