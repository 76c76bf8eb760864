package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/1Kunalvats9/dorry-backend/internal/pkg/errcode"
	"github.com/1Kunalvats9/dorry-backend/internal/pkg/response"
	"github.com/1Kunalvats9/dorry-backend/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	UseRetrieval   *bool  `json:"use_retrieval"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	useRetrieval := true
	if req.UseRetrieval != nil {
		useRetrieval = *req.UseRetrieval
	}
	result, err := h.chat.Respond(c.Request.Context(), getUserID(c), req.ConversationID, req.Message, useRetrieval)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	convs, err := h.chat.ListConversations(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"conversations": convs})
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) RenameConversation(c *gin.Context) {
	var req renameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chat.RenameConversation(c.Request.Context(), getUserID(c), c.Param("id"), req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": true})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	msgs, err := h.chat.ListMessages(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": msgs})
}
