package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"poholowani/internal/api/middleware"
	"poholowani/internal/services"
)

// BoardHandler groups the announcement board and the conversations opened
// against announcements.
type BoardHandler struct {
	announcementService *services.AnnouncementService
	conversationService *services.ConversationService
}

func NewBoardHandler(
	announcementService *services.AnnouncementService,
	conversationService *services.ConversationService,
) *BoardHandler {
	return &BoardHandler{
		announcementService: announcementService,
		conversationService: conversationService,
	}
}

// ListAnnouncements handles GET /api/announcements
func (h *BoardHandler) ListAnnouncements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.announcementService.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list})
}

// GetAnnouncement handles GET /api/announcements/:id
func (h *BoardHandler) GetAnnouncement(c *gin.Context) {
	a, err := h.announcementService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// CreateAnnouncement handles POST /api/announcements
func (h *BoardHandler) CreateAnnouncement(c *gin.Context) {
	var req services.AnnouncementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	a, err := h.announcementService.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAnnouncement handles PUT /api/announcements/:id
func (h *BoardHandler) UpdateAnnouncement(c *gin.Context) {
	var req services.AnnouncementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	a, err := h.announcementService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAnnouncement handles DELETE /api/announcements/:id
func (h *BoardHandler) DeleteAnnouncement(c *gin.Context) {
	if err := h.announcementService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartConversation handles POST /api/announcements/:id/conversations.
// Repeated clicks return the same conversation.
func (h *BoardHandler) StartConversation(c *gin.Context) {
	conv, err := h.conversationService.Start(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListConversations handles GET /api/conversations
func (h *BoardHandler) ListConversations(c *gin.Context) {
	list, err := h.conversationService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// Messages handles GET /api/conversations/:id/messages
func (h *BoardHandler) Messages(c *gin.Context) {
	msgs, err := h.conversationService.Messages(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessageRequest is the body of a new chat message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send handles POST /api/conversations/:id/messages
func (h *BoardHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	msg, err := h.conversationService.Send(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles POST /api/conversations/:id/read
func (h *BoardHandler) MarkRead(c *gin.Context) {
	if err := h.conversationService.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Hide handles DELETE /api/conversations/:id. The conversation comes back
// when the other side writes again.
func (h *BoardHandler) Hide(c *gin.Context) {
	if err := h.conversationService.Hide(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unread handles GET /api/unread. Clients that keep a socket open use
// /ws/unread instead.
func (h *BoardHandler) Unread(c *gin.Context) {
	total, err := h.conversationService.UnreadTotal(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": total})
}
