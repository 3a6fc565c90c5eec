package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nirapulse/relay/internal/app"
	"github.com/nirapulse/relay/internal/domain"
)

// NotifyHandler is the coupling point between the out-of-process CRUD
// layer and the relay: after persisting a message or friend-request
// change, the collaborator POSTs here and the event is forwarded to the
// counterpart when it is online. "delivered": false means the target was
// offline, which is a normal outcome.
type NotifyHandler struct {
	Notifier *app.Notifier
}

func (h *NotifyHandler) Message(c *gin.Context) {
	var req struct {
		To      string          `json:"to" binding:"required"`
		Message json.RawMessage `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing to or record"})
		return
	}
	id, err := domain.ParseUserID(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": h.Notifier.NewMessage(id, req.Message)})
}

func (h *NotifyHandler) FriendRequest(c *gin.Context) {
	var req struct {
		To      string          `json:"to" binding:"required"`
		Request json.RawMessage `json:"request" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing to or record"})
		return
	}
	id, err := domain.ParseUserID(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": h.Notifier.FriendRequestReceived(id, req.Request)})
}

func (h *NotifyHandler) FriendAccept(c *gin.Context) {
	var req struct {
		To       string          `json:"to" binding:"required"`
		Acceptor json.RawMessage `json:"acceptor" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing to or record"})
		return
	}
	id, err := domain.ParseUserID(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": h.Notifier.FriendRequestAccepted(id, req.Acceptor)})
}
