package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nirapulse/relay/internal/adapters/signal"
	"github.com/nirapulse/relay/internal/app"
	"github.com/nirapulse/relay/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable transport-level id,
// independent of the user identity in the query string.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SecretMiddleware guards the internal notify surface called by the CRUD
// collaborator.
func SecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader("X-Relay-Secret") != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, ctl *signal.Controller, notifier *app.Notifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("NiraPulseSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "relay is running"})
	})

	r.GET("/api/ws", ctl.HandleSocket)

	internal := r.Group("/internal", SecretMiddleware(cfg.Secret))
	nh := &NotifyHandler{Notifier: notifier}
	internal.POST("/notify/message", nh.Message)
	internal.POST("/notify/friend-request", nh.FriendRequest)
	internal.POST("/notify/friend-accept", nh.FriendAccept)

	return r
}
