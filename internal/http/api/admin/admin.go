// Package admin registers the operator API surface: account management,
// runtime settings and aggregate statistics.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/config"
	handlers "github.com/gymmind/coach-api/internal/http/api/admin/handlers"
	"github.com/gymmind/coach-api/internal/security"
	"github.com/gymmind/coach-api/internal/store"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, accounts *store.GormAccountStore, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	authed := r.Group("/api/admin")
	authed.Use(adminAuthMiddleware(accounts, jwtCfg))

	statsHandler := handlers.NewStatsHandler(db)
	authed.GET("/stats", statsHandler.Stats)

	accountHandler := handlers.NewAccountHandler(db, accounts)
	authed.GET("/accounts", accountHandler.List)
	authed.GET("/accounts/:id", accountHandler.Get)
	authed.POST("/accounts/:id/disable", accountHandler.Disable)
	authed.POST("/accounts/:id/enable", accountHandler.Enable)
	authed.POST("/accounts/:id/unlock", accountHandler.Unlock)
	authed.PUT("/accounts/:id/plan", accountHandler.SetPlan)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminAuthMiddleware validates account bearer tokens and requires the admin
// flag.
func adminAuthMiddleware(accounts *store.GormAccountStore, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAccountToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		account, errGet := accounts.Get(c.Request.Context(), claims.AccountID)
		if errGet != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if !account.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account deactivated"})
			return
		}
		if !account.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}

		c.Set("accountID", account.ID)
		c.Next()
	}
}
