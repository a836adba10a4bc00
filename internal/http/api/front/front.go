// Package front registers the public API surface: account auth, plan
// generation, payments and preferences.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gymmind/coach-api/internal/config"
	"github.com/gymmind/coach-api/internal/gate"
	"github.com/gymmind/coach-api/internal/generator"
	handlers "github.com/gymmind/coach-api/internal/http/api/front/handlers"
	"github.com/gymmind/coach-api/internal/identity"
	"github.com/gymmind/coach-api/internal/mailer"
	"github.com/gymmind/coach-api/internal/ratelimit"
	"github.com/gymmind/coach-api/internal/renderer"
	"github.com/gymmind/coach-api/internal/security"
	"github.com/gymmind/coach-api/internal/store"
)

// Dependencies carries the collaborators the front routes are wired with.
type Dependencies struct {
	DB        *gorm.DB
	Accounts  *store.GormAccountStore
	Gate      *gate.Gate
	Identity  identity.Provider
	Generator generator.Generator
	Renderer  renderer.Renderer
	Mailer    mailer.Mailer
	Limits    *ratelimit.Manager
	JWT       config.JWTConfig
}

// RegisterFrontRoutes registers front routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Dependencies) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Accounts, deps.Gate, deps.Identity, deps.Mailer, deps.JWT)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	preferenceHandler := handlers.NewPreferenceHandler(deps.DB)
	api.POST("/preferences/calculate", preferenceHandler.Calculate)

	paymentHandler := handlers.NewPaymentHandler(deps.DB, deps.Accounts, deps.Gate)
	api.GET("/payment/plans", paymentHandler.Catalog)
	api.POST("/payment/webhook", paymentHandler.Webhook)

	authed := api.Group("")
	authed.Use(accountAuthMiddleware(deps.Accounts, deps.JWT))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/profile", authHandler.Profile)
	authed.PUT("/auth/profile", authHandler.UpdateProfile)
	authed.GET("/auth/can-generate", authHandler.CanGenerate)
	authed.PUT("/auth/change-password", authHandler.ChangePassword)
	authed.DELETE("/auth/deactivate", authHandler.Deactivate)

	planHandler := handlers.NewPlanHandler(deps.DB, deps.Gate, deps.Generator, deps.Renderer, deps.Mailer)

	// Generation sits behind the per-account rate limiter; the window guards
	// the expensive provider call, not the cheap reads.
	limited := authed.Group("")
	limited.Use(rateLimitMiddleware(deps.Limits))
	limited.POST("/plans/diet", planHandler.GenerateDiet)
	limited.POST("/plans/workout", planHandler.GenerateWorkout)

	authed.GET("/plans/user", planHandler.List)
	authed.GET("/plans/limits", planHandler.Limits)
	authed.GET("/plans/:type/:id", planHandler.Get)
	authed.PUT("/plans/:type/:id", planHandler.Update)
	authed.DELETE("/plans/:type/:id", planHandler.Delete)
	authed.POST("/plans/:type/:id/export", planHandler.Export)

	authed.GET("/payment/subscription-status", paymentHandler.SubscriptionStatus)
	authed.POST("/payment/simulate-payment", paymentHandler.SimulatePayment)
	authed.POST("/payment/cancel-subscription", paymentHandler.CancelSubscription)
	authed.GET("/payment/transactions", paymentHandler.Transactions)

	authed.GET("/preferences", preferenceHandler.Get)
	authed.POST("/preferences", preferenceHandler.Save)
	authed.PUT("/preferences", preferenceHandler.Save)
	authed.DELETE("/preferences", preferenceHandler.Delete)
}

// accountAuthMiddleware validates account bearer tokens and loads account
// context.
func accountAuthMiddleware(accounts *store.GormAccountStore, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		c.Set("accountID", account.ID)
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-account request limit from runtime
// settings. A limit of zero disables the check.
func rateLimitMiddleware(manager *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("accountID")
		if manager == nil || accountID == "" {
			c.Next()
			return
		}
		result, errAllow := manager.Allow(c.Request.Context(), ratelimit.AccountKey(accountID))
		if errAllow != nil {
			// Limiter trouble never blocks traffic.
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"reset": result.Reset,
			})
			return
		}
		c.Next()
	}
}
