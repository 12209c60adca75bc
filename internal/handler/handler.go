package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"appointment-management-api/internal/auth"
	"appointment-management-api/internal/blob"
	"appointment-management-api/internal/middleware"
	"appointment-management-api/internal/model"
	"appointment-management-api/internal/query"
	"appointment-management-api/internal/realtime"
	"appointment-management-api/internal/store"
)

// Store is the persistence surface the handlers consume.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, exceptID string) ([]model.User, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error

	InsertAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, next model.Status) (bool, error)
}

type Handler struct {
	store       Store
	engine      *query.Engine
	tokens      *auth.Manager
	hub         *realtime.Hub
	blobs       blob.Uploader // nil when no blob store is configured
	refreshTTL  time.Duration
	searchQuiet time.Duration
	streams     *liveRegistry
}

func New(st Store, engine *query.Engine, tokens *auth.Manager, hub *realtime.Hub, blobs blob.Uploader, refreshTTL, searchQuiet time.Duration) *Handler {
	return &Handler{
		store:       st,
		engine:      engine,
		tokens:      tokens,
		hub:         hub,
		blobs:       blobs,
		refreshTTL:  refreshTTL,
		searchQuiet: searchQuiet,
		streams:     newLiveRegistry(),
	}
}

// Register wires all routes. Everything under /api except the credential
// endpoints sits behind the auth guard.
func (h *Handler) Register(r *gin.Engine, rl *middleware.RateLimiter) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	creds := r.Group("/api/auth")
	creds.POST("/register", rl.Handle, h.SignUp)
	creds.POST("/login", rl.Handle, h.Login)
	creds.POST("/refresh", h.Refresh)

	api := r.Group("/api", middleware.RequireAuth(h.tokens))
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.GET("/users", h.ListUsers)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.POST("/appointments/:id/accept", h.action(model.StatusAccept))
	api.POST("/appointments/:id/decline", h.action(model.StatusDecline))
	api.POST("/appointments/:id/cancel", h.action(model.StatusCancel))
	api.GET("/appointments/live", h.LiveAppointments)
	api.POST("/live/:stream", h.UpdateLiveParams)
}
