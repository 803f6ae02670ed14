package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"patient-portal-api/internal/apperr"
	"patient-portal-api/internal/auth"
	"patient-portal-api/internal/middleware"
	"patient-portal-api/internal/model"
	"patient-portal-api/internal/notify"
	"patient-portal-api/internal/store"
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	ListAppointments(ctx context.Context, userID int64) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment, emit store.Emit) (*model.Notification, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment, emit store.Emit) (*model.Notification, error)
	DeleteAppointment(ctx context.Context, id, userID int64, emit store.Emit) (*model.Notification, error)

	PastConsultations(ctx context.Context, userID int64) ([]model.Consultation, error)
	DoctorsForUser(ctx context.Context, userID int64) ([]model.Doctor, error)
	FamilyDoctor(ctx context.Context, userID int64) (*model.Doctor, error)

	RecentNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id, userID int64) error
	DeleteReadNotifications(ctx context.Context, userID int64) (int64, error)
}

var _ Store = (*store.Store)(nil)

type Handler struct {
	store      Store
	tokens     *auth.TokenService
	emitter    *notify.Emitter
	production bool
}

func New(st Store, tokens *auth.TokenService, emitter *notify.Emitter, production bool) *Handler {
	return &Handler{store: st, tokens: tokens, emitter: emitter, production: production}
}

// caller returns the identity the auth gate attached. Routes without the gate
// never reach here.
func caller(c *gin.Context) int64 {
	id, _ := middleware.Identity(c.Request.Context())
	return id.UserID
}

// pathID parses :id. Anything unparseable is indistinguishable from a row the
// caller does not own.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func okMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// fail writes the {success:false} envelope used by the resource routes.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	h.respondErr(c, err, fallback, func(e *apperr.Error) gin.H {
		return gin.H{"success": false, "message": e.Message}
	})
}

// respondErr classifies err, reports internal failures, and writes the body
// built by envelope plus the cause outside production.
func (h *Handler) respondErr(c *gin.Context, err error, fallback string, envelope func(*apperr.Error) gin.H) {
	e := apperr.From(err, fallback)
	if e.Kind == apperr.KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(e.Err).
			Str("route", c.FullPath()).
			Msg(e.Message)
		_ = c.Error(e)
	}
	body := envelope(e)
	if d := e.Detail(h.production); d != "" {
		body["error"] = d
	}
	c.JSON(e.Status(), body)
}
