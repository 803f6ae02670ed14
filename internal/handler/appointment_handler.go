package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"patient-portal-api/internal/apperr"
	"patient-portal-api/internal/model"
	"patient-portal-api/internal/store"
)

const (
	msgAppointmentRequired = "Titre et date obligatoires"
	msgAppointmentMissing  = "Rendez-vous introuvable"
	msgBadStatus           = "Statut invalide"
	msgResourceError       = "Erreur serveur"
)

type appointmentRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	Doctor        string     `json:"doctor"`
	Location      string     `json:"location"`
	AppointmentAt *time.Time `json:"appointment_at" binding:"required"`
	Status        string     `json:"status"`
}

func bindAppointment(c *gin.Context) (*model.Appointment, error) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperr.Validation(msgAppointmentRequired)
	}
	if req.Status != "" && !model.ValidStatus(req.Status) {
		return nil, apperr.Validation(msgBadStatus)
	}
	return &model.Appointment{
		UserID:        caller(c),
		Title:         req.Title,
		Description:   req.Description,
		Doctor:        req.Doctor,
		Location:      req.Location,
		AppointmentAt: *req.AppointmentAt,
		Status:        req.Status,
	}, nil
}

func (h *Handler) ListAppointments(c *gin.Context) {
	list, err := h.store.ListAppointments(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	ok(c, list)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	a, err := bindAppointment(c)
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}

	ctx := c.Request.Context()
	n, err := h.store.CreateAppointment(ctx, a, h.emitter.Created)
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	h.emitter.Dispatch(ctx, n, a)
	ok(c, a)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		h.fail(c, apperr.NotFound(msgAppointmentMissing), msgResourceError)
		return
	}
	a, err := bindAppointment(c)
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	a.ID = id

	ctx := c.Request.Context()
	n, err := h.store.UpdateAppointment(ctx, a, h.emitter.Updated)
	if errors.Is(err, store.ErrNotFound) {
		err = apperr.NotFound(msgAppointmentMissing)
	}
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	h.emitter.Dispatch(ctx, n, a)
	ok(c, a)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		h.fail(c, apperr.NotFound(msgAppointmentMissing), msgResourceError)
		return
	}

	ctx := c.Request.Context()
	var gone *model.Appointment
	n, err := h.store.DeleteAppointment(ctx, id, caller(c), func(a *model.Appointment) *model.Notification {
		gone = a
		return h.emitter.Cancelled(a)
	})
	if errors.Is(err, store.ErrNotFound) {
		err = apperr.NotFound(msgAppointmentMissing)
	}
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	if gone != nil {
		h.emitter.Dispatch(ctx, n, gone)
	}
	okMessage(c, "Supprimé avec succès")
}
