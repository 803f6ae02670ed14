package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-portal-api/internal/apperr"
	"patient-portal-api/internal/store"
)

// RecentLimit caps the notification list.
const RecentLimit = 50

const msgNotificationMissing = "Notification introuvable"

func (h *Handler) ListNotifications(c *gin.Context) {
	list, err := h.store.RecentNotifications(c.Request.Context(), caller(c), RecentLimit)
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list, "unread_count": unread})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.store.UnreadCount(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		h.fail(c, apperr.NotFound(msgNotificationMissing), msgResourceError)
		return
	}
	n, err := h.store.MarkNotificationRead(c.Request.Context(), id, caller(c))
	if errors.Is(err, store.ErrNotFound) {
		err = apperr.NotFound(msgNotificationMissing)
	}
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marquée comme lue",
		"data":    n,
	})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	if _, err := h.store.MarkAllNotificationsRead(c.Request.Context(), caller(c)); err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	okMessage(c, "Toutes les notifications marquées comme lues")
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		h.fail(c, apperr.NotFound(msgNotificationMissing), msgResourceError)
		return
	}
	err := h.store.DeleteNotification(c.Request.Context(), id, caller(c))
	if errors.Is(err, store.ErrNotFound) {
		err = apperr.NotFound(msgNotificationMissing)
	}
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	okMessage(c, "Notification supprimée")
}

func (h *Handler) ClearRead(c *gin.Context) {
	if _, err := h.store.DeleteReadNotifications(c.Request.Context(), caller(c)); err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	okMessage(c, "Notifications lues supprimées")
}
