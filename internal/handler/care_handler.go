package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-portal-api/internal/apperr"
)

func (h *Handler) History(c *gin.Context) {
	list, err := h.store.PastConsultations(c.Request.Context(), caller(c))
	if err != nil {
		h.respondErr(c, err, "Impossible de récupérer l'historique", func(e *apperr.Error) gin.H {
			return gin.H{"status": "error", "message": e.Message}
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": list})
}

func (h *Handler) MyDoctors(c *gin.Context) {
	list, err := h.store.DoctorsForUser(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	ok(c, list)
}

// FamilyDoctor never fails for a patient without doctors; it reports that none
// is assigned.
func (h *Handler) FamilyDoctor(c *gin.Context) {
	d, err := h.store.FamilyDoctor(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, msgResourceError)
		return
	}
	if d == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    nil,
			"message": "Aucun médecin de famille assigné",
		})
		return
	}
	ok(c, d)
}
