package handler

import "github.com/gin-gonic/gin"

// Mount registers the API under api. gate guards every resource route;
// limit throttles the credential routes.
func (h *Handler) Mount(api gin.IRouter, gate, limit gin.HandlerFunc) {
	authGroup := api.Group("/auth", limit)
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	appts := api.Group("/appointments", gate)
	appts.GET("", h.ListAppointments)
	appts.POST("", h.CreateAppointment)
	appts.PUT("/:id", h.UpdateAppointment)
	appts.DELETE("/:id", h.DeleteAppointment)

	api.GET("/history", gate, h.History)

	docs := api.Group("/doctors", gate)
	docs.GET("/my-doctors", h.MyDoctors)
	docs.GET("/family-doctor", h.FamilyDoctor)

	notes := api.Group("/notifications", gate)
	notes.GET("", h.ListNotifications)
	notes.GET("/unread-count", h.UnreadCount)
	notes.POST("/:id/read", h.MarkRead)
	notes.PUT("/:id/read", h.MarkRead)
	notes.PUT("/mark-all-read", h.MarkAllRead)
	notes.DELETE("/clear-read", h.ClearRead)
	notes.DELETE("/:id", h.DeleteNotification)
}
