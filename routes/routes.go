package routes

import (
	"net/http"

	"calmora/handlers"
	"calmora/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the client-facing booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	api.Use(middleware.RateLimit(60, 10))
	{
		api.POST("", hb.ReserveBooking)
		api.POST("/:bookingID/confirm", hb.ConfirmBooking)
		api.POST("/:bookingID/cancel", hb.CancelBooking)
		api.POST("/:bookingID/reschedule", hb.RescheduleBooking)
	}
	r.GET("/api/subjects/:subjectID/bookings", hb.ListSubjectBookings)
}

// RegisterProviderRoutes sets up provider management and availability.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers")
	{
		api.POST("", hb.RegisterProvider)
		api.GET("/:providerID", hb.GetProvider)
		api.GET("/:providerID/availability", hb.GetAvailability)
		api.GET("/:providerID/slots/:date", hb.GetDaySlots)
		api.POST("/:providerID/calendar", hb.LinkCalendar)
	}
}

// RegisterAdminRoutes sets up the administrative override endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/admin")
	api.Use(middleware.AdminOnly())
	{
		api.POST("/slots/unblock", hb.ForceUnblockSlot)
		api.POST("/bookings/:bookingID/approve-reschedule", hb.ApproveReschedule)
		api.POST("/providers/:providerID/sync", hb.TriggerSync)
		api.POST("/providers/:providerID/reconcile", hb.ReconcileNow)
		api.GET("/conflicts", hb.ListConflicts)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
