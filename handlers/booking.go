package handlers

import (
	"errors"
	"net/http"

	bookingRepo "calmora/database/repository/booking"
	"calmora/models"
	"calmora/services/arbiter"
	"calmora/timecodec"
	"calmora/utils"

	"github.com/gin-gonic/gin"
)

// ReserveBooking creates a booking, either staged ("reserved", awaiting
// Confirm) or direct-to-"booked".
func (hb *HandlerBundle) ReserveBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
		SubjectID  string `json:"subjectId" binding:"required"`
		Kind       string `json:"kind" binding:"required"`
		Date       string `json:"date" binding:"required"`
		Time       string `json:"time" binding:"required"`
		Staged     bool   `json:"staged"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Arbiter.ReserveOrBook(c.Request.Context(), arbiter.ReserveRequest{
		ProviderID: input.ProviderID,
		SubjectID:  input.SubjectID,
		Kind:       input.Kind,
		Date:       input.Date,
		Time:       input.Time,
		Staged:     input.Staged,
	})
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// ConfirmBooking promotes a staged reservation to "booked".
func (hb *HandlerBundle) ConfirmBooking(c *gin.Context) {
	booking, err := hb.Arbiter.Confirm(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelBooking cancels a future booking and releases its slot.
func (hb *HandlerBundle) CancelBooking(c *gin.Context) {
	var input struct {
		ActorID string `json:"actorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Arbiter.Cancel(c.Request.Context(), c.Param("bookingID"), actorFrom(c, input.ActorID))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// RescheduleBooking moves a booking to a new slot. Inside the short-notice
// window a client request is parked pending approval instead of applied.
func (hb *HandlerBundle) RescheduleBooking(c *gin.Context) {
	var input struct {
		ActorID string `json:"actorId" binding:"required"`
		Date    string `json:"date" binding:"required"`
		Time    string `json:"time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Arbiter.Reschedule(c.Request.Context(), c.Param("bookingID"), input.Date, input.Time, actorFrom(c, input.ActorID))
	if err != nil {
		respondBookingError(c, err)
		return
	}

	if booking.PendingReschedule != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"booking": booking,
			"message": "reschedule requested inside the short-notice window, awaiting approval",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ApproveReschedule applies a parked short-notice reschedule. Admin only.
func (hb *HandlerBundle) ApproveReschedule(c *gin.Context) {
	var input struct {
		ActorID string `json:"actorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Arbiter.ApproveReschedule(c.Request.Context(), c.Param("bookingID"), actorFrom(c, input.ActorID))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ListSubjectBookings returns a subject's bookings across providers, for
// client-facing history views.
func (hb *HandlerBundle) ListSubjectBookings(c *gin.Context) {
	subjectID := c.Param("subjectID")
	bookings, err := hb.Bookings.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load bookings", err.Error())
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"subjectId": subjectID, "bookings": bookings})
}

// actorFrom builds the acting identity. Admin status comes from the route
// group, not the payload, so clients cannot self-elevate.
func actorFrom(c *gin.Context, actorID string) arbiter.Actor {
	return arbiter.Actor{ID: actorID, Admin: c.GetBool("isAdmin")}
}

func respondBookingError(c *gin.Context, err error) {
	switch {
	case arbiter.IsSlotTaken(err) || errors.Is(err, arbiter.ErrSlotContended) || errors.Is(err, bookingRepo.ErrActiveBookingExists):
		utils.JSONError(c, http.StatusConflict, "slot unavailable", err.Error())
	case errors.Is(err, arbiter.ErrSlotNotFound) || errors.Is(err, arbiter.ErrBookingNotFound):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, arbiter.ErrRescheduleLimitExceeded) || errors.Is(err, arbiter.ErrPastOrNonCancellable) || errors.Is(err, arbiter.ErrNoPendingReschedule):
		utils.JSONError(c, http.StatusUnprocessableEntity, "request not allowed", err.Error())
	case errors.Is(err, arbiter.ErrAdminRequired):
		utils.JSONError(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, timecodec.ErrInvalidTimeFormat) || errors.Is(err, timecodec.ErrInvalidDate):
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
