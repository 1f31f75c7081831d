package handlers

import (
	"net/http"
	"time"

	"calmora/models"
	"calmora/services/tasks"
	"calmora/timecodec"
	"calmora/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RegisterProvider creates a provider and materializes their rolling slot
// window immediately so the new provider is bookable without waiting for
// the nightly roll.
func (hb *HandlerBundle) RegisterProvider(c *gin.Context) {
	var input struct {
		Name         string `json:"name" binding:"required"`
		Timezone     string `json:"timezone"`
		WorkdayStart string `json:"workdayStart" binding:"required"`
		WorkdayEnd   string `json:"workdayEnd" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	start, err := timecodec.ToHMS24(input.WorkdayStart)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid workday start", err.Error())
		return
	}
	end, err := timecodec.ToHMS24(input.WorkdayEnd)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid workday end", err.Error())
		return
	}
	if start >= end {
		utils.JSONError(c, http.StatusBadRequest, "invalid workday", "workday start must precede workday end")
		return
	}

	now := time.Now()
	provider := &models.Provider{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Timezone:           input.Timezone,
		WorkdayStart:       start,
		WorkdayEnd:         end,
		CalendarLinkStatus: models.CalendarLinkNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := hb.Providers.Create(c.Request.Context(), provider); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to create provider", err.Error())
		return
	}

	created, err := hb.Window.EnsureWindow(c.Request.Context(), provider.ID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "provider created but window setup failed", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"provider": provider, "slotsCreated": created})
}

// GetProvider returns one provider's profile and calendar link state.
func (hb *HandlerBundle) GetProvider(c *gin.Context) {
	provider, err := hb.Providers.GetByID(c.Request.Context(), c.Param("providerID"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load provider", err.Error())
		return
	}
	if provider == nil {
		utils.JSONError(c, http.StatusNotFound, "provider not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

// LinkCalendar stores the provider's calendar credential, marks the link
// valid, and enqueues an immediate first sync.
func (hb *HandlerBundle) LinkCalendar(c *gin.Context) {
	providerID := c.Param("providerID")
	var input struct {
		CalendarID   string    `json:"calendarId" binding:"required"`
		AccessToken  string    `json:"accessToken" binding:"required"`
		RefreshToken string    `json:"refreshToken"`
		Expiry       time.Time `json:"expiry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	ctx := c.Request.Context()
	provider, err := hb.Providers.GetByID(ctx, providerID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load provider", err.Error())
		return
	}
	if provider == nil {
		utils.JSONError(c, http.StatusNotFound, "provider not found", "")
		return
	}

	token := &oauth2.Token{
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
		Expiry:       input.Expiry,
	}
	if err := hb.Creds.SaveCalendarCredential(ctx, providerID, token); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to store credential", err.Error())
		return
	}

	if err := hb.Providers.LinkCalendar(ctx, providerID, input.CalendarID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to link calendar", err.Error())
		return
	}

	if task, err := tasks.NewCalendarSyncTask(providerID); err == nil {
		if _, err := hb.Queue.EnqueueContext(ctx, task); err != nil {
			utils.GetLogger().Warn("failed to enqueue initial calendar sync: " + err.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{"providerId": providerID, "calendarLinkStatus": models.CalendarLinkValid})
}
