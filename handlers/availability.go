package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"calmora/models"
	"calmora/timecodec"
	"calmora/utils"

	"github.com/gin-gonic/gin"
)

const availabilityCacheTTL = 30 * time.Second

// SlotView is the client-facing shape of one open slot.
type SlotView struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	DisplayTime string `json:"displayTime"`
}

// GetAvailability lists a provider's open slots for a date range. Results
// are cached briefly; a stale read only risks a conflict error on booking,
// which the arbiter handles anyway.
func (hb *HandlerBundle) GetAvailability(c *gin.Context) {
	providerID := c.Param("providerID")
	from := c.DefaultQuery("from", timecodec.Today())
	to := c.Query("to")
	if to == "" {
		d, err := timecodec.AddDays(from, 6)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
			return
		}
		to = d
	}
	if _, err := timecodec.ParseDate(from); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}
	if _, err := timecodec.ParseDate(to); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	// The repository range is half-open, so the inclusive "to" the client
	// sees becomes an exclusive bound one day later.
	upper, err := timecodec.AddDays(to, 1)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	ctx := c.Request.Context()
	cacheKey := fmt.Sprintf("availability:%s:%s:%s", providerID, from, to)
	if cached, err := hb.Cache.Get(ctx, cacheKey).Result(); err == nil {
		var views []SlotView
		if json.Unmarshal([]byte(cached), &views) == nil {
			c.JSON(http.StatusOK, gin.H{"providerId": providerID, "slots": views})
			return
		}
	}

	slots, err := hb.Slots.ListByProviderRange(ctx, providerID, from, upper)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load availability", err.Error())
		return
	}

	views := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		if !s.Bookable() {
			continue
		}
		display, err := timecodec.ToDisplay12h(s.Time)
		if err != nil {
			display = s.Time
		}
		views = append(views, SlotView{Date: s.Date, Time: s.Time, DisplayTime: display})
	}

	if data, err := json.Marshal(views); err == nil {
		hb.Cache.Set(ctx, cacheKey, data, availabilityCacheTTL)
	}

	c.JSON(http.StatusOK, gin.H{"providerId": providerID, "slots": views})
}

// GetDaySlots returns every slot row for one day including blocked and
// consumed ones, for provider-facing schedule views.
func (hb *HandlerBundle) GetDaySlots(c *gin.Context) {
	providerID := c.Param("providerID")
	date := c.Param("date")
	if _, err := timecodec.ParseDate(date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	next, err := timecodec.AddDays(date, 1)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	slots, err := hb.Slots.ListByProviderRange(c.Request.Context(), providerID, date, next)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load slots", err.Error())
		return
	}
	if slots == nil {
		slots = []models.AvailabilitySlot{}
	}
	c.JSON(http.StatusOK, gin.H{"providerId": providerID, "date": date, "slots": slots})
}
