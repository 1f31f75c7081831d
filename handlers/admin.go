package handlers

import (
	"net/http"
	"strconv"

	"calmora/services/tasks"
	"calmora/utils"

	"github.com/gin-gonic/gin"
)

// ForceUnblockSlot clears an external-event block on one slot. Admin only;
// the next sync will re-block it if the external event still overlaps.
func (hb *HandlerBundle) ForceUnblockSlot(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
		Date       string `json:"date" binding:"required"`
		Time       string `json:"time" binding:"required"`
		ActorID    string `json:"actorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	err := hb.Reconciler.ForceUnblockSlot(c.Request.Context(), input.ProviderID, input.Date, input.Time, input.ActorID)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "failed to unblock slot", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked"})
}

// TriggerSync enqueues an immediate calendar sync for one provider. The
// mirror's cooldown still applies, so repeated triggers collapse.
func (hb *HandlerBundle) TriggerSync(c *gin.Context) {
	providerID := c.Param("providerID")
	task, err := tasks.NewCalendarSyncTask(providerID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to build sync task", err.Error())
		return
	}
	if _, err := hb.Queue.EnqueueContext(c.Request.Context(), task); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to enqueue sync", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"providerId": providerID, "status": "sync enqueued"})
}

// ReconcileNow runs reconciliation synchronously for one provider and
// reports what changed.
func (hb *HandlerBundle) ReconcileNow(c *gin.Context) {
	result, err := hb.Reconciler.Reconcile(c.Request.Context(), c.Param("providerID"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "reconciliation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blocked":   result.Blocked,
		"unblocked": result.Unblocked,
		"conflicts": result.Conflicts,
	})
}

// ListConflicts returns the most recent conflict reports.
func (hb *HandlerBundle) ListConflicts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	reports, err := hb.Conflicts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list conflicts", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": reports})
}
