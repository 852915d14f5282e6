package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/models"
	"github.com/rtr-ops/backend/internal/service"
)

type PermitRequest struct {
	TicketID     int64  `json:"ticket_id" validate:"gte=0"`
	PermitNumber string `json:"permit_number" validate:"required"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	ExpireDate   string `json:"expire_date" validate:"omitempty,datetime=2006-01-02"`
}

// PermitView reports the status computed for the request's as-of day, not
// the stored one.
type PermitView struct {
	models.Permit
	Status          models.PermitStatus `json:"status"`
	StoredStatus    models.PermitStatus `json:"stored_status"`
	DaysUntilExpiry *int                `json:"days_until_expiry"`
	TicketIDs       []int64             `json:"ticket_ids"`
}

// @Summary Get a permit by number
// @Tags permits
// @Produce json
// @Param number path string true "permit number"
// @Param as_of query string false "YYYY-MM-DD"
// @Success 200 {object} PermitView
// @Failure 404 {object} map[string]any
// @Router /api/permits/{number} [get]
func (h *Handler) GetPermit(c *gin.Context) {
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	permit, err := h.Repo.FindPermitByNumber(ctx, strings.TrimSpace(c.Param("number")))
	if err != nil {
		writeStoreError(c, err, "Permit not found", "Failed to load permit")
		return
	}
	ids, err := h.Repo.ListPermitTicketIDs(ctx, permit.ID)
	if err != nil {
		writeStoreError(c, err, "Permit not found", "Failed to load permit tickets")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, PermitView{
		Permit:          permit,
		Status:          h.Importer.Lifecycle.StatusOf(permit, asOf),
		StoredStatus:    permit.Status,
		DaysUntilExpiry: service.DaysUntilExpiry(permit.ExpireDate, asOf, h.location()),
		TicketIDs:       ids,
	})
}

// @Summary Create or update a permit
// @Description Upsert by permit number, link the ticket and re-run the annotation guard on every linked ticket
// @Tags permits
// @Accept json
// @Produce json
// @Success 200 {object} service.PermitOutcome
// @Router /api/permits [post]
func (h *Handler) UpsertPermit(c *gin.Context) {
	var req PermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	req.PermitNumber = strings.TrimSpace(req.PermitNumber)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	audit, ok := h.audit(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	// both dates already passed the datetime validator
	start, _ := parseDate(req.StartDate)
	expire, _ := parseDate(req.ExpireDate)

	out, err := h.Importer.Lifecycle.UpsertPermitForTicket(c.Request.Context(), req.TicketID, service.PermitInput{
		Number:     req.PermitNumber,
		StartDate:  start,
		ExpireDate: expire,
	}, audit, asOf)
	if err != nil {
		h.Logger.Error().Err(err).Str("permit_number", req.PermitNumber).Msg("permit upsert failed")
		writeStoreError(c, err, "Ticket not found", "Failed to save permit")
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Refresh permit statuses
// @Tags permits
// @Produce json
// @Success 200 {object} service.RefreshSummary
// @Router /api/permits/refresh [post]
func (h *Handler) RefreshPermits(c *gin.Context) {
	audit, ok := h.audit(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	sum, err := h.Importer.Lifecycle.RefreshPermits(c.Request.Context(), audit, asOf)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Permit refresh failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Re-evaluate a ticket annotation
// @Tags tickets
// @Produce json
// @Param id path int true "ticket id"
// @Success 200 {object} map[string]any
// @Router /api/tickets/{id}/reevaluate [post]
func (h *Handler) ReevaluateTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	audit, ok := h.audit(c)
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	results, err := h.Importer.Lifecycle.ReevaluateTicket(c.Request.Context(), id, audit, asOf)
	if err != nil {
		writeStoreError(c, err, "Ticket not found", "Re-evaluation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket_id": id, "annotations": results})
}

func (h *Handler) DeleteTicket(c *gin.Context) {
	h.softDelete(c, db.EntityTicket, "Ticket not found")
}

func (h *Handler) DeletePermit(c *gin.Context) {
	h.softDelete(c, db.EntityPermit, "Permit not found")
}

func (h *Handler) softDelete(c *gin.Context, entity db.Entity, notFound string) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	audit, ok := h.audit(c)
	if !ok {
		return
	}
	if err := h.Repo.SoftDelete(c.Request.Context(), entity, id, audit.UpdatedBy); err != nil {
		writeStoreError(c, err, notFound, "Delete failed")
		return
	}
	h.Logger.Info().Str("entity", string(entity)).Int64("id", id).Str("actor", audit.UpdatedBy).Msg("soft deleted")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
