package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/models"
	"github.com/rtr-ops/backend/internal/service"
)

// ActorHeader names the operator recorded as created_by/updated_by.
const ActorHeader = "X-Actor"

const dateLayout = "2006-01-02"

// Pinger is the health probe of the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Store     Pinger
	Repo      db.Repository
	Importer  *service.Importer
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
	Location  *time.Location
	Timeout   time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	timeout := h.Timeout
	if timeout <= 0 || timeout > 3*time.Second {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// audit reads the acting operator from the X-Actor header, falling back to
// the actor query parameter.
func (h *Handler) audit(c *gin.Context) (models.Audit, bool) {
	actor := strings.TrimSpace(c.GetHeader(ActorHeader))
	if actor == "" {
		actor = strings.TrimSpace(c.Query("actor"))
	}
	audit := models.Audit{CreatedBy: actor, UpdatedBy: actor}
	if err := h.Validator.Struct(audit); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "X-Actor header is required", err.Error())
		return models.Audit{}, false
	}
	return audit, true
}

// asOf is now in the configured timezone, or the as_of query date.
func (h *Handler) asOf(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("as_of"))
	if raw == "" {
		return time.Now().In(h.location()), true
	}
	t, err := time.ParseInLocation(dateLayout, raw, h.location())
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "as_of must be YYYY-MM-DD", err.Error())
		return time.Time{}, false
	}
	return t, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// parseDate reads a calendar date as UTC midnight; empty is nil.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// writeStoreError maps db.ErrNotFound to 404 and everything else to 500.
func writeStoreError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", notFound, nil)
		return
	}
	writeError(c, http.StatusInternalServerError, "DB_ERROR", failed, err.Error())
}

func validateExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}
