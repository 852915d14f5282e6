package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rtr-ops/backend/internal/service"
	"github.com/rtr-ops/backend/internal/sheet"
)

type ImportRowsRequest struct {
	Source string     `json:"source"`
	Rows   [][]string `json:"rows" validate:"required,min=1"`
	Force  bool       `json:"force"`
}

type ResolveRequest struct {
	Rows      [][]string `json:"rows" validate:"required,min=1"`
	Fields    []string   `json:"fields" validate:"omitempty,dive,required"`
	Threshold int        `json:"threshold" validate:"gte=0"`
}

type ResolveResponse struct {
	Kind         sheet.Kind       `json:"kind"`
	Resolution   sheet.Resolution `json:"resolution"`
	PartialCount *int             `json:"partial_count,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// @Summary Import an RTR workbook
// @Description Classify every sheet, reconcile ticket sheets row by row and record an import run
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "workbook (.xlsx)"
// @Param force formData bool false "process sheets whose header is below coverage"
// @Param X-Actor header string true "operator"
// @Success 200 {object} service.ImportReport
// @Failure 400 {object} map[string]any
// @Router /api/imports [post]
func (h *Handler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file required", nil)
		return
	}
	if !validateExt(fh.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .xlsx", nil)
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
	force, _ := strconv.ParseBool(c.PostForm("force"))

	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "cannot read upload", err.Error())
		return
	}
	defer f.Close()
	sheets, err := sheet.ReadWorkbook(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "WORKBOOK_ERROR", "Invalid workbook", err.Error())
		return
	}

	report, err := h.Importer.ImportWorkbook(c.Request.Context(), fh.Filename, sheets, audit, asOf, service.ImportOptions{Force: force})
	if err != nil {
		h.Logger.Error().Err(err).Str("source", fh.Filename).Msg("import failed")
		writeError(c, http.StatusInternalServerError, "IMPORT_ERROR", "Import failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Import raw rows
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} service.ImportReport
// @Router /api/imports/rows [post]
func (h *Handler) ImportRows(c *gin.Context) {
	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
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
	source := req.Source
	if source == "" {
		source = "rows"
	}
	report, err := h.Importer.ImportRows(c.Request.Context(), source, req.Rows, audit, asOf, service.ImportOptions{Force: req.Force})
	if err != nil {
		h.Logger.Error().Err(err).Str("source", source).Msg("import failed")
		writeError(c, http.StatusInternalServerError, "IMPORT_ERROR", "Import failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Resolve a header row
// @Description Classify rows against the ticket and financial schemas, or resolve them against the given fields
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} ResolveResponse
// @Router /api/sheets/resolve [post]
func (h *Handler) ResolveSheet(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	var resp ResolveResponse
	var resolveErr error
	if len(req.Fields) > 0 {
		resp.Kind = sheet.KindUnknown
		resp.Resolution, resolveErr = h.Importer.Resolver.Resolve(req.Rows, sheet.CustomSchema(req.Fields, req.Threshold))
	} else {
		cls := h.Importer.Resolver.Classify(req.Rows, h.Importer.TicketSchema, h.Importer.FinancialSchema)
		resp.Kind, resp.Resolution, resolveErr = cls.Kind, cls.Resolution, cls.Err
	}
	if resolveErr != nil {
		resp.Error = resolveErr.Error()
		if n, ok := sheet.PartialCount(resolveErr); ok {
			resp.PartialCount = &n
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Latest import run
// @Tags runs
// @Produce json
// @Success 200 {object} models.ImportRun
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Repo.GetLatestImportRun(c.Request.Context())
	if err != nil {
		writeStoreError(c, err, "No runs found", "Failed to load run")
		return
	}
	c.JSON(http.StatusOK, run)
}
