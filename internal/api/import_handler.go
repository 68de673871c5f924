package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gamedb-api/internal/config"
	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/import
// Accepts a multipart upload in the json_file field or a raw JSON body
func (h *ImportHandler) CreateImport(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.WriteTimeout)
	defer cancel()

	run, err := h.services.Import.RunImport(ctx, doc, actorFrom(c), c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.ImportResponse{
		RunID:        run.ID,
		Status:       run.Status,
		ImportReport: *run.Report(),
	})
}

// readDocument loads the import document within the configured size limit
func (h *ImportHandler) readDocument(c *gin.Context) ([]byte, bool) {
	limit := h.cfg.Import.MaxUploadSize
	tooLarge := fmt.Sprintf("file too large, max size is %d MB", limit/(1024*1024))

	var src io.Reader
	if isMultipart(c) {
		file, header, err := c.Request.FormFile("json_file")
		if err != nil {
			badRequest(c, "json_file", "json_file is required")
			return nil, false
		}
		defer file.Close()

		if header.Size > limit {
			badRequest(c, "json_file", tooLarge)
			return nil, false
		}
		src = file
	} else {
		src = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	doc, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			badRequest(c, "body", tooLarge)
			return nil, false
		}
		h.log.Error().Err(err).Msg("Failed to read import document")
		badRequest(c, "body", "failed to read import document")
		return nil, false
	}
	if int64(len(doc)) > limit {
		badRequest(c, "body", tooLarge)
		return nil, false
	}
	return doc, true
}

// GetImportRun handles GET /v1/imports/:id
func (h *ImportHandler) GetImportRun(c *gin.Context) {
	run, err := h.services.Import.GetImportRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetImportErrors handles GET /v1/imports/:id/errors?format=json|csv
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.services.Import.GetImportRun(c.Request.Context(), runID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	format := c.DefaultQuery("format", "json")
	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"import_errors_%s.csv\"", runID))
		c.Status(http.StatusOK)

		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"position", "message"})
		for i, msg := range run.Errors {
			writer.Write([]string{strconv.Itoa(i), msg})
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to write error report")
		}
	case "json":
		c.JSON(http.StatusOK, gin.H{
			"run_id":      runID,
			"error_count": len(run.Errors),
			"errors":      run.Report().Errors,
		})
	default:
		badRequest(c, "format", "format must be one of: json, csv")
	}
}
