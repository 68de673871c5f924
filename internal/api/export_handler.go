package api

import (
	"bytes"
	"net/http"

	"github.com/gamedb-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportFilename is the download name of the JSON export
const ExportFilename = "games_export.json"

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// Export handles GET /v1/export
// The document is rendered fully before any byte is sent so failures can still return 500
func (h *ExportHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.services.Export.WriteExport(c.Request.Context(), &buf); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}
