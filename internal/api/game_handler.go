package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/service"
	"github.com/gamedb-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GameHandler handles catalog endpoints
type GameHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(services *service.Services, log zerolog.Logger) *GameHandler {
	return &GameHandler{
		services: services,
		log:      log.With().Str("handler", "game").Logger(),
	}
}

// ListGames handles GET /v1/games?genre=&page=&limit=
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.services.Catalog.ListGames(c.Request.Context(), c.Query("genre"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page, limit := pageParams(c)
	c.JSON(http.StatusOK, paginate(games, page, limit))
}

// ListGenres handles GET /v1/games/genres
func (h *GameHandler) ListGenres(c *gin.Context) {
	genres, err := h.services.Catalog.ListGenres(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// TopGames handles GET /v1/games/top?n=
func (h *GameHandler) TopGames(c *gin.Context) {
	games, err := h.services.Catalog.TopGames(c.Request.Context(), ParseTopN(c.Query("n")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": games})
}

// GetGame handles GET /v1/games/:id
func (h *GameHandler) GetGame(c *gin.Context) {
	detail, err := h.services.Catalog.GetGameDetail(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateGame handles POST /v1/games (JSON, or multipart with a cover file)
func (h *GameHandler) CreateGame(c *gin.Context) {
	input, cover, ok := h.bindGame(c)
	if !ok {
		return
	}

	game, err := h.services.Catalog.CreateGame(c.Request.Context(), input, cover, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

// UpdateGame handles PUT /v1/games/:id
func (h *GameHandler) UpdateGame(c *gin.Context) {
	input, cover, ok := h.bindGame(c)
	if !ok {
		return
	}

	game, err := h.services.Catalog.UpdateGame(c.Request.Context(), c.Param("id"), input, cover, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// DeleteGame handles DELETE /v1/games/:id
func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.services.Catalog.DeleteGame(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindGame reads the game payload and optional cover. It writes the error
// response itself and reports false on failure.
func (h *GameHandler) bindGame(c *gin.Context) (*models.GameInput, *models.CoverUpload, bool) {
	var input models.GameInput

	if !isMultipart(c) {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "body", "invalid JSON body")
			return nil, nil, false
		}
		return &input, nil, true
	}

	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "body", "invalid form fields")
		return nil, nil, false
	}
	// form binding reads "" as 0; treat it like a missing JSON key
	if strings.TrimSpace(c.PostForm("release_year")) == "" {
		input.ReleaseYear = nil
	}
	if strings.TrimSpace(c.PostForm("user_rating")) == "" {
		input.UserRating = nil
	}

	file, header, err := c.Request.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) {
		return &input, nil, true
	}
	if err != nil {
		badRequest(c, "cover", "invalid cover upload")
		return nil, nil, false
	}
	defer file.Close()

	// read one byte past the limit so oversize files are still rejected by size
	data, err := io.ReadAll(io.LimitReader(file, validation.MaxCoverBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read cover upload")
		badRequest(c, "cover", "failed to read cover upload")
		return nil, nil, false
	}

	size := header.Size
	if int64(len(data)) > size {
		size = int64(len(data))
	}
	return &input, &models.CoverUpload{Filename: header.Filename, Size: size, Data: data}, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}
