package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wayfarerlabs/wayfarer/internal/advisor"
	"github.com/wayfarerlabs/wayfarer/internal/database"
	"github.com/wayfarerlabs/wayfarer/internal/metrics"
	"github.com/wayfarerlabs/wayfarer/internal/ratelimit"
	"github.com/wayfarerlabs/wayfarer/internal/travel"
)

const serviceBanner = "Wayfarer Travel Advisor API"

var (
	errMissingTravelService = errors.New("travel service dependency required")
	errMissingAdvisor       = errors.New("advisor dependency required")
	errMissingDatabase      = errors.New("database dependency required")
)

// Advisor answers destination questions through the retrieval pipeline.
type Advisor interface {
	Answer(ctx context.Context, destinationID uint, question string) (advisor.Result, error)
}

type Dependencies struct {
	TravelService *travel.Service
	Advisor       Advisor
	Database      *gorm.DB
	CRUDLimiter   *ratelimit.Limiter
	AILimiter     *ratelimit.Limiter
	Metrics       *metrics.Collector
	Logger        *zap.Logger
	TrustProxy    bool
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TravelService == nil {
		return nil, errMissingTravelService
	}
	if deps.Advisor == nil {
		return nil, errMissingAdvisor
	}
	if deps.Database == nil {
		return nil, errMissingDatabase
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		travelService: deps.TravelService,
		advisor:       deps.Advisor,
		db:            deps.Database,
		crudLimiter:   deps.CRUDLimiter,
		aiLimiter:     deps.AILimiter,
		collector:     deps.Metrics,
		logger:        logger,
		trustProxy:    deps.TrustProxy,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(handler.logRequest)
	if handler.collector != nil {
		router.Use(handler.instrumentRequest)
	}

	router.GET("/", handler.handleBanner)
	router.GET("/health", handler.handleHealth)
	router.GET("/ready", handler.handleReady)
	router.GET("/status", handler.handleStatus)
	if handler.collector != nil {
		router.GET("/metrics", gin.WrapH(handler.collector.Handler()))
	}

	api := router.Group("/api/v1")

	crud := api.Group("/")
	crud.Use(handler.limitRequests(deps.CRUDLimiter, "crud"))
	crud.GET("/destinations", handler.handleListDestinations)
	crud.POST("/destinations", handler.handleCreateDestination)
	crud.DELETE("/destinations/:id", handler.handleDeleteDestination)
	crud.GET("/destinations/:id/notes", handler.handleListNotes)
	crud.POST("/destinations/:id/notes", handler.handleCreateNote)

	ask := api.Group("/")
	ask.Use(handler.limitRequests(deps.AILimiter, "ai"))
	ask.POST("/ask", handler.handleAsk)

	return router, nil
}

type httpHandler struct {
	travelService *travel.Service
	advisor       Advisor
	db            *gorm.DB
	crudLimiter   *ratelimit.Limiter
	aiLimiter     *ratelimit.Limiter
	collector     *metrics.Collector
	logger        *zap.Logger
	trustProxy    bool
}

type destinationPayload struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type notePayload struct {
	ID            uint      `json:"id"`
	DestinationID uint      `json:"destination_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

func destinationToPayload(destination travel.Destination) destinationPayload {
	return destinationPayload{
		ID:        destination.ID,
		Name:      destination.Name,
		CreatedAt: destination.CreatedAt,
	}
}

func noteToPayload(note travel.Note) notePayload {
	return notePayload{
		ID:            note.ID,
		DestinationID: note.DestinationID,
		Content:       note.Content,
		CreatedAt:     note.CreatedAt,
	}
}

func (h *httpHandler) handleListDestinations(c *gin.Context) {
	destinations, err := h.travelService.ListDestinations(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list destinations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	response := make([]destinationPayload, 0, len(destinations))
	for _, destination := range destinations {
		response = append(response, destinationToPayload(destination))
	}
	c.JSON(http.StatusOK, response)
}

type createDestinationPayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleCreateDestination(c *gin.Context) {
	var request createDestinationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	destination, err := h.travelService.CreateDestination(c.Request.Context(), request.Name)
	if err != nil {
		switch {
		case errors.Is(err, travel.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_name"})
		case errors.Is(err, travel.ErrDuplicateDestination):
			c.JSON(http.StatusBadRequest, gin.H{"error": "destination_exists"})
		default:
			h.logger.Error("failed to create destination", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	if h.collector != nil {
		h.collector.DestinationsCreated.Inc()
	}
	c.JSON(http.StatusCreated, destinationToPayload(destination))
}

func (h *httpHandler) handleDeleteDestination(c *gin.Context) {
	destinationID, ok := parseDestinationID(c)
	if !ok {
		return
	}

	removed, err := h.travelService.DeleteDestination(c.Request.Context(), destinationID)
	if err != nil {
		if errors.Is(err, travel.ErrDestinationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "destination_not_found"})
			return
		}
		h.logger.Error("failed to delete destination",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if h.collector != nil {
		h.collector.DestinationsDeleted.Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "destination deleted",
		"removed_notes": removed,
	})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	destinationID, ok := parseDestinationID(c)
	if !ok {
		return
	}

	notes, err := h.travelService.ListNotes(c.Request.Context(), destinationID)
	if err != nil {
		if errors.Is(err, travel.ErrDestinationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "destination_not_found"})
			return
		}
		h.logger.Error("failed to list notes",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	response := make([]notePayload, 0, len(notes))
	for _, note := range notes {
		response = append(response, noteToPayload(note))
	}
	c.JSON(http.StatusOK, response)
}

type createNotePayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	destinationID, ok := parseDestinationID(c)
	if !ok {
		return
	}

	var request createNotePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.travelService.CreateNote(c.Request.Context(), destinationID, request.Content)
	if err != nil {
		switch {
		case errors.Is(err, travel.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_content"})
		case errors.Is(err, travel.ErrDestinationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "destination_not_found"})
		default:
			h.logger.Error("failed to create note",
				zap.Uint("destination_id", destinationID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	if h.collector != nil {
		h.collector.NotesCreated.Inc()
	}
	c.JSON(http.StatusCreated, noteToPayload(note))
}

type askRequestPayload struct {
	DestinationID uint   `json:"destination_id"`
	Question      string `json:"question"`
}

type askResponsePayload struct {
	Answer      string  `json:"answer"`
	WeatherInfo *string `json:"weather_info"`
}

func (h *httpHandler) handleAsk(c *gin.Context) {
	var request askRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.DestinationID == 0 || request.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.advisor.Answer(c.Request.Context(), request.DestinationID, request.Question)
	if err != nil {
		if errors.Is(err, travel.ErrDestinationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "destination_not_found"})
			return
		}
		h.logger.Error("question answering failed",
			zap.Uint("destination_id", request.DestinationID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if h.collector != nil {
		h.collector.QuestionsAsked.Inc()
	}
	c.JSON(http.StatusOK, askResponsePayload{
		Answer:      result.Answer,
		WeatherInfo: result.Weather,
	})
}

func (h *httpHandler) handleBanner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": serviceBanner})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *httpHandler) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	pool, err := database.Pool(h.db)
	if err != nil {
		h.logger.Error("pool status unavailable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	status := gin.H{"database": pool}
	if h.crudLimiter != nil {
		status["crud_rate_limit"] = h.crudLimiter.Stats()
	}
	if h.aiLimiter != nil {
		status["ai_rate_limit"] = h.aiLimiter.Stats()
	}
	c.JSON(http.StatusOK, status)
}

// parseDestinationID reads the :id path parameter; malformed values are
// reported as a validation failure before any service call.
func parseDestinationID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_destination_id"})
		return 0, false
	}
	return uint(value), true
}
