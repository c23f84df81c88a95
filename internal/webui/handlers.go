package webui

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "wayfarer_session"

var errMissingAPIClient = errors.New("api client dependency required")

type Dependencies struct {
	API      *Client
	Sessions *SessionStore
	Logger   *zap.Logger
}

// NewHTTPHandler builds the frontend router with the embedded templates.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.API == nil {
		return nil, errMissingAPIClient
	}

	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessionStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &webHandler{
		api:      deps.API,
		sessions: sessions,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/", handler.handleOverview)
	router.POST("/destinations", handler.handleCreateDestination)
	router.POST("/destinations/:id/delete", handler.handleDeleteDestination)
	router.GET("/destinations/:id", handler.handleDestinationDetail)
	router.POST("/destinations/:id/notes", handler.handleCreateNote)
	router.POST("/destinations/:id/ask", handler.handleAsk)
	router.POST("/destinations/:id/chat/clear", handler.handleClearChat)

	return router, nil
}

type webHandler struct {
	api      *Client
	sessions *SessionStore
	logger   *zap.Logger
}

func (h *webHandler) handleOverview(c *gin.Context) {
	destinations, err := h.api.ListDestinations(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list destinations", zap.Error(err))
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"Message": "The travel API is unavailable. Please try again shortly.",
		})
		return
	}

	c.HTML(http.StatusOK, "overview.html", gin.H{
		"Destinations": destinations,
		"Error":        describeErrorToken(c.Query("error")),
	})
}

func (h *webHandler) handleCreateDestination(c *gin.Context) {
	name := c.PostForm("name")
	if _, err := h.api.CreateDestination(c.Request.Context(), name); err != nil {
		h.logger.Warn("destination creation failed", zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/?error="+errorToken(err))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *webHandler) handleDeleteDestination(c *gin.Context) {
	destinationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.api.DeleteDestination(c.Request.Context(), destinationID); err != nil {
		h.logger.Warn("destination deletion failed",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.Redirect(http.StatusSeeOther, "/?error="+errorToken(err))
		return
	}

	h.sessions.Drop(destinationID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *webHandler) handleDestinationDetail(c *gin.Context) {
	destinationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	destination, err := h.findDestination(c, destinationID)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"Message": "Destination not found.",
		})
		return
	}

	notes, err := h.api.ListNotes(c.Request.Context(), destinationID)
	if err != nil {
		h.logger.Error("failed to list notes",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.HTML(http.StatusBadGateway, "error.html", gin.H{
			"Message": "The travel API is unavailable. Please try again shortly.",
		})
		return
	}

	c.HTML(http.StatusOK, "destination.html", gin.H{
		"Destination": destination,
		"Notes":       notes,
		"Transcript":  h.sessions.Transcript(h.sessionID(c), destinationID),
		"Error":       describeErrorToken(c.Query("error")),
	})
}

func (h *webHandler) handleCreateNote(c *gin.Context) {
	destinationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	target := fmt.Sprintf("/destinations/%d", destinationID)
	if _, err := h.api.CreateNote(c.Request.Context(), destinationID, c.PostForm("content")); err != nil {
		h.logger.Warn("note creation failed",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.Redirect(http.StatusSeeOther, target+"?error="+errorToken(err))
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *webHandler) handleAsk(c *gin.Context) {
	destinationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	target := fmt.Sprintf("/destinations/%d", destinationID)
	question := c.PostForm("question")
	if question == "" {
		c.Redirect(http.StatusSeeOther, target+"?error=empty_question")
		return
	}

	sessionID := h.sessionID(c)
	result, err := h.api.Ask(c.Request.Context(), destinationID, question)
	if err != nil {
		h.logger.Warn("question failed",
			zap.Uint("destination_id", destinationID),
			zap.Error(err))
		c.Redirect(http.StatusSeeOther, target+"?error="+errorToken(err))
		return
	}

	now := time.Now()
	h.sessions.Append(sessionID, destinationID, Message{Text: question, IsUser: true, At: now})
	h.sessions.Append(sessionID, destinationID, Message{
		Text:    result.Answer,
		At:      now,
		Weather: result.WeatherInfo,
	})
	c.Redirect(http.StatusSeeOther, target)
}

func (h *webHandler) handleClearChat(c *gin.Context) {
	destinationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	h.sessions.Clear(h.sessionID(c), destinationID)
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/destinations/%d", destinationID))
}

// sessionID returns the browser's session cookie, minting one when absent.
func (h *webHandler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookieName); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(sessionCookieName, id, int(sessionIdleTTL.Seconds()), "/", "", false, true)
	return id
}

func (h *webHandler) findDestination(c *gin.Context, destinationID uint) (Destination, error) {
	destinations, err := h.api.ListDestinations(c.Request.Context())
	if err != nil {
		return Destination{}, err
	}
	for _, destination := range destinations {
		if destination.ID == destinationID {
			return destination, nil
		}
	}
	return Destination{}, errors.New("destination not found")
}

func parseIDParam(c *gin.Context) (uint, bool) {
	value, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || value == 0 {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{
			"Message": "Invalid destination.",
		})
		return 0, false
	}
	return uint(value), true
}

func errorToken(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Token
	}
	return "api_unavailable"
}

// describeErrorToken maps API error tokens to sentences shown in the page.
func describeErrorToken(token string) string {
	switch token {
	case "":
		return ""
	case "destination_exists":
		return "A destination with that name already exists."
	case "empty_name":
		return "Destination name cannot be empty."
	case "empty_content":
		return "Note content cannot be empty."
	case "empty_question":
		return "Please enter a question."
	case "destination_not_found":
		return "Destination not found."
	case "rate_limit_exceeded":
		return "Too many requests. Please wait a moment and try again."
	case "api_unavailable":
		return "The travel API is unavailable. Please try again shortly."
	default:
		return "Something went wrong. Please try again."
	}
}
