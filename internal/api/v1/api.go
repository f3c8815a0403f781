// Package v1 implements the JSON API of birddex on top of the logbook service.
package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logbook"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/sighting"
)

// SpriteURLPrefix is where generated sprites are served
const SpriteURLPrefix = "/sprites"

// Limits for photo identification uploads
const (
	MaxImages     = 10
	MaxImageBytes = 10 << 20
)

// Controller handles /api/v1 requests
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	svc       *logbook.Service
	log       logger.Logger
	startTime time.Time
}

// New creates a Controller and registers its routes on e.
func New(e *echo.Echo, svc *logbook.Service, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v1"),
		svc:       svc,
		log:       log.Module("api"),
		startTime: time.Now(),
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.GET("/species", c.ListSpecies)
	c.Group.GET("/species/:name", c.GetSpecies)

	c.Group.GET("/sightings", c.ListSightings)
	c.Group.POST("/sightings", c.CreateSighting)
	c.Group.DELETE("/sightings", c.DeleteSightings)
	c.Group.DELETE("/sightings/:name", c.DeleteSighting)

	c.Group.GET("/stats", c.GetStats)
	c.Group.GET("/dex", c.GetDex)
	c.Group.GET("/map", c.GetMap)

	c.Group.POST("/identify", c.Identify)
}

// HealthCheck reports liveness and the size of the loaded catalog
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"species":        c.svc.Catalog().Len(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // request ID of the failed request
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = errors.ScrubMessage(err.Error())
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// HandleError writes an error response and logs it with the request ID.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	id := ctx.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = ctx.Request().Header.Get(echo.HeaderXRequestID)
	}
	resp := NewErrorResponse(err, message, code, id)

	fields := []logger.Field{
		logger.String("correlation_id", id),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API error", fields...)
	}
	return ctx.JSON(code, resp)
}

// HandleServiceError maps a logbook error to its HTTP status.
func (c *Controller) HandleServiceError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, StatusFor(err))
}

// StatusFor returns the HTTP status of a logbook error
func StatusFor(err error) int {
	switch sighting.KindOf(err) {
	case sighting.KindNone:
		return http.StatusOK
	case sighting.KindValidation:
		return http.StatusBadRequest
	case sighting.KindUncatalogued:
		return http.StatusUnprocessableEntity
	case sighting.KindDuplicate:
		return http.StatusConflict
	}
	switch errors.CategoryOf(err) {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConfiguration:
		return http.StatusServiceUnavailable
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
