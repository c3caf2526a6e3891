package executor

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/e-code/agent/internal/shared/errors"
)

// Handler handles HTTP requests for the execution service.
type Handler struct {
	service *Service
	apiKey  string
	logger  *zap.Logger
}

// NewHandler creates a new execution handler.
func NewHandler(service *Service, apiKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		apiKey:  apiKey,
		logger:  logger.Named("executor-handler"),
	}
}

// RegisterRoutes registers executor routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/execute", h.Execute)
	r.GET("/health", h.Health)
}

// Execute handles code execution.
//
//	@Summary		Execute code
//	@Description	Run code in the configured sandbox backend
//	@Tags			Execution
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ExecutionRequest	true	"Execution request"
//	@Success		200		{object}	ExecutionResult
//	@Failure		400		{object}	apperrors.ErrorResponse
//	@Failure		401		{object}	apperrors.ErrorResponse
//	@Failure		429		{object}	apperrors.ErrorResponse
//	@Failure		501		{object}	apperrors.ErrorResponse
//	@Router			/execute [post]
func (h *Handler) Execute(c *gin.Context) {
	if !h.authenticate(c) {
		h.handleError(c, apperrors.Unauthorized(""))
		return
	}

	var req ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperrors.BadRequest(err.Error()))
		return
	}

	result, err := h.service.Execute(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health reports service liveness and backend reachability.
//
//	@Summary		Health check
//	@Description	Liveness plus sandbox backend reachability
//	@Tags			Execution
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	mode := h.service.Mode()
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"mode":   mode,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   mode,
	})
}

// authenticate checks the bearer API key in constant time. Both
// "Bearer token" and bare "token" headers are accepted.
func (h *Handler) authenticate(c *gin.Context) bool {
	if h.apiKey == "" {
		return true
	}
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) == 1
}

// handleError maps service errors onto the shared error taxonomy.
func (h *Handler) handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	switch {
	case errors.Is(err, ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, apperrors.BadRequest(err.Error()).ToResponse())
	case errors.Is(err, ErrSandboxUnavailable), errors.Is(err, ErrDockerUnavailable):
		c.JSON(http.StatusServiceUnavailable, apperrors.Unavailable(err.Error()).ToResponse())
	default:
		h.logger.Error("unhandled execution error", zap.Error(err))
		c.JSON(http.StatusInternalServerError,
			apperrors.Internal("internal error", err).ToResponse())
	}
}
