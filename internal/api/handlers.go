// Package api wires the note query pipeline onto an HTTP surface with gin:
// bearer auth, CORS, request-ID logging, and a single POST /query route
// backed by the Answerer interface.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
	"github.com/omars-lab/knowledge-agents/internal/models"
	"github.com/omars-lab/knowledge-agents/internal/requestid"
)

var startTime = time.Now()

// Answerer runs the note query pipeline for one request. noteservice.Service
// satisfies this; handlers depend on the interface so they can be tested
// without a live LLM, vector store, and MCP service behind them.
type Answerer interface {
	Answer(ctx context.Context, query models.Query) (models.NoteQueryResponse, map[string]string, error)
}

// Handler exposes the note query pipeline as gin route handlers.
type Handler struct {
	service        Answerer
	maxQueryLength int
}

// NewHandler builds a Handler around an already-constructed Answerer.
// maxQueryLength bounds the caller-supplied query body (0 disables the check).
func NewHandler(service Answerer, maxQueryLength int) *Handler {
	return &Handler{service: service, maxQueryLength: maxQueryLength}
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// QueryNotes handles POST /api/v1/notes/query: answer a question about the
// caller's notes, or report why the guardrails declined to.
func (h *Handler) QueryNotes(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := requestid.FromContext(ctx)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeValidationError(c, requestID, "query is required and must be a non-empty string")
		return
	}
	if h.maxQueryLength > 0 && utf8.RuneCountInString(req.Query) > h.maxQueryLength {
		h.writeValidationError(c, requestID, fmt.Sprintf("query exceeds the %d character limit", h.maxQueryLength))
		return
	}

	query := models.Query{
		Text:      req.Query,
		RequestID: requestID,
		APIToken:  apiTokenFrom(c),
	}

	response, headers, err := h.service.Answer(ctx, query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if response.RequestID == "" {
		response.RequestID = requestID
	}

	for name, value := range headers {
		c.Header(name, value)
	}
	c.JSON(http.StatusOK, response)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  time.Since(startTime).String(),
	})
}

// writeValidationError writes the 422 the spec mandates for a request that
// never reaches the pipeline: empty query, or a body over maxQueryLength.
func (h *Handler) writeValidationError(c *gin.Context, requestID, message string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"request_id": requestID,
		"error":      "validation",
		"message":    message,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	log := requestid.Logger(c.Request.Context())
	requestID := requestid.FromContext(c.Request.Context())

	appErr, ok := err.(*apperr.Error)
	if !ok {
		log.WithError(err).Warn("note query failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"request_id": requestID,
			"error":      "internal",
			"message":    err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	case apperr.KindCancelled:
		status = http.StatusGatewayTimeout
	case apperr.KindAgentOutput, apperr.KindLLM, apperr.KindEmbedding, apperr.KindVectorStore, apperr.KindMCP:
		status = http.StatusServiceUnavailable
	case apperr.KindConfig:
		status = http.StatusInternalServerError
	}

	log.WithError(err).Warn("note query failed")
	c.JSON(status, gin.H{
		"request_id": requestID,
		"error":      errorKind(appErr),
		"message":    appErr.Message,
	})
}

// errorKind is the outward kind label in a 503 body: the LLM sub-kind
// (rate_limit, auth, timeout, connection, other) when Kind is KindLLM,
// otherwise the component kind itself.
func errorKind(appErr *apperr.Error) string {
	if appErr.Kind == apperr.KindLLM && appErr.LLMKind != "" {
		return string(appErr.LLMKind)
	}
	return string(appErr.Kind)
}
