package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordhen/credgate/internal/pkg/codeassist"
	"github.com/nordhen/credgate/internal/pkg/ctxkey"
	pkgerrors "github.com/nordhen/credgate/internal/pkg/errors"
	"github.com/nordhen/credgate/internal/pkg/logger"
	"github.com/nordhen/credgate/internal/service"
)

// GatewayHandler relays upstream method calls through the credential pool.
type GatewayHandler struct {
	gatewayService *service.GatewayService
}

func NewGatewayHandler(gatewayService *service.GatewayService) *GatewayHandler {
	return &GatewayHandler{gatewayService: gatewayService}
}

// Invoke handles POST /v1internal/:method. The response relays the upstream
// status and body verbatim on success; gateway-originated failures use the
// local error envelope.
func (h *GatewayHandler) Invoke(c *gin.Context) {
	method := c.Param("method")
	if !codeassist.IsKnownMethod(method) {
		respondError(c, pkgerrors.NotFound("unknown_method", "Unknown upstream method: "+method))
		return
	}
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxkey.Method, method))

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, pkgerrors.BadRequest("invalid_request_error", "Failed to read request body"))
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	res, err := h.gatewayService.Execute(c.Request.Context(), method, body)
	if err != nil {
		h.relayError(c, err)
		return
	}

	c.Data(res.StatusCode, "application/json", res.Body)
}

// relayError maps service failures onto HTTP statuses. Upstream errors pass
// through with their original status and body so callers see what the
// protected API actually said.
func (h *GatewayHandler) relayError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNoCredentials) {
		respondError(c, pkgerrors.ServiceUnavailable("configuration_error", "No credentials configured"))
		return
	}

	var authErr *service.AuthenticationError
	if errors.As(err, &authErr) {
		respondError(c, pkgerrors.BadGateway("authentication_error", authErr.Error()))
		return
	}

	if upstreamErr, ok := service.AsUpstreamError(err); ok {
		c.Data(upstreamErr.StatusCode, "application/json", []byte(upstreamErr.Body))
		return
	}

	respondError(c, pkgerrors.BadGateway("upstream_error", err.Error()))
}

func respondError(c *gin.Context, coded *pkgerrors.Error) {
	status := pkgerrors.StatusOf(coded)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Warn("request_failed",
			zap.String("code", coded.Code), zap.Error(coded))
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"type":    coded.Code,
			"message": coded.Message,
		},
	})
}
