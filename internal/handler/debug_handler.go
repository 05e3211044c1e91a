package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/nordhen/credgate/internal/pkg/errors"
	"github.com/nordhen/credgate/internal/service"
)

// DebugHandler exposes the operator introspection surface: a read-only cache
// snapshot and a live upstream probe.
type DebugHandler struct {
	gatewayService *service.GatewayService
}

func NewDebugHandler(gatewayService *service.GatewayService) *DebugHandler {
	return &DebugHandler{gatewayService: gatewayService}
}

// Cache handles GET /debug/cache.
func (h *DebugHandler) Cache(c *gin.Context) {
	status, err := h.gatewayService.Status(c.Request.Context())
	if err != nil {
		respondError(c, debugError(err))
		return
	}
	c.JSON(http.StatusOK, status)
}

// Probe handles GET /debug/probe. The probe outcome is always a 200 with the
// result embedded; only configuration failures surface as HTTP errors.
func (h *DebugHandler) Probe(c *gin.Context) {
	result, err := h.gatewayService.Probe(c.Request.Context())
	if err != nil {
		respondError(c, debugError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func debugError(err error) *pkgerrors.Error {
	if errors.Is(err, service.ErrNoCredentials) {
		return pkgerrors.ServiceUnavailable("configuration_error", "No credentials configured")
	}
	return pkgerrors.Internal("internal_error", "Inspection failed: "+err.Error()).WithCause(err)
}
