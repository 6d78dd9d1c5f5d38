package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldtrack/tracker-be/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// GetWaitPolicy handles GET /api/v1/policies/wait/:sub_service
// Returns the wait window configuration for a sub-service; defaults are
// applied when no row is configured
func (h *PolicyHandler) GetWaitPolicy(c *gin.Context) {
	subService := c.Param("sub_service")
	if subService == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sub_service is required",
		})
		return
	}

	policy, err := h.policies.WaitPolicy(c.Request.Context(), subService)
	if err != nil {
		h.logger.Error("Failed to look up wait policy",
			slog.String("sub_service", subService),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to look up wait policy",
		})
		return
	}

	c.JSON(http.StatusOK, dto.WaitPolicyResponse{
		SubService:      policy.SubService,
		WaitTimeMinutes: policy.WaitTimeMinutes,
		NoShowPercent:   policy.NoShowPercent,
	})
}
