package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pvolkov/accounts-service/internal/usecase"
)

// StatsHandler exposes account statistics for administrators.
type StatsHandler struct {
	stats *usecase.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *usecase.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// RegisterRoutes binds the statistics routes.
func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accounts", h.accounts)
}

func (h *StatsHandler) accounts(c *gin.Context) {
	days := queryInt(c, "days", 30)
	limit := queryInt(c, "limit", 10)

	overview, err := h.stats.Overview(c.Request.Context(), days, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to compute statistics"))
		return
	}

	c.JSON(http.StatusOK, newStatsResponse(overview))
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
