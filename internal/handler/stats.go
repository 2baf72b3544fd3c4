package handler

import (
	"net/http"

	"neuriax/internal/apierror"
	"neuriax/internal/dto"
	"neuriax/internal/middleware"
	"neuriax/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct{ svc service.StatsService }

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

// Summary godoc
// @Summary Cash and invoicing rollups for a date range
// @Tags statistics
// @Produce json
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD, inclusive (default: first of current month)"
// @Param to query string false "YYYY-MM-DD, exclusive (default: first of next month)"
// @Success 200 {object} dto.StatsResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/statistics [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	var filter dto.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid filter: "+err.Error()))
		return
	}
	resp, err := h.svc.Summary(c.Request.Context(), middleware.TenantID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
