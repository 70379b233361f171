package handlers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/nbisweden/lega-e2e/api/v1"
	"github.com/nbisweden/lega-e2e/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps the row offset within an int for any page size.
	maxPage = math.MaxInt / maxPageSize
)

// GetAttempts returns recorded attempts, newest first
// (GET /attempts)
func (h *Handler) GetAttempts(c *gin.Context, params v1.GetAttemptsParams) {
	page := 1
	if params.Page != nil && *params.Page > 0 {
		page = *params.Page
	}
	if page > maxPage {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: fmt.Sprintf("page must not exceed %d", maxPage)})
		return
	}
	pageSize := defaultPageSize
	if params.PageSize != nil && *params.PageSize > 0 {
		pageSize = min(*params.PageSize, maxPageSize)
	}

	var filters []store.ListOption
	if params.Scenario != nil {
		filters = append(filters, store.ByScenarios(*params.Scenario...))
	}
	if params.Passed != nil {
		filters = append(filters, store.ByPassed(*params.Passed))
	}

	ctx := c.Request.Context()
	total, err := h.attempts.Count(ctx, filters...)
	if err != nil {
		zap.S().Named("attempt_handler").Errorw("failed to count attempts", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list attempts"})
		return
	}

	opts := append(filters,
		store.WithNewestFirst(),
		store.WithLimit(uint64(pageSize)),
		store.WithOffset(uint64((page-1)*pageSize)),
	)
	attempts, err := h.attempts.List(ctx, opts...)
	if err != nil {
		zap.S().Named("attempt_handler").Errorw("failed to list attempts", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list attempts"})
		return
	}

	pageCount := (total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}

	apiAttempts := make([]v1.Attempt, 0, len(attempts))
	for _, a := range attempts {
		apiAttempts = append(apiAttempts, v1.NewAttemptFromModel(a))
	}

	c.JSON(http.StatusOK, v1.AttemptListResponse{
		Page:      page,
		PageCount: pageCount,
		Total:     total,
		Attempts:  apiAttempts,
	})
}

// GetHealth reports whether the results store answers
// (GET /health)
func (h *Handler) GetHealth(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		msg := err.Error()
		c.JSON(http.StatusServiceUnavailable, v1.Health{Status: v1.HealthStatusDegraded, Error: &msg})
		return
	}
	c.JSON(http.StatusOK, v1.Health{Status: v1.HealthStatusOK})
}
