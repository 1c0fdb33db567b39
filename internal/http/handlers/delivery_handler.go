// Delivery audit handlers.
//
// This file exposes the dispatch audit log:
//   - GET /deliveries (paginated, newest first)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/services"
	"github.com/pillwise/go-reminder-backend/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDeliveriesResponse wraps a page of delivery attempts.
type ListDeliveriesResponse struct {
	Deliveries []domain.Delivery `json:"deliveries"`
	Pagination Pagination        `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListDeliveries godoc
// @ID          listDeliveries
// @Summary     List notification delivery attempts (paginated)
// @Description Returns the patient's dispatch audit log, newest first.
// @Tags        Deliveries
// @Produce     json
//
// @Param       patientChatId  query  string  false  "Patient chat id (falls back to the configured default)"
// @Param       page           query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListDeliveriesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing patient"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /deliveries [get]
func (h *Handlers) ListDeliveries(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.deps.Notify.ListDeliveries(c.Request.Context(), h.queryPatientID(c), page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrMissingPatient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientChatId required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListDeliveriesResponse{
		Deliveries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
