package api

import (
	"net/http"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

// defaultReportWindow applies when a report omits ?from.
const defaultReportWindow = 30 * 24 * time.Hour

type AccountingHandler struct {
	accountingService service.AccountingService
}

func NewAccountingHandler(accountingService service.AccountingService) *AccountingHandler {
	return &AccountingHandler{accountingService: accountingService}
}

// RevenueReport godoc
// @Summary Revenue for a period
// @Description Accrued membership revenue and cash received in [from, to).
// @Tags Accounting
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "End, exclusive"
// @Success 200 {object} service.RevenueReport
// @Failure 400 {object} gin.H "Invalid window"
// @Failure 403 {object} gin.H "Admins only"
// @Router /accounting/revenue [get]
func (h *AccountingHandler) RevenueReport(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	from, to, ok := timeRange(c, defaultReportWindow)
	if !ok {
		return
	}
	report, err := h.accountingService.RevenueReport(c.Request.Context(), session, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AccountingHandler) Dashboard(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	stats, err := h.accountingService.DashboardStats(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AccountingHandler) ListPayments(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	from, to, ok := timeRange(c, defaultReportWindow)
	if !ok {
		return
	}
	payments, err := h.accountingService.ListPayments(c.Request.Context(), session, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	c.JSON(http.StatusOK, payments)
}
