package api

import (
	"fmt"
	"net/http"
	"strconv"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

// BillingHandler covers checkout confirmation and the gym's own platform
// subscription.
type BillingHandler struct {
	paymentService service.PaymentService
	saasService    service.SaaSService
}

func NewBillingHandler(paymentService service.PaymentService, saasService service.SaaSService) *BillingHandler {
	return &BillingHandler{paymentService: paymentService, saasService: saasService}
}

type ConfirmCheckoutRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Success   *bool  `json:"success"` // The flag on the return URL; defaults to true
}

type UpgradeRequest struct {
	Tier domain.SaaSTier `json:"tier" binding:"required,oneof=starter growth pro"`
}

// ConfirmCheckout godoc
// @Summary Confirm a hosted checkout
// @Description Called by the SPA after the provider redirects back, with the session_id and success values from the return URL either as query parameters or as a JSON body. Verifies the session and applies the payment once.
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session_id query string false "Checkout session id"
// @Param success query bool false "Success flag from the return URL"
// @Param confirmation body ConfirmCheckoutRequest false "Checkout session"
// @Success 200 {object} domain.Payment
// @Failure 402 {object} gin.H "Checkout was not paid"
// @Failure 404 {object} gin.H "Unknown session"
// @Router /checkout/confirm [post]
func (h *BillingHandler) ConfirmCheckout(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req ConfirmCheckoutRequest
	if sessionID := c.Query("session_id"); sessionID != "" {
		req.SessionID = sessionID
		if raw := c.Query("success"); raw != "" {
			success, err := strconv.ParseBool(raw)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, "success must be true or false")
				return
			}
			req.Success = &success
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	success := req.Success == nil || *req.Success

	payment, err := h.paymentService.ConfirmCheckout(c.Request.Context(), session, req.SessionID, success)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *BillingHandler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, h.saasService.ListTiers())
}

// QuoteUpgrade prices a move to ?tier for the rest of the current cycle.
func (h *BillingHandler) QuoteUpgrade(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	tier := domain.SaaSTier(c.Query("tier"))
	if tier == "" {
		abortWithError(c, http.StatusBadRequest, "tier is required")
		return
	}
	quote, err := h.saasService.QuoteUpgrade(c.Request.Context(), session, tier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *BillingHandler) StartUpgrade(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	result, err := h.saasService.StartUpgrade(c.Request.Context(), session, req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.RedirectURL == "" {
		// Nothing was due and the tier already switched
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}
