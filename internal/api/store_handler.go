package api

import (
	"fmt"
	"net/http"

	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

type StoreHandler struct {
	storeService service.StoreService
}

func NewStoreHandler(storeService service.StoreService) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"priceCents" binding:"required,min=1"`
	Stock       int    `json:"stock" binding:"min=0"`
	ImageKey    string `json:"imageKey"`
	IsActive    *bool  `json:"isActive"` // Defaults to true
}

func (r ProductRequest) input() service.ProductInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		PriceCents:  r.PriceCents,
		Stock:       r.Stock,
		ImageKey:    r.ImageKey,
		IsActive:    active,
	}
}

type PurchaseRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h *StoreHandler) CreateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	product, err := h.storeService.CreateProduct(c.Request.Context(), session, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *StoreHandler) UpdateProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	product, err := h.storeService.UpdateProduct(c.Request.Context(), session, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *StoreHandler) DeleteProduct(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	if err := h.storeService.DeleteProduct(c.Request.Context(), session, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StoreHandler) ListProducts(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	products, err := h.storeService.ListProducts(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []service.ProductView{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *StoreHandler) RequestImageUpload(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.storeService.RequestImageUpload(c.Request.Context(), session, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Purchase godoc
// @Summary Buy a product
// @Description Opens a hosted checkout. Stock is taken when the payment is confirmed.
// @Tags Store
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ObjectID Hex"
// @Param purchase body PurchaseRequest true "Quantity"
// @Success 201 {object} service.CheckoutResult
// @Failure 404 {object} gin.H "Product not found"
// @Failure 409 {object} gin.H "Out of stock or unavailable"
// @Router /store/products/{productId}/purchase [post]
func (h *StoreHandler) Purchase(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "productId")
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	result, err := h.storeService.Purchase(c.Request.Context(), session, id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
