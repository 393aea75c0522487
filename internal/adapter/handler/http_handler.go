package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
)

const kindInvalidRequest = "InvalidRequest"

type HTTPHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

type UpdateInventoryRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type PurchaseRequest struct {
	Amount *int `json:"amount" binding:"required"`
}

// Resource is the JSON:API style envelope for every successful response.
type Resource struct {
	Type       string      `json:"type"`
	ID         string      `json:"id"`
	Attributes interface{} `json:"attributes"`
}

type Document struct {
	Data Resource `json:"data"`
}

type InventoryAttributes struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type PurchaseAttributes struct {
	PurchasedAmount    int    `json:"purchased_amount"`
	RemainingQuantity  int    `json:"remaining_quantity"`
	ProductDescription string `json:"product_description,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewHTTPHandler(inventory *service.InventoryService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, logger: logger}
}

// Register mounts the inventory routes on r.
func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	inventory := r.Group("/inventory")
	{
		inventory.GET("/:productId", h.GetInventory)
		inventory.PUT("/:productId", h.UpdateInventory)
		inventory.POST("/:productId/purchase", h.Purchase)
	}
}

func (h *HTTPHandler) GetInventory(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	record, err := h.inventory.GetStock(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, inventoryDocument(record))
}

func (h *HTTPHandler) UpdateInventory(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    kindInvalidRequest,
			Message: "quantity is required",
			Details: err.Error(),
		})
		return
	}

	record, err := h.inventory.SetStock(c.Request.Context(), productID, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, inventoryDocument(record))
}

func (h *HTTPHandler) Purchase(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    kindInvalidRequest,
			Message: "amount is required",
			Details: err.Error(),
		})
		return
	}

	result, err := h.inventory.DecreaseStock(c.Request.Context(), productID, *req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Document{Data: Resource{
		Type: "purchase",
		ID:   strconv.FormatInt(productID, 10),
		Attributes: PurchaseAttributes{
			PurchasedAmount:    result.PurchasedAmount,
			RemainingQuantity:  result.Record.Quantity,
			ProductDescription: result.ProductDescription,
		},
	}})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseProductID(c *gin.Context) (int64, bool) {
	raw := c.Param("productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    kindInvalidRequest,
			Message: "productId must be a positive integer",
			Details: fmt.Sprintf("productId: %q", raw),
		})
		return 0, false
	}
	return id, true
}

func inventoryDocument(record domain.InventoryRecord) Document {
	return Document{Data: Resource{
		Type: "inventory",
		ID:   strconv.FormatInt(record.ID, 10),
		Attributes: InventoryAttributes{
			ProductID: record.ProductID,
			Quantity:  record.Quantity,
		},
	}}
}

// HTTPStatus maps a workflow failure kind to its response status.
func HTTPStatus(kind service.ErrorKind) int {
	switch kind {
	case service.KindProductNotFound, service.KindInventoryNotFound:
		return http.StatusNotFound
	case service.KindInvalidQuantity, service.KindInvalidAmount, service.KindInsufficientStock:
		return http.StatusBadRequest
	case service.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case service.KindConcurrentUpdate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := HTTPStatus(kind)

	resp := ErrorResponse{Code: string(kind), Message: errorMessage(kind)}
	if status < http.StatusInternalServerError {
		resp.Details = err.Error()
	} else {
		// keep dependency and storage details out of the response body
		h.logger.Error("inventory request failed",
			zap.String("kind", string(kind)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}

	c.Error(err)
	c.JSON(status, resp)
}

func errorMessage(kind service.ErrorKind) string {
	switch kind {
	case service.KindProductNotFound:
		return "product not found"
	case service.KindInventoryNotFound:
		return "inventory not found for product"
	case service.KindInsufficientStock:
		return "insufficient stock available"
	case service.KindInvalidQuantity:
		return "quantity must be zero or greater"
	case service.KindInvalidAmount:
		return "amount must be greater than zero"
	case service.KindDependencyUnavailable:
		return "product catalog is unavailable"
	case service.KindConcurrentUpdate:
		return "inventory was modified concurrently, retry the request"
	default:
		return "internal error"
	}
}
